package cmd

import (
	"fmt"
	"time"

	lib "github.com/warelink/wpmsync/lib"
	"github.com/warelink/wpmsync/models"
	log "github.com/sirupsen/logrus"
)

// Options are the run-level switches surfaced by the CLI.
type Options struct {
	DryRun bool
	Start  string // yyyyMMdd, incremental endpoints only
	End    string // yyyyMMdd, incremental endpoints only
}

// Sync runs the full ingestion: validate config, authenticate once, then
// process every configured endpoint sequentially. Configuration and
// authentication failures are fatal; per-endpoint, per-day and per-row
// failures are recorded in the run summary and execution continues.
func Sync(cfg models.SyncConfig, opts Options) error {
	var metric models.RunMetric
	metric.ExecutionStart = time.Now().UTC()
	metric.DryRun = opts.DryRun

	if err := lib.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	start, err := parseDateFlag(opts.Start)
	if err != nil {
		return fmt.Errorf("invalid --start date: %w", err)
	}
	end, err := parseDateFlag(opts.End)
	if err != nil {
		return fmt.Errorf("invalid --end date: %w", err)
	}

	password, err := lib.LoadPassword(cfg.Credentials)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	exec := &lib.Executor{}

	token, err := lib.Login(exec, cfg.Server+cfg.LoginPath, cfg.Credentials.Username, password, lib.LoginOptions{
		SkipHash: cfg.Credentials.SkipHash,
	})
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	log.Info("authenticated against WPMS")

	pipeline := &lib.Pipeline{
		Exec:   exec,
		Server: cfg.Server,
		Token:  token,
		DryRun: opts.DryRun,
	}

	// one destination connection per run, shared by every endpoint write
	if cfg.SQLConnectionString != "" {
		db, driver, err := lib.OpenDestination(cfg.SQLConnectionString)
		if err != nil {
			return fmt.Errorf("error opening destination: %w", err)
		}
		defer db.Close()
		pipeline.Writer = &lib.Writer{DB: db, Driver: driver}
	} else {
		log.Info("no sql_connection_string configured, running API-only")
	}

	for _, ep := range cfg.Endpoints {
		log.WithFields(log.Fields{"endpoint": ep.Name, "uri": ep.URI}).Info("processing endpoint")

		if ep.Incremental != nil {
			summary, outcomes := pipeline.RunIncremental(ep, start, end)
			metric.Outcomes = append(metric.Outcomes, outcomes...)
			metric.RecordsWritten += summary.TotalRecordsWritten
			metric.EndpointFailures += summary.TotalDaysWithErrors
			continue
		}

		outcome := pipeline.ProcessEndpoint(ep, time.Time{})
		metric.Outcomes = append(metric.Outcomes, outcome)
		metric.RecordsWritten += outcome.RecordsWritten
		if !outcome.Success {
			metric.EndpointFailures++
			log.WithFields(log.Fields{"endpoint": ep.Name, "error": outcome.Error}).Warn("endpoint failed")
		}
	}

	metric.ExecutionEnd = time.Now().UTC()
	metric.ExecutionDuration = metric.ExecutionEnd.Sub(metric.ExecutionStart)
	if err := lib.AppendToHistory(metric); err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("could not append run to history")
	}

	log.WithFields(log.Fields{
		"records_written":   metric.RecordsWritten,
		"endpoint_failures": metric.EndpointFailures,
		"duration":          metric.ExecutionDuration.String(),
	}).Info("run complete")

	return nil
}

func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("20060102", value, time.UTC)
}
