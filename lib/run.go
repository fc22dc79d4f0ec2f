package lib

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/warelink/wpmsync/models"
)

// Pipeline bundles the collaborators one run shares across all endpoint
// calls: the request executor, the destination writer (nil for an API-only
// run without persistence) and the bearer token obtained once at run start.
type Pipeline struct {
	Exec   *Executor
	Writer *Writer
	Server string
	Token  string
	DryRun bool
	Now    func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

// ProcessEndpoint runs the full call → normalize → coerce → upsert pipeline
// for one endpoint. A non-zero date is the incremental driver's literal day:
// it overrides dynamic date placeholders and is injected as the endpoint's
// date parameter and date column. Failures are reported in the outcome, not
// returned, so one endpoint never aborts the run.
func (p *Pipeline) ProcessEndpoint(ep models.EndpointConfig, date time.Time) models.EndpointOutcome {
	outcome := models.EndpointOutcome{Endpoint: ep.Name}
	if !date.IsZero() {
		outcome.Date = date.Format(dateLayout)
	}

	params := ResolveParameters(ep.Parameters, p.now(), date)
	if ep.Incremental != nil && !date.IsZero() && ep.Incremental.DateParameter != "" {
		if params == nil {
			params = make(map[string]interface{}, 1)
		}
		params[ep.Incremental.DateParameter] = date.Format(dateLayout)
	}

	result := p.Exec.Execute(Request{
		Method:      ep.Method,
		URL:         strings.TrimSuffix(p.Server, "/") + ep.URI,
		Query:       params,
		BearerToken: p.Token,
	})
	if !result.Success {
		outcome.Error = result.Error
		return outcome
	}

	rows := Normalize(result.ParsedContent)
	outcome.RecordsFetched = len(rows)

	if ep.TargetTable == "" || p.Writer == nil {
		log.WithFields(log.Fields{"endpoint": ep.Name, "records": len(rows)}).Info("no destination table, skipping persistence")
		outcome.Success = true
		return outcome
	}

	var extra map[string]interface{}
	if ep.Incremental != nil && !date.IsZero() {
		extra = map[string]interface{}{ep.Incremental.DateColumn: date}
	}

	if p.DryRun {
		outcome.RecordsWritten, outcome.RecordsFailed = countWritableRows(rows, ep, extra)
		outcome.Success = true
		return outcome
	}

	if err := p.Writer.EnsureTable(ep.TargetTable, ep.TableSchema); err != nil {
		outcome.Error = fmt.Sprintf("error ensuring destination table: %v", err)
		outcome.RecordsFailed = len(rows)
		return outcome
	}

	outcome.RecordsWritten, outcome.RecordsFailed = p.Writer.Upsert(ep.TargetTable, rows, ep.FieldMappings, ep.TableSchema, extra, p.now())
	outcome.Success = true
	return outcome
}

// countWritableRows runs coercion without touching the database, reporting
// how many rows a real run would write.
func countWritableRows(rows []Row, ep models.EndpointConfig, extra map[string]interface{}) (writable int, failed int) {
	for _, row := range rows {
		if _, err := coerceRow(row, ep.FieldMappings, ep.TableSchema, extra); err != nil {
			failed++
			continue
		}
		writable++
	}
	return writable, failed
}
