package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/warelink/wpmsync/cmd"
	lib "github.com/warelink/wpmsync/lib"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "0.3.0"

var opts cmd.Options

func main() {
	Execute()
}

func Execute() {
	rootCmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "n", false, "run the full pipeline but skip all destination writes, counting would-be-written rows")
	rootCmd.Flags().StringVar(&opts.Start, "start", "", "first date (yyyyMMdd) for incremental endpoints, overriding the resume point from the destination table")
	rootCmd.Flags().StringVar(&opts.End, "end", "", "last date (yyyyMMdd) for incremental endpoints, defaults to today")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

var rootCmd = &cobra.Command{
	Use:     "wpmsync [PATH_TO_CONFIG_JSON]",
	Version: version,
	Short:   "wpmsync - WPMS to reporting database synchronization",
	Long:    `wpmsync authenticates against a WPMS REST API, calls the configured endpoints and upserts the returned records into a relational reporting database.`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(command *cobra.Command, args []string) error {
		log.SetFormatter(&log.JSONFormatter{})

		// Default to config.json if no path is provided
		cfgPath := "config.json"
		if len(args) > 0 {
			cfgPath = args[0]
		} else {
			log.Info("no config JSON path provided, defaulting to config.json")
		}

		// .env may carry WPMS_PASSWORD; absence is fine
		_ = godotenv.Load()

		cfg, err := lib.ParseConfigJSON(cfgPath)
		if err != nil {
			log.WithFields(log.Fields{"Error": err}).Fatalln("Failed to parse config JSON")
			return fmt.Errorf("error parsing config JSON: %w", err)
		}

		if err := cmd.Sync(cfg, opts); err != nil {
			log.WithFields(log.Fields{"Error": err}).Fatalln("Failed to synchronize")
			return fmt.Errorf("failed to synchronize: %w", err)
		}

		return nil
	},
}
