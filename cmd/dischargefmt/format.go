package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"stealthcompany.com/dischargeformat/internal/config"
	"stealthcompany.com/dischargeformat/internal/couchbase"
	"stealthcompany.com/dischargeformat/internal/metrics"
	"stealthcompany.com/dischargeformat/internal/orchestrator"
	"stealthcompany.com/dischargeformat/internal/pgstage"
	"stealthcompany.com/dischargeformat/pkg/zerolog_config"
)

const appName = "dischargefmt"

var flagKeys = map[string]string{
	"input":          "SYNTHEA_OUTPUT_DIR",
	"output":         "OUTPUT_DIR",
	"settings":       "SYNTHEA_SETTINGS_FILE",
	"format":         "FORMAT_TYPE",
	"encounter-type": "ENCOUNTER_TYPE",
	"verbose":        "VERBOSE",
	"yearly":         "YEARLY",
	"year-range":     "YEAR_RANGE",
	"study":          "STUDY",
	"seed":           "SEED",
	"mapping-dir":    "MAPPING_DIR",
	"parquet":        "PARQUET_EXPORT",
	"log-level":      "LOG_LEVEL",
}

func formatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Assemble and render discharge records from generator output",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []config.Option
			for name, key := range flagKeys {
				opts = append(opts, config.WithFlag(key, cmd.Flags().Lookup(name)))
			}
			cfg, err := config.Load(opts...)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runFormat(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.String("input", "", "generator output directory (SYNTHEA_OUTPUT_DIR)")
	f.String("output", "", "directory receiving formatted_data (OUTPUT_DIR)")
	f.String("settings", "", "generator settings file (SYNTHEA_SETTINGS_FILE)")
	f.String("format", "", "HCAI_Inpatient_CSV|HCAI_Inpatient_FW|HCAI_PDD_CSV|HCAI_PDD_FW|HCAI_PDD_SAS|all (FORMAT_TYPE)")
	f.String("encounter-type", "", "comma separated encounter classes or all, default inpatient (ENCOUNTER_TYPE)")
	f.Bool("verbose", false, "include raw list columns (VERBOSE)")
	f.Bool("yearly", false, "write one file per discharge year (YEARLY)")
	f.String("year-range", "", "YYYY-YYYY discharge years (YEAR_RANGE)")
	f.String("study", "", "study preset, e.g. LARC (STUDY)")
	f.String("seed", "", "seed for synthetic attributes (SEED)")
	f.String("mapping-dir", "", "directory of code table overrides (MAPPING_DIR)")
	f.Bool("parquet", false, "also export field values as parquet (PARQUET_EXPORT)")
	f.String("log-level", "", "log level (LOG_LEVEL)")
	return cmd
}

func runFormat(parent context.Context, cfg *config.Config) error {
	closer, err := zerolog_config.Startup(zerolog_config.Options{
		App:              appName,
		Level:            cfg.LogLevel,
		LogDir:           cfg.LogDir,
		ElasticsearchURL: cfg.ElasticsearchURL,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sh := orchestrator.NewSignalHandler()
	defer sh.Stop()
	sh.HandleSignals(ctx, cancel)

	seed, derived := cfg.ResolveSeed(time.Now)
	if derived {
		log.Info().Int64("seed", seed).Msg("SEED not set, derived from the clock; set SEED to reproduce this run")
	}

	set := metrics.New()
	tracker := &metrics.Tracker{}
	if cfg.EnableSystemMetrics {
		go metrics.NewSystemCollector(set.Registry).Run(ctx, 15*time.Second)
	}
	if cfg.MetricsPort != "" {
		srv := metrics.NewServer(":"+cfg.MetricsPort, set, tracker)
		srv.Start()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Metrics server shutdown failed")
			}
		}()
	}

	runner := &orchestrator.Runner{
		Config:  cfg,
		Seed:    seed,
		Metrics: set,
		Tracker: tracker,
	}

	if cfg.CouchbaseURL != "" {
		client, err := couchbase.NewClient(couchbase.Config{
			URL:      cfg.CouchbaseURL,
			Username: cfg.CouchbaseUsername,
			Password: cfg.CouchbasePassword,
			Bucket:   cfg.CouchbaseBucket,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		runner.Registry = client
	}

	if cfg.StageDatabaseURL != "" {
		stager, err := pgstage.Connect(ctx, cfg.StageDatabaseURL)
		if err != nil {
			return err
		}
		defer stager.Close()
		if err := stager.EnsureSchema(ctx); err != nil {
			return err
		}
		runner.Stager = stager
	}

	res, runErr := runner.Run(ctx)
	publishMetrics(cfg, runner.RunID, set)
	if runErr != nil {
		return runErr
	}
	log.Info().Str("runId", res.RunID).Strs("files", res.Files).Msg("Done")
	return nil
}

// publishMetrics writes the textfile and pushes to the gateway when configured.
// Failures are logged; they never fail the run.
func publishMetrics(cfg *config.Config, runID string, set *metrics.Set) {
	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile, set.Registry); err != nil {
			log.Warn().Err(err).Msg("Failed to write metrics textfile")
		}
	}
	if cfg.PushgatewayURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metrics.Push(ctx, cfg.PushgatewayURL, runID, set.Registry); err != nil {
			log.Warn().Err(err).Msg("Failed to push metrics")
		}
	}
}
