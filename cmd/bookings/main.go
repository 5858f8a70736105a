package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/brightonpier/sales-etl/internal/artifact"
	"github.com/brightonpier/sales-etl/internal/bookings"
	"github.com/brightonpier/sales-etl/internal/config"
	"github.com/brightonpier/sales-etl/internal/etl"
	"github.com/brightonpier/sales-etl/internal/gcsarchive"
	"github.com/brightonpier/sales-etl/internal/logger"
	"github.com/brightonpier/sales-etl/internal/pipeline"
	"github.com/brightonpier/sales-etl/internal/retry"
	"github.com/brightonpier/sales-etl/internal/warehouse"
)

const artifactPrefix = "Bookings"

// defaultSheetEpoch is the day the bookings tab started collecting entries.
const defaultSheetEpoch = "2023-12-03"

func main() {
	log := logger.New()

	configPath := flag.String("config", "", "path to an optional YAML config file")
	policy := flag.String("write-policy", string(warehouse.Truncate), "warehouse write policy: TRUNCATE or APPEND")
	flag.Parse()

	writePolicy := warehouse.WritePolicy(*policy)
	if writePolicy != warehouse.Truncate && writePolicy != warehouse.Append {
		log.Fatal().Str("write_policy", *policy).Msg("unknown write policy")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration failed")
	}
	if cfg.Bookings.SpreadsheetID == "" {
		log.Fatal().Msg("bookings spreadsheet ID is not configured")
	}

	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		log.Fatal().Err(err).Msg("loading timezone failed")
	}

	// The sheet holds every booking since the tab was created; the run always
	// ingests it whole and the window only frames the run in logs.
	window, err := etl.ParseWindow(defaultSheetEpoch, "", loc)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid run window")
	}

	source, err := bookings.NewSource(ctx, cfg.Bookings.SpreadsheetID, cfg.Bookings.SheetName, cfg.Warehouse.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("creating sheets source failed")
	}

	loader, err := warehouse.NewLoader(ctx, cfg.Warehouse.ProjectID, cfg.Warehouse.CredentialsFile, retry.Default())
	if err != nil {
		log.Fatal().Err(err).Msg("creating warehouse loader failed")
	}
	defer loader.Close()

	dest := warehouse.TableRef{
		ProjectID: cfg.Warehouse.ProjectID,
		DatasetID: cfg.Warehouse.BookingsDataset,
		TableID:   cfg.Warehouse.BookingsTable,
	}

	runner := &pipeline.Runner[bookings.Record, bookings.Row]{
		Source: "bookings",
		Window: window,
		Fetch:  source.Fetch,
		Normalize: func(records []bookings.Record, w etl.Window) ([]bookings.Row, int) {
			rows, report := bookings.Clean(records, w)
			return rows, report.Input - report.Output
		},
		WriteRows: func(rows []bookings.Row) (*artifact.Artifact, error) {
			return artifact.Write(rows, cfg.Artifacts.Dir, artifactPrefix, time.Now().In(loc))
		},
		Load: func(ctx context.Context, art *artifact.Artifact) (*warehouse.LoadJob, error) {
			return loader.Load(ctx, art, dest, warehouse.BookingsSchema(), writePolicy)
		},
	}

	if cfg.Archive.Bucket != "" {
		archiver, err := gcsarchive.NewArchiver(ctx, cfg.Archive.Bucket, cfg.Archive.Prefix, cfg.Warehouse.CredentialsFile)
		if err != nil {
			log.Warn().Err(err).Msg("archiver unavailable, continuing without archival")
		} else {
			defer archiver.Close()
			runner.Archive = archiver.Archive
		}
	}

	report, err := runner.Run(ctx)
	if err != nil {
		log.Error().Err(err).Str("state", string(report.State)).Msg("bookings ingestion failed")
		os.Exit(1)
	}
	log.Info().
		Str("state", string(report.State)).
		Int("fetched", report.Fetched).
		Int("rows", report.Rows).
		Msg("bookings ingestion finished")
}
