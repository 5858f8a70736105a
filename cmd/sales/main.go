package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/brightonpier/sales-etl/internal/artifact"
	"github.com/brightonpier/sales-etl/internal/config"
	"github.com/brightonpier/sales-etl/internal/etl"
	"github.com/brightonpier/sales-etl/internal/gcsarchive"
	"github.com/brightonpier/sales-etl/internal/logger"
	"github.com/brightonpier/sales-etl/internal/pipeline"
	"github.com/brightonpier/sales-etl/internal/retry"
	"github.com/brightonpier/sales-etl/internal/sales"
	"github.com/brightonpier/sales-etl/internal/sumup"
	"github.com/brightonpier/sales-etl/internal/warehouse"
)

// The reporting period opens with the first trading day; the till has no
// earlier data.
const defaultFrom = "2023-12-03"

const artifactPrefix = "TotalSales"

func main() {
	log := logger.New()

	configPath := flag.String("config", "", "path to an optional YAML config file")
	from := flag.String("from", defaultFrom, "window start date (YYYY-MM-DD)")
	to := flag.String("to", "", "window end date (YYYY-MM-DD), defaults to today")
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
	if cfg.SumUp.APIKey == "" {
		log.Fatal().Msg("SumUp API key is not configured")
	}

	// Takings are reported in the shop's local day, so the window boundaries
	// and all derived dates use the same zone.
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		log.Fatal().Err(err).Msg("loading timezone failed")
	}

	window, err := etl.ParseWindow(*from, *to, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid run window")
	}

	client := sumup.NewClient(sumup.Config{
		BaseURL:           cfg.SumUp.BaseURL,
		APIKey:            cfg.SumUp.APIKey,
		RequestsPerSecond: 4,
		Retry:             retry.Default(),
	})

	loader, err := warehouse.NewLoader(ctx, cfg.Warehouse.ProjectID, cfg.Warehouse.CredentialsFile, retry.Default())
	if err != nil {
		log.Fatal().Err(err).Msg("creating warehouse loader failed")
	}
	defer loader.Close()

	normalizer := sales.NewNormalizer(loc)
	dest := warehouse.TableRef{
		ProjectID: cfg.Warehouse.ProjectID,
		DatasetID: cfg.Warehouse.SalesDataset,
		TableID:   cfg.Warehouse.SalesTable,
	}

	runner := &pipeline.Runner[sumup.Transaction, sales.Row]{
		Source: "sales",
		Window: window,
		Fetch:  client.Fetch,
		Normalize: func(records []sumup.Transaction, w etl.Window) ([]sales.Row, int) {
			rows, report := normalizer.Normalize(records, w)
			return rows, report.Input - report.Output
		},
		WriteRows: func(rows []sales.Row) (*artifact.Artifact, error) {
			return artifact.Write(rows, cfg.Artifacts.Dir, artifactPrefix, time.Now().In(loc))
		},
		Load: func(ctx context.Context, art *artifact.Artifact) (*warehouse.LoadJob, error) {
			return loader.Load(ctx, art, dest, warehouse.SalesSchema(), writePolicy)
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
		log.Error().Err(err).Str("state", string(report.State)).Msg("sales ingestion failed")
		os.Exit(1)
	}
	log.Info().
		Str("state", string(report.State)).
		Int("fetched", report.Fetched).
		Int("rows", report.Rows).
		Msg("sales ingestion finished")
}
