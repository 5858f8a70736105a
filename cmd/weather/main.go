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
	"github.com/brightonpier/sales-etl/internal/warehouse"
	"github.com/brightonpier/sales-etl/internal/weather"
)

const defaultFrom = "2023-12-03"

const artifactPrefix = "Weather"

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
	if cfg.Weather.APIKey == "" {
		log.Fatal().Msg("weather API key is not configured")
	}

	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		log.Fatal().Err(err).Msg("loading timezone failed")
	}

	window, err := etl.ParseWindow(*from, *to, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid run window")
	}

	client := weather.NewClient(weather.Config{
		BaseURL:   cfg.Weather.BaseURL,
		APIKey:    cfg.Weather.APIKey,
		Latitude:  cfg.Weather.Latitude,
		Longitude: cfg.Weather.Longitude,
		Retry:     retry.Default(),
	})

	loader, err := warehouse.NewLoader(ctx, cfg.Warehouse.ProjectID, cfg.Warehouse.CredentialsFile, retry.Default())
	if err != nil {
		log.Fatal().Err(err).Msg("creating warehouse loader failed")
	}
	defer loader.Close()

	dest := warehouse.TableRef{
		ProjectID: cfg.Warehouse.ProjectID,
		DatasetID: cfg.Warehouse.WeatherDataset,
		TableID:   cfg.Warehouse.WeatherTable,
	}

	runner := &pipeline.Runner[weather.Observation, weather.Row]{
		Source: "weather",
		Window: window,
		Fetch:  client.Fetch,
		Normalize: func(observations []weather.Observation, w etl.Window) ([]weather.Row, int) {
			rows, report := weather.Normalize(observations, w)
			return rows, report.Input - report.Output
		},
		WriteRows: func(rows []weather.Row) (*artifact.Artifact, error) {
			return artifact.Write(rows, cfg.Artifacts.Dir, artifactPrefix, time.Now().In(loc))
		},
		Load: func(ctx context.Context, art *artifact.Artifact) (*warehouse.LoadJob, error) {
			return loader.Load(ctx, art, dest, warehouse.WeatherSchema(), writePolicy)
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
		log.Error().Err(err).Str("state", string(report.State)).Msg("weather ingestion failed")
		os.Exit(1)
	}
	log.Info().
		Str("state", string(report.State)).
		Int("fetched", report.Fetched).
		Int("rows", report.Rows).
		Msg("weather ingestion finished")
}
