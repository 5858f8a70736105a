// Package pipeline composes fetch, normalize, write and load into one
// ingestion cycle and decides whether the run succeeded.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/brightonpier/sales-etl/internal/artifact"
	"github.com/brightonpier/sales-etl/internal/etl"
	"github.com/brightonpier/sales-etl/internal/logger"
	"github.com/brightonpier/sales-etl/internal/warehouse"
)

// State names where a run is in its lifecycle. A run moves strictly
// Init -> Fetching -> Normalizing -> Writing -> Loading -> Done; Aborted is
// terminal and reachable from any state on a fatal error.
type State string

const (
	StateInit        State = "INIT"
	StateFetching    State = "FETCHING"
	StateNormalizing State = "NORMALIZING"
	StateWriting     State = "WRITING"
	StateLoading     State = "LOADING"
	StateDone        State = "DONE"
	StateAborted     State = "ABORTED"
)

// Runner wires one ingestion cycle. R is the raw record type produced by
// the source, T the normalized row type written to the artifact. Each stage
// is a capability handed in by the caller; the runner owns nothing but the
// sequencing. A Runner is single-use state for one invocation: concurrent
// runs against the same destination under TRUNCATE must be serialized by
// the scheduler.
type Runner[R, T any] struct {
	// Source names the pipeline in logs, e.g. "sales".
	Source string

	// Window is the inclusive date range this run covers.
	Window etl.Window

	// Fetch materializes the raw result set for the window.
	Fetch func(ctx context.Context, window etl.Window) ([]R, error)

	// Normalize filters, deduplicates and projects raw records. The int is
	// the number of records dropped at row granularity; drops are absorbed,
	// never fatal.
	Normalize func(records []R, window etl.Window) ([]T, int)

	// WriteRows persists the normalized rows and returns the artifact.
	WriteRows func(rows []T) (*artifact.Artifact, error)

	// Load moves the artifact into the warehouse.
	Load func(ctx context.Context, art *artifact.Artifact) (*warehouse.LoadJob, error)

	// Archive, if set, copies the artifact to durable storage after a
	// successful load. Archive failures are logged, not fatal.
	Archive func(ctx context.Context, art *artifact.Artifact) error
}

// Report is the outcome of one run. Runs are not persisted; the report is
// for logging and the process exit decision.
type Report struct {
	RunID    string
	Source   string
	State    State
	Fetched  int
	Dropped  int
	Rows     int
	Artifact *artifact.Artifact
	Job      *warehouse.LoadJob
}

// Run executes the cycle. It returns a non-nil report in every case; err is
// non-nil exactly when the report state is Aborted. An aborted run leaves
// any partial artifact on disk for inspection.
func (r *Runner[R, T]) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:  uuid.NewString(),
		Source: r.Source,
		State:  StateInit,
	}

	log := logger.WithRun(logger.FromContext(ctx), report.RunID, r.Source)
	ctx = logger.WithContext(ctx, log)

	if err := r.validate(); err != nil {
		return abort(report, log, err)
	}
	log.Info().Str("window", r.Window.String()).Msg("run starting")

	report.State = StateFetching
	records, err := r.Fetch(ctx, r.Window)
	if err != nil {
		return abort(report, log, fmt.Errorf("fetch: %w", err))
	}
	report.Fetched = len(records)

	if len(records) == 0 {
		report.State = StateDone
		log.Info().Msg("no data for window")
		return report, nil
	}

	report.State = StateNormalizing
	rows, dropped := r.Normalize(records, r.Window)
	report.Rows = len(rows)
	report.Dropped = dropped
	log.Info().Int("rows", len(rows)).Int("dropped", dropped).Msg("normalized records")

	report.State = StateWriting
	art, err := r.WriteRows(rows)
	if err != nil {
		return abort(report, log, fmt.Errorf("write: %w", err))
	}
	report.Artifact = art
	log.Info().Str("path", art.Path).Int64("bytes", art.Bytes).Int("rows", art.Rows).Msg("artifact written")

	report.State = StateLoading
	job, err := r.Load(ctx, art)
	report.Job = job
	if err != nil {
		return abort(report, log, fmt.Errorf("load: %w", err))
	}

	if r.Archive != nil {
		if err := r.Archive(ctx, art); err != nil {
			log.Warn().Err(err).Str("path", art.Path).Msg("artifact archival failed")
		}
	}

	report.State = StateDone
	log.Info().Msg("run complete")
	return report, nil
}

// validate checks the window and capability handles before any work starts.
// A missing handle aborts the run with a MissingCredential error.
func (r *Runner[R, T]) validate() error {
	if r.Window.Start.IsZero() || r.Window.End.IsZero() {
		return fmt.Errorf("%w: run window not set", etl.ErrMissingCredential)
	}
	if r.Window.Start.After(r.Window.End) {
		return fmt.Errorf("%w: run window start after end", etl.ErrMissingCredential)
	}
	if r.Fetch == nil {
		return fmt.Errorf("%w: no fetcher configured", etl.ErrMissingCredential)
	}
	if r.Normalize == nil || r.WriteRows == nil {
		return fmt.Errorf("%w: pipeline stages not configured", etl.ErrMissingCredential)
	}
	if r.Load == nil {
		return fmt.Errorf("%w: no warehouse client configured", etl.ErrMissingCredential)
	}
	return nil
}

func abort(report *Report, log zerolog.Logger, err error) (*Report, error) {
	from := report.State
	report.State = StateAborted
	log.Error().Err(err).Str("failed_state", string(from)).Msg("run aborted")
	return report, err
}
