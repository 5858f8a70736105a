// Package warehouse loads CSV artifacts into BigQuery tables under an
// explicit write policy, retrying transient failures.
package warehouse

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/brightonpier/sales-etl/internal/artifact"
	"github.com/brightonpier/sales-etl/internal/etl"
	"github.com/brightonpier/sales-etl/internal/logger"
	"github.com/brightonpier/sales-etl/internal/retry"
)

// WritePolicy decides what happens to rows already in the destination.
type WritePolicy string

const (
	// Truncate replaces the whole table. This is the default for daily
	// re-runs: loading the same window twice leaves the table unchanged.
	Truncate WritePolicy = "TRUNCATE"

	// Append adds rows to the existing table.
	Append WritePolicy = "APPEND"
)

func (p WritePolicy) disposition() bigquery.TableWriteDisposition {
	if p == Append {
		return bigquery.WriteAppend
	}
	return bigquery.WriteTruncate
}

// TableRef names a destination table.
type TableRef struct {
	ProjectID string
	DatasetID string
	TableID   string
}

func (t TableRef) String() string {
	return t.ProjectID + "." + t.DatasetID + "." + t.TableID
}

// JobState is the terminal state of a load job.
type JobState string

const (
	JobSucceeded JobState = "SUCCEEDED"
	JobFailed    JobState = "FAILED"
)

// LoadJob describes one attempt to move an artifact into a table. It lives
// for the duration of a run; nothing persists it beyond logs.
type LoadJob struct {
	Destination TableRef
	Policy      WritePolicy
	Attempts    int
	State       JobState
	OutputRows  int64
	OutputBytes int64
}

// jobRunner submits one load job and waits for it. Split out so tests can
// exercise the retry loop without a BigQuery backend.
type jobRunner interface {
	runJob(ctx context.Context, path string, dest TableRef, schema bigquery.Schema, policy WritePolicy) (rows, bytes int64, err error)
}

// Loader loads artifacts into BigQuery.
type Loader struct {
	client *bigquery.Client
	runner jobRunner
	retry  retry.Policy
}

// NewLoader creates a loader for the given project. credentialsFile may be
// empty, in which case application default credentials apply; a path that
// does not exist is a MissingCredential error, caught here rather than as an
// opaque auth failure mid-run.
func NewLoader(ctx context.Context, projectID, credentialsFile string, policy retry.Policy) (*Loader, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("%w: credentials file %s: %v", etl.ErrMissingCredential, credentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewLoader: bigquery client: %w", err)
	}

	return &Loader{
		client: client,
		runner: &bigqueryRunner{client: client},
		retry:  policy,
	}, nil
}

// Close releases the underlying client.
func (l *Loader) Close() error {
	if l.client != nil {
		return l.client.Close()
	}
	return nil
}

// Load moves an artifact into dest under the declared schema and policy.
// The artifact header is checked against the schema first; a mismatch is
// fatal and never retried. Transient errors are retried under the loader's
// policy; on exhaustion the returned job is FAILED and the error wraps
// LoadFailed with the last underlying cause. The destination only changes
// on success: BigQuery's atomic load semantics guarantee a failed TRUNCATE
// attempt leaves the previous contents in place.
func (l *Loader) Load(ctx context.Context, art *artifact.Artifact, dest TableRef, schema bigquery.Schema, policy WritePolicy) (*LoadJob, error) {
	log := logger.FromContext(ctx)

	job := &LoadJob{Destination: dest, Policy: policy, State: JobFailed}

	if err := checkSchema(art.Path, schema); err != nil {
		return job, err
	}

	rp := l.retry
	rp.OnRetry = func(attempt int, err error) {
		log.Warn().Err(err).Int("attempt", attempt).Str("destination", dest.String()).Msg("retrying warehouse load")
	}

	err := rp.Do(ctx, func(ctx context.Context) error {
		job.Attempts++
		rows, bytes, err := l.runner.runJob(ctx, art.Path, dest, schema, policy)
		if err != nil {
			return err
		}
		job.OutputRows = rows
		job.OutputBytes = bytes
		return nil
	})
	if err != nil {
		return job, fmt.Errorf("%w: loading %s into %s after %d attempts: %v",
			etl.ErrLoadFailed, art.Path, dest, job.Attempts, err)
	}

	job.State = JobSucceeded
	log.Info().
		Str("destination", dest.String()).
		Str("policy", string(policy)).
		Int("attempts", job.Attempts).
		Int64("output_rows", job.OutputRows).
		Int64("output_bytes", job.OutputBytes).
		Msg("warehouse load succeeded")
	return job, nil
}

// checkSchema compares artifact columns to the declared schema by name and
// position. A mismatch is a SchemaMismatch, fatal and non-retryable.
func checkSchema(path string, schema bigquery.Schema) error {
	header, err := artifact.ReadHeader(path)
	if err != nil {
		return fmt.Errorf("%w: %v", etl.ErrSchemaMismatch, err)
	}

	if len(header) != len(schema) {
		return fmt.Errorf("%w: artifact has %d columns, schema declares %d",
			etl.ErrSchemaMismatch, len(header), len(schema))
	}
	for i, field := range schema {
		if header[i] != field.Name {
			return fmt.Errorf("%w: column %d is %q, schema declares %q",
				etl.ErrSchemaMismatch, i, header[i], field.Name)
		}
	}
	return nil
}

// bigqueryRunner is the real job submitter.
type bigqueryRunner struct {
	client *bigquery.Client
}

func (r *bigqueryRunner) runJob(ctx context.Context, path string, dest TableRef, schema bigquery.Schema, policy WritePolicy) (int64, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: opening artifact %s: %v", etl.ErrFileWriteFailed, path, err)
	}
	defer f.Close()

	source := bigquery.NewReaderSource(f)
	source.SourceFormat = bigquery.CSV
	source.SkipLeadingRows = 1
	source.Schema = schema

	loader := r.client.DatasetInProject(dest.ProjectID, dest.DatasetID).Table(dest.TableID).LoaderFrom(source)
	loader.WriteDisposition = policy.disposition()

	job, err := loader.Run(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("submitting load job: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("waiting for load job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, 0, fmt.Errorf("load job completed with error: %w", err)
	}

	if stats, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
		return stats.OutputRows, stats.OutputBytes, nil
	}
	return 0, 0, nil
}
