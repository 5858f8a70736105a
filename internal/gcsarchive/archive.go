// Package gcsarchive copies finished CSV artifacts into a Cloud Storage
// bucket so reruns that overwrite the local file still leave a trail.
package gcsarchive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/brightonpier/sales-etl/internal/artifact"
	"github.com/brightonpier/sales-etl/internal/logger"
)

const uploadTimeout = 2 * time.Minute

// Archiver uploads artifacts to a fixed bucket and object prefix.
type Archiver struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewArchiver builds an archiver for the given bucket. With an empty
// credentials file it falls back to Application Default Credentials.
func NewArchiver(ctx context.Context, bucket, prefix, credentialsFile string) (*Archiver, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Archiver{client: client, bucket: bucket, prefix: prefix}, nil
}

// Close releases the underlying storage client.
func (a *Archiver) Close() error {
	return a.client.Close()
}

// Archive uploads the artifact under prefix/<basename>. The object name
// carries the run day, so a rerun for the same day replaces the object.
func (a *Archiver) Archive(ctx context.Context, art *artifact.Artifact) error {
	f, err := os.Open(art.Path)
	if err != nil {
		return fmt.Errorf("open artifact %q: %w", art.Path, err)
	}
	defer f.Close()

	objectName := path.Join(a.prefix, path.Base(art.Path))

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "text/csv"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy artifact to gcs: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("bucket", a.bucket).
		Str("object", objectName).
		Int64("bytes", art.Bytes).
		Msg("artifact archived")
	return nil
}
