package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

type GCSConfig struct {
	Bucket          string
	EmulatorHost    string
	CredentialsFile string
}

type gcsReader struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

// NewGCSReader reads documents from one bucket. With EmulatorHost set the
// client talks to a fake-gcs-server without authentication.
func NewGCSReader(ctx context.Context, cfg GCSConfig, log *logger.Logger) (Reader, func() error, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, nil, fmt.Errorf("missing SOURCE_BUCKET")
	}
	var opts []option.ClientOption
	if host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		opts = append(opts, option.WithoutAuthentication())
	} else {
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		opts = append(opts, option.WithScopes(storage.ScopeReadOnly))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	log = log.With("service", "GCSSourceReader")
	log.Info("Source storage initialized", "bucket", bucket, "emulator", cfg.EmulatorHost != "")
	return &gcsReader{log: log, client: client, bucket: bucket}, client.Close, nil
}

func (g *gcsReader) Kind() string { return "gcs" }

func (g *gcsReader) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	key := strings.TrimPrefix(strings.TrimSpace(path), "gs://"+g.bucket+"/")
	key = strings.TrimPrefix(key, "/")
	rc, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", apperrors.ErrNotFound, g.bucket, key)
		}
		g.log.Warn("Source object open failed", "key", key, "error", err)
		return nil, fmt.Errorf("open gs://%s/%s: %w", g.bucket, key, err)
	}
	return rc, nil
}
