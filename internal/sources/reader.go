package sources

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
)

// Reader opens transcript and slide documents by their storage path.
type Reader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Kind() string
}

// DefaultMaxBytes caps how much of one document is handed to the generator.
const DefaultMaxBytes = 512 * 1024

// ReadText reads up to maxBytes of the document as text. Invalid UTF-8 at the
// cut point is trimmed.
func ReadText(ctx context.Context, r Reader, path string, maxBytes int) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty storage path", apperrors.ErrInvalidArgument)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	rc, err := r.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	b, err := io.ReadAll(io.LimitReader(rc, int64(maxBytes)))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return string(b), nil
}

// LoadAll fetches every document concurrently and returns text keyed by id.
// Any failure cancels the remaining reads.
func LoadAll(ctx context.Context, r Reader, docs []*types.SourceDocument, maxBytes int, concurrency int) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(docs))
	if len(docs) == 0 {
		return out, nil
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	texts := make([]string, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, d := range docs {
		i, d := i, d
		if d == nil {
			continue
		}
		g.Go(func() error {
			txt, err := ReadText(gctx, r, d.StoragePath, maxBytes)
			if err != nil {
				return fmt.Errorf("source %s: %w", d.ID, err)
			}
			texts[i] = txt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, d := range docs {
		if d != nil {
			out[d.ID] = texts[i]
		}
	}
	return out, nil
}
