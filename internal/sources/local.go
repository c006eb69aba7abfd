package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
)

type localReader struct {
	root string
}

// NewLocalReader serves documents from a directory. Paths are resolved
// relative to root and may not escape it.
func NewLocalReader(root string) (Reader, error) {
	abs, err := filepath.Abs(strings.TrimSpace(root))
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}
	return &localReader{root: abs}, nil
}

func (l *localReader) Kind() string { return "local" }

func (l *localReader) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := filepath.Clean("/" + filepath.ToSlash(path))
	full := filepath.Join(l.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(l.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: path %q escapes source root", apperrors.ErrInvalidArgument, path)
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: source %s", apperrors.ErrNotFound, path)
		}
		return nil, err
	}
	return f, nil
}
