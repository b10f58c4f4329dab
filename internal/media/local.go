package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Local keeps evidence on disk under dir and serves it below baseURL/uploads.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates dir if needed.
func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir %s: %w", dir, err)
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) Name() string { return "local" }

// Dir is the directory the files are written to.
func (l *Local) Dir() string { return l.dir }

func (l *Local) Upload(ctx context.Context, f Pending) (Uploaded, error) {
	if err := ctx.Err(); err != nil {
		return Uploaded{}, err
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(f.Filename))

	src, err := os.Open(f.Path)
	if err != nil {
		return Uploaded{}, fmt.Errorf("opening staged file: %w", err)
	}
	defer src.Close()

	dstPath := filepath.Join(l.dir, name)
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Uploaded{}, fmt.Errorf("creating %s: %w", dstPath, err)
	}

	_, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dstPath)
		return Uploaded{}, fmt.Errorf("writing %s: %w", dstPath, err)
	}

	return Uploaded{URL: l.baseURL + "/uploads/" + name, FileType: f.ContentType}, nil
}
