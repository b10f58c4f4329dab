// Package media is the evidence upload gateway. Incoming attachments are
// first staged as temp files, then pushed to a durable store that hands back
// a public URL.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// ErrTooLarge is returned by Stage when a part exceeds the size limit.
var ErrTooLarge = errors.New("file exceeds upload size limit")

// Pending is an attachment that has been received but not uploaded yet.
type Pending struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

// Uploaded is the durable location of an attachment.
type Uploaded struct {
	URL      string
	FileType string
}

// Uploader stores one staged file and returns its public URL.
type Uploader interface {
	Name() string
	Upload(ctx context.Context, f Pending) (Uploaded, error)
}

// Stage copies a multipart part into a temp file under dir.
func Stage(dir string, fh *multipart.FileHeader, maxBytes int64) (Pending, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return Pending{}, fmt.Errorf("%s: %w", fh.Filename, ErrTooLarge)
	}

	src, err := fh.Open()
	if err != nil {
		return Pending{}, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(dir, "evidence-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return Pending{}, fmt.Errorf("creating temp file: %w", err)
	}

	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst.Name())
		return Pending{}, fmt.Errorf("staging %s: %w", fh.Filename, err)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return Pending{
		Path:        dst.Name(),
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        n,
	}, nil
}

// Discard removes the temp file behind every pending attachment. Missing
// files are ignored.
func Discard(files ...Pending) {
	for _, f := range files {
		if f.Path == "" {
			continue
		}
		_ = os.Remove(f.Path)
	}
}
