package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// PublicObjectPrefix is the URL path under which stored objects are served.
const PublicObjectPrefix = "/storage/v1/object/public/"

var ErrInvalidObjectPath = errors.New("invalid object path")

// FileObjectStorage keeps bucket objects under a local directory.
type FileObjectStorage struct {
	root    string
	baseURL string
}

func NewFileObjectStorage(root, baseURL string) *FileObjectStorage {
	return &FileObjectStorage{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *FileObjectStorage) objectPath(bucket, name string) (string, error) {
	clean := path.Clean("/" + name)
	if bucket == "" || strings.ContainsAny(bucket, `/\.`) || clean == "/" || name != strings.TrimPrefix(clean, "/") {
		return "", fmt.Errorf("%w: %s/%s", ErrInvalidObjectPath, bucket, name)
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(clean)), nil
}

func (s *FileObjectStorage) Upload(ctx context.Context, bucket, name string, r io.Reader) (string, error) {
	dst, err := s.objectPath(bucket, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create bucket dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, readerWithContext(ctx, r)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store object: %w", err)
	}
	return name, nil
}

func (s *FileObjectStorage) PublicURL(bucket, name string) string {
	return s.baseURL + PublicObjectPrefix + bucket + "/" + strings.TrimPrefix(name, "/")
}

// Handler serves stored objects below PublicObjectPrefix.
func (s *FileObjectStorage) Handler() http.Handler {
	return http.StripPrefix(PublicObjectPrefix, http.FileServer(http.Dir(s.root)))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
