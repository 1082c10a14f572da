package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileObjectStorage_UploadAndServe(t *testing.T) {
	root := t.TempDir()
	store := NewFileObjectStorage(root, "http://localhost:8080/")

	name, err := store.Upload(context.Background(), "menuimg", "menu-images/abc.png", strings.NewReader("image"))
	require.NoError(t, err)
	assert.Equal(t, "menu-images/abc.png", name)

	raw, err := os.ReadFile(filepath.Join(root, "menuimg", "menu-images", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "image", string(raw))

	url := store.PublicURL("menuimg", name)
	assert.Equal(t, "http://localhost:8080/storage/v1/object/public/menuimg/menu-images/abc.png", url)

	srv := httptest.NewServer(store.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL + PublicObjectPrefix + "menuimg/menu-images/abc.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image", string(body))
}

func TestFileObjectStorage_RejectsEscapingPaths(t *testing.T) {
	store := NewFileObjectStorage(t.TempDir(), "")

	for _, tc := range []struct{ bucket, name string }{
		{"menuimg", "../secret"},
		{"menuimg", ""},
		{"../etc", "passwd"},
		{"", "x.png"},
	} {
		_, err := store.Upload(context.Background(), tc.bucket, tc.name, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidObjectPath, "%s/%s", tc.bucket, tc.name)
	}
}

func TestFileObjectStorage_CancelledUpload(t *testing.T) {
	root := t.TempDir()
	store := NewFileObjectStorage(root, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Upload(ctx, "buktibyr", "o1_1.png", strings.NewReader("proof"))
	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(filepath.Join(root, "buktibyr", "o1_1.png"))
	assert.True(t, os.IsNotExist(statErr))
}
