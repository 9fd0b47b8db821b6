package onnx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibPathPrefersConfigured(t *testing.T) {
	path, err := LibPath("/opt/custom/libonnxruntime.so")
	require.NoError(t, err)
	assert.Equal(t, "/opt/custom/libonnxruntime.so", path)
}

func testDownloader(client *http.Client) *Downloader {
	return &Downloader{Client: client, MaxRetries: 2, Backoff: time.Millisecond}
}

func TestEnsureModelDownloadsWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("onnx-bytes"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "cache")
	path, err := testDownloader(srv.Client()).EnsureModel(context.Background(), srv.URL, dir, "model.onnx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "model.onnx"), path)
	assert.Equal(t, int32(2), calls.Load())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "onnx-bytes", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEnsureModelSkipsExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.onnx"), []byte("cached"), 0o644))

	path, err := testDownloader(http.DefaultClient).EnsureModel(context.Background(), "http://127.0.0.1:0/unused", dir, "model.onnx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "model.onnx"), path)
}

func TestEnsureModelFailsWithoutURL(t *testing.T) {
	_, err := testDownloader(http.DefaultClient).EnsureModel(context.Background(), "", t.TempDir(), "model.onnx")
	assert.Error(t, err)
}

func TestEnsureModelGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testDownloader(srv.Client()).EnsureModel(context.Background(), srv.URL, t.TempDir(), "model.onnx")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}
