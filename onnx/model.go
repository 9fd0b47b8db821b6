package onnx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"
)

// Downloader fetches model files into the local cache directory.
type Downloader struct {
	Client     *http.Client
	MaxRetries uint64
	Backoff    time.Duration
}

func NewDownloader() *Downloader {
	return &Downloader{
		Client:     &http.Client{Timeout: 10 * time.Minute},
		MaxRetries: 3,
		Backoff:    time.Second,
	}
}

// EnsureModel returns dir/name, downloading it from url first when it is missing.
func (d *Downloader) EnsureModel(ctx context.Context, url, dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if url == "" {
		return "", fmt.Errorf("model %s not found and no model_url configured", path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	slog.Info("Downloading model", slog.String("url", url), slog.String("path", path))
	b := retry.WithMaxRetries(d.MaxRetries, retry.NewFibonacci(d.Backoff))
	if err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := d.download(ctx, url, path)
		if err != nil {
			slog.Warn("Model download attempt failed", slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	return path, nil
}

func (d *Downloader) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	// Write next to the target so a partial file is never picked up as the model.
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
