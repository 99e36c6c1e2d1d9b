// Package media bridges Telegram file content to Discord: webhook posting
// needs raw bytes, so remote files are staged in scoped temp files.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

// Downloader fetches remote files into uniquely named temp files.
type Downloader struct {
	client *http.Client
	dir    string
	logger *slog.Logger
}

// NewDownloader creates a downloader writing into the OS temp directory.
func NewDownloader(client *http.Client, logger *slog.Logger) *Downloader {
	return &Downloader{client: client, dir: os.TempDir(), logger: logger}
}

// Download fetches rawURL into a temp file and returns its path. The
// original extension is preserved so receivers can sniff the type from
// the filename.
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	name := filepath.Join(d.dir, "chatbridge-"+uuid.NewString()+fileExt(rawURL))
	f, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

// Cleanup removes a downloaded temp file. Safe on "" and on already
// removed files; failures are logged, never returned.
func (d *Downloader) Cleanup(p string) {
	if p == "" {
		return
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("temp file cleanup failed", "path", p, "err", err)
	}
}

// fileExt extracts the extension from a URL path, ignoring the query.
func fileExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}
