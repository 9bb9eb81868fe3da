package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/logger"
	"log/slog"
)

const defaultTimeout = 10 * time.Second

// Downloader fetches remote images to local files. Every download is bounded
// by the configured timeout so a stalled CDN cannot hang a try-on cycle.
type Downloader struct {
	client  *http.Client
	timeout time.Duration
}

// New builds a Downloader. A non-positive timeout falls back to 10 seconds.
func New(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        16,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Downloader{
		client:  &http.Client{Transport: transport},
		timeout: timeout,
	}
}

// Fetch downloads url into dest. The destination directory must already
// exist. On any failure the partially written file is removed.
func (d *Downloader) Fetch(ctx context.Context, url, dest string) error {
	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("fetch: build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		logger.Error(ctx, "service.fetch", "fetch.fail",
			slog.String("status", "fail"),
			slog.String("url", logger.SanitizeLimit(url, 256)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Error(ctx, "service.fetch", "fetch.fail",
			slog.String("status", "fail"),
			slog.String("url", logger.SanitizeLimit(url, 256)),
			slog.Int("http_code", resp.StatusCode),
		)
		return fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("fetch: create %s: %w", dest, err)
	}

	n, err := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		logger.Error(ctx, "service.fetch", "fetch.fail",
			slog.String("status", "fail"),
			slog.String("url", logger.SanitizeLimit(url, 256)),
			slog.String("dest", dest),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("fetch: write %s: %w", dest, err)
	}

	logger.Debug(ctx, "service.fetch", "fetch.done",
		slog.String("status", "ok"),
		slog.String("dest", filepath.Base(dest)),
		slog.Int64("bytes", n),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	)
	return nil
}
