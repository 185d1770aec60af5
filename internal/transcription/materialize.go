package transcription

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
)

func isRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// materialize returns a local path for locator. Remote locators are downloaded
// into a temp file; the returned cleanup removes it and is safe to call always.
func (c *Client) materialize(ctx context.Context, locator string) (string, func(), error) {
	noop := func() {}

	if !isRemote(locator) {
		if _, err := os.Stat(locator); err != nil {
			return "", noop, fmt.Errorf("audio file not found: %w", err)
		}
		return locator, noop, nil
	}

	ext := ""
	if u, err := url.Parse(locator); err == nil {
		ext = path.Ext(u.Path)
	}

	tmp, err := os.CreateTemp(c.tempDir, "transcribe-*"+ext)
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("Failed to remove temp audio file",
				slog.String("path", tmp.Name()),
				slog.Any("error", err),
			)
		}
	}

	if err := c.download(ctx, locator, tmp); err != nil {
		cleanup()
		return "", noop, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("failed to flush temp file: %w", err)
	}

	return tmp.Name(), cleanup, nil
}

func (c *Client) download(ctx context.Context, locator string, dst io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to download audio: status %d", resp.StatusCode)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("failed to download audio: %w", err)
	}

	return nil
}
