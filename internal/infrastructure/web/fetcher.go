package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"research-agent/internal/application/port/output"
)

var _ output.FetcherPort = (*Fetcher)(nil)

const maxBodyBytes = 2 << 20

type FetcherConfig struct {
	UserAgent  string
	MaxChars   int
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Fetcher struct {
	client    *http.Client
	userAgent string
	clean     CleanConfig
	logger    output.LoggerPort
}

func NewFetcher(cfg FetcherConfig, logger output.LoggerPort) *Fetcher {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	clean := DefaultCleanConfig
	if cfg.MaxChars > 0 {
		clean.MaxOutputSize = cfg.MaxChars
	}

	return &Fetcher{
		client:    client,
		userAgent: cfg.UserAgent,
		clean:     clean,
		logger:    logger,
	}
}

// Fetch downloads a page and returns its readable text, prefixed with the
// page title when there is one.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("unsupported url %q: only http and https are allowed", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get %s: unexpected status %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	f.logger.Debug("Page fetched",
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start))

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "html") {
		return truncate(string(body), f.clean.MaxOutputSize), nil
	}

	text := ExtractText(string(body), &f.clean)
	if title := Title(string(body)); title != "" {
		text = "Title: " + title + "\n\n" + text
	}
	return text, nil
}
