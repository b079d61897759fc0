package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"research-agent/internal/application/port/output"
	"research-agent/internal/infrastructure/web"

	"github.com/tmc/langchaingo/tools/duckduckgo"
	"github.com/tmc/langchaingo/tools/wikipedia"
)

var (
	_ output.SearchPort = (*WebSearch)(nil)
	_ output.SearchPort = (*Wikipedia)(nil)
)

const (
	DefaultMaxResults        = 5
	DefaultWikipediaTopK     = 1
	DefaultWikipediaMaxChars = 100
	DefaultUserAgent         = "research-agent/1.0 (command-line research assistant)"
)

type Config struct {
	MaxResults        int
	WikipediaTopK     int
	WikipediaMaxChars int
	UserAgent         string
	HTTPClient        *http.Client
}

func (c Config) userAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}

// WebSearch queries DuckDuckGo's HTML endpoint.
type WebSearch struct {
	tool   *duckduckgo.Tool
	logger output.LoggerPort
}

func NewWebSearch(cfg Config, logger output.LoggerPort) (*WebSearch, error) {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	var opts []duckduckgo.Option
	if cfg.HTTPClient != nil {
		opts = append(opts, duckduckgo.WithHTTPClient(cfg.HTTPClient))
	}

	tool, err := duckduckgo.New(maxResults, cfg.userAgent(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create duckduckgo client: %w", err)
	}
	return &WebSearch{tool: tool, logger: logger}, nil
}

func (s *WebSearch) Search(ctx context.Context, query string) (string, error) {
	start := time.Now()
	result, err := s.tool.Call(ctx, query)
	if err != nil {
		s.logger.Error("Web search failed", "query", query, "error", err)
		return "", fmt.Errorf("web search: %w", err)
	}
	s.logger.Debug("Web search completed", "query", query, "resultLen", len(result), "duration", time.Since(start))

	result = strings.TrimSpace(result)
	if result == "" {
		return "No search results found", nil
	}
	return result, nil
}

// Wikipedia looks pages up through the MediaWiki API. Extracts come back as
// HTML and are flattened to text.
type Wikipedia struct {
	tool   wikipedia.Tool
	logger output.LoggerPort
}

func NewWikipedia(cfg Config, logger output.LoggerPort) *Wikipedia {
	var opts []wikipedia.Option
	if cfg.HTTPClient != nil {
		opts = append(opts, wikipedia.WithHTTPClient(cfg.HTTPClient))
	}

	tool := wikipedia.New(cfg.userAgent(), opts...)
	tool.TopK = DefaultWikipediaTopK
	if cfg.WikipediaTopK > 0 {
		tool.TopK = cfg.WikipediaTopK
	}
	tool.DocMaxChars = DefaultWikipediaMaxChars
	if cfg.WikipediaMaxChars > 0 {
		tool.DocMaxChars = cfg.WikipediaMaxChars
	}

	return &Wikipedia{tool: tool, logger: logger}
}

func (w *Wikipedia) Search(ctx context.Context, query string) (string, error) {
	start := time.Now()
	result, err := w.tool.Call(ctx, query)
	if err != nil {
		w.logger.Error("Wikipedia lookup failed", "query", query, "error", err)
		return "", fmt.Errorf("wikipedia: %w", err)
	}
	w.logger.Debug("Wikipedia lookup completed", "query", query, "resultLen", len(result), "duration", time.Since(start))

	text := web.ExtractText(result, &web.CleanConfig{})
	if text == "" {
		return result, nil
	}
	return text, nil
}
