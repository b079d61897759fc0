package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"research-agent/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_HTMLPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "research-agent-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Gophers</title></head>
<body><nav>Home | About</nav><h1>Gophers</h1><p>Small burrowing rodents.</p></body></html>`))
	}))
	defer server.Close()

	f := NewFetcher(FetcherConfig{UserAgent: "research-agent-test"}, logger.NewNopLogger())

	text, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Title: Gophers\n\nGophers\nSmall burrowing rodents.", text)
}

func TestFetcher_PlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("0123456789abcdef"))
	}))
	defer server.Close()

	f := NewFetcher(FetcherConfig{MaxChars: 10}, logger.NewNopLogger())

	text, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "0123456789\n... (truncated)", text)
}

func TestFetcher_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(FetcherConfig{}, logger.NewNopLogger())

	_, err := f.Fetch(context.Background(), server.URL)
	assert.ErrorContains(t, err, "404")

	_, err = f.Fetch(context.Background(), "file:///etc/passwd")
	assert.ErrorContains(t, err, "unsupported url")
}
