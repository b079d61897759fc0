package output

import "context"

// SearchPort is any plain-text lookup service: web search, encyclopedia.
type SearchPort interface {
	Search(ctx context.Context, query string) (string, error)
}

type FetcherPort interface {
	Fetch(ctx context.Context, url string) (string, error)
}
