package infra

import (
	"context"
	"net/http"
)

// HTTPCommitter stores the chosen currency with the remote settings API.
type HTTPCommitter struct {
	url    string
	client *apiClient
}

// NewHTTPCommitter creates a committer for cfg.API.SettingsURL.
func NewHTTPCommitter(cfg *Config) *HTTPCommitter {
	return &HTTPCommitter{
		url:    cfg.API.SettingsURL,
		client: newAPIClient("settings", cfg),
	}
}

type commitRequest struct {
	Symbol string `json:"symbol"`
}

// Commit sends PUT {"symbol": ...}; any non-2xx answer is a *ServiceError.
func (c *HTTPCommitter) Commit(ctx context.Context, symbol string) error {
	return c.client.do(ctx, http.MethodPut, c.url, commitRequest{Symbol: symbol}, nil)
}
