package infra

import (
	"context"
	"log/slog"
	"net/http"

	"local_currency/internal/domain"
)

// HTTPCatalogSource loads the currency catalog from the remote API.
type HTTPCatalogSource struct {
	url    string
	client *apiClient
}

// NewHTTPCatalogSource creates a catalog source for cfg.API.CatalogURL.
func NewHTTPCatalogSource(cfg *Config) *HTTPCatalogSource {
	return &HTTPCatalogSource{
		url:    cfg.API.CatalogURL,
		client: newAPIClient("catalog", cfg),
	}
}

// FetchCurrencies returns the whole catalog or an error.
func (s *HTTPCatalogSource) FetchCurrencies(ctx context.Context) (domain.Catalog, error) {
	var cat domain.Catalog
	if err := s.client.do(ctx, http.MethodGet, s.url, nil, &cat); err != nil {
		return domain.Catalog{}, err
	}
	return sanitizeCatalog(cat), nil
}

// sanitizeCatalog drops entries without a symbol and repeated symbols.
func sanitizeCatalog(cat domain.Catalog) domain.Catalog {
	seen := make(map[string]struct{}, len(cat.Currencies))
	out := make([]domain.Currency, 0, len(cat.Currencies))
	for _, c := range cat.Currencies {
		if c.Symbol == "" {
			slog.Warn("Catalog entry without symbol dropped", slog.String("name", c.Name))
			continue
		}
		if _, dup := seen[c.Symbol]; dup {
			slog.Warn("Duplicate catalog symbol dropped", slog.String("symbol", c.Symbol))
			continue
		}
		seen[c.Symbol] = struct{}{}
		out = append(out, c)
	}
	cat.Currencies = out
	return cat
}
