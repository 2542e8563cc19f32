package infra

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"local_currency/internal/domain"
)

type catalogFile struct {
	Currencies []domain.Currency `yaml:"currencies"`
	Pairs      []struct {
		Base  string `yaml:"base"`
		Quote string `yaml:"quote"`
		Price string `yaml:"price"`
	} `yaml:"pairs"`
}

// FileCatalogSource reads the catalog from a YAML file on every fetch,
// so a retry picks up edits.
type FileCatalogSource struct {
	path string
}

func NewFileCatalogSource(path string) *FileCatalogSource {
	return &FileCatalogSource{path: path}
}

func (s *FileCatalogSource) FetchCurrencies(ctx context.Context) (domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return domain.Catalog{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}

	var raw catalogFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Catalog{}, fmt.Errorf("parse catalog %s: %w", s.path, err)
	}

	cat := domain.Catalog{Currencies: raw.Currencies}
	for _, p := range raw.Pairs {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return domain.Catalog{}, fmt.Errorf("pair %s/%s: invalid price %q: %w", p.Base, p.Quote, p.Price, err)
		}
		cat.Pairs = append(cat.Pairs, domain.Pair{Base: p.Base, Quote: p.Quote, Price: price})
	}
	return sanitizeCatalog(cat), nil
}
