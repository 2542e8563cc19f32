package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is a single entry of the currency catalog.
// Identity is the Symbol; Name is a display label only.
type Currency struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Name     string `json:"name" yaml:"name"`
	IsCrypto bool   `json:"is_crypto" yaml:"is_crypto"`
}

// SameAs reports whether both entries describe the same currency.
func (c Currency) SameAs(other Currency) bool {
	return c.Symbol == other.Symbol
}

// Pair is a quoted price between two catalog symbols.
type Pair struct {
	Base  string          `json:"base" yaml:"base"`
	Quote string          `json:"quote" yaml:"quote"`
	Price decimal.Decimal `json:"price" yaml:"-"`
}

// Catalog is the result of one catalog load. It is replaced wholesale on reload.
type Catalog struct {
	Currencies []Currency `json:"currencies"`
	Pairs      []Pair     `json:"pairs"`
}

// FiatOnly returns the non-crypto entries, keeping catalog order.
func FiatOnly(all []Currency) []Currency {
	out := make([]Currency, 0, len(all))
	for _, c := range all {
		if c.IsCrypto {
			continue
		}
		out = append(out, c)
	}
	return out
}

// MatchesQuery reports whether c matches a case-insensitive substring query
// against its symbol or name. An empty query matches everything.
func MatchesQuery(c Currency, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(c.Symbol), q) ||
		strings.Contains(strings.ToLower(c.Name), q)
}

// FilterByQuery returns the entries of all matching query, keeping order.
func FilterByQuery(all []Currency, query string) []Currency {
	out := make([]Currency, 0, len(all))
	for _, c := range all {
		if MatchesQuery(c, query) {
			out = append(out, c)
		}
	}
	return out
}

// PairsFor returns the pairs quoted in the given symbol.
func (cat Catalog) PairsFor(quote string) []Pair {
	var out []Pair
	for _, p := range cat.Pairs {
		if p.Quote == quote {
			out = append(out, p)
		}
	}
	return out
}
