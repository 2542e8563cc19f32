package icon

import "strings"

const (
	prefix      = "fiat_"
	GenericIcon = "fiat_generic"
)

// Resolver maps fiat symbols to bundled icon asset names.
type Resolver struct {
	available map[string]bool // nil: every symbol is assumed to have an asset
	overrides map[string]string
}

// NewResolver creates a resolver. available lists the symbols with a bundled
// asset; overrides maps a symbol to an explicit asset name.
func NewResolver(available []string, overrides map[string]string) *Resolver {
	r := &Resolver{overrides: make(map[string]string, len(overrides))}
	if available != nil {
		r.available = make(map[string]bool, len(available))
		for _, s := range available {
			r.available[strings.ToUpper(s)] = true
		}
	}
	for k, v := range overrides {
		r.overrides[strings.ToUpper(k)] = v
	}
	return r
}

// IconName returns the asset name for symbol.
func (r *Resolver) IconName(symbol string) string {
	key := strings.ToUpper(symbol)
	if name, ok := r.overrides[key]; ok {
		return name
	}
	if symbol == "" || (r.available != nil && !r.available[key]) {
		return GenericIcon
	}
	return prefix + strings.ToLower(symbol)
}
