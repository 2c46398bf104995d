package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Ticker is one entry of the ticker registry. Symbol is the unique uppercase
// key; Query is the search string used for headline ingestion.
type Ticker struct {
	Symbol    string `json:"ticker"`
	Query     string `json:"query"`
	Sector    string `json:"sector"`
	Region    string `json:"region"`
	MarketCap string `json:"marketCap"`
	Type      string `json:"type"`
}

// Registry holds the ticker universe for a pipeline run. It is loaded once at
// startup and immutable afterwards.
type Registry struct {
	tickers  []Ticker
	bySymbol map[string]Ticker
}

// LoadRegistry reads the ticker registry JSON file. Entries without a symbol
// or query are dropped; duplicate symbols keep the first occurrence.
func LoadRegistry(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tickers file: %w", err)
	}

	var raw []Ticker
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse tickers file: %w", err)
	}

	r := &Registry{bySymbol: make(map[string]Ticker)}
	for _, t := range raw {
		t.Symbol = NormalizeSymbol(t.Symbol)
		if t.Symbol == "" || t.Query == "" {
			continue
		}
		if _, seen := r.bySymbol[t.Symbol]; seen {
			continue
		}
		r.tickers = append(r.tickers, t)
		r.bySymbol[t.Symbol] = t
	}

	if len(r.tickers) == 0 {
		return nil, fmt.Errorf("tickers file %s contains no usable entries", path)
	}
	return r, nil
}

// Tickers returns all registry entries in file order.
func (r *Registry) Tickers() []Ticker { return r.tickers }

// Symbols returns all symbols in file order.
func (r *Registry) Symbols() []string {
	syms := make([]string, 0, len(r.tickers))
	for _, t := range r.tickers {
		syms = append(syms, t.Symbol)
	}
	return syms
}

// Lookup returns the ticker for a symbol after normalization.
func (r *Registry) Lookup(symbol string) (Ticker, bool) {
	t, ok := r.bySymbol[NormalizeSymbol(symbol)]
	return t, ok
}

// Has reports whether a symbol is part of the registry.
func (r *Registry) Has(symbol string) bool {
	_, ok := r.bySymbol[NormalizeSymbol(symbol)]
	return ok
}

// Share-class aliases. The canonical form uses the dot, the price vendor's
// form uses the dash. Only the two documented Berkshire classes are mapped;
// unknown symbols pass through uppercased.
var canonicalAliases = map[string]string{
	"BRK-A": "BRK.A",
	"BRK-B": "BRK.B",
}

var vendorAliases = map[string]string{
	"BRK.A": "BRK-A",
	"BRK.B": "BRK-B",
}

// NormalizeSymbol maps a symbol to its canonical registry form.
func NormalizeSymbol(symbol string) string {
	up := strings.ToUpper(strings.TrimSpace(symbol))
	if canonical, ok := canonicalAliases[up]; ok {
		return canonical
	}
	return up
}

// VendorSymbol maps a canonical symbol to the form the price vendor expects.
func VendorSymbol(symbol string) string {
	up := NormalizeSymbol(symbol)
	if vendor, ok := vendorAliases[up]; ok {
		return vendor
	}
	return up
}
