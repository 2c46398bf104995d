package store

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTickers(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tickers.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeTickers(t, `[
		{"ticker": "aapl", "query": "Apple", "sector": "Technology"},
		{"ticker": "MSFT", "query": "Microsoft"},
		{"ticker": "", "query": "nameless"},
		{"ticker": "NOQUERY", "query": ""},
		{"ticker": "AAPL", "query": "Duplicate Apple"}
	]`)

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	syms := r.Symbols()
	if len(syms) != 2 {
		t.Fatalf("Symbols() = %v, want 2 entries", syms)
	}
	if syms[0] != "AAPL" || syms[1] != "MSFT" {
		t.Errorf("Symbols() = %v", syms)
	}

	// First occurrence wins on duplicates.
	apple, ok := r.Lookup("aapl")
	if !ok {
		t.Fatal("Lookup(aapl) failed")
	}
	if apple.Query != "Apple" {
		t.Errorf("Query = %q, want first occurrence", apple.Query)
	}
}

func TestLoadRegistryEmpty(t *testing.T) {
	if _, err := LoadRegistry(writeTickers(t, `[]`)); err == nil {
		t.Error("empty registry must be an error")
	}
	if _, err := LoadRegistry(writeTickers(t, `[{"ticker": "", "query": ""}]`)); err == nil {
		t.Error("registry with no usable entries must be an error")
	}
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct{ in, want string }{
		{"aapl", "AAPL"},
		{" AAPL ", "AAPL"},
		{"BRK-A", "BRK.A"},
		{"brk-b", "BRK.B"},
		{"BRK.A", "BRK.A"},
		{"UNKNOWN-X", "UNKNOWN-X"},
	}
	for _, tt := range tests {
		if got := NormalizeSymbol(tt.in); got != tt.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVendorSymbol(t *testing.T) {
	tests := []struct{ in, want string }{
		{"BRK.A", "BRK-A"},
		{"BRK-B", "BRK-B"},
		{"AAPL", "AAPL"},
	}
	for _, tt := range tests {
		if got := VendorSymbol(tt.in); got != tt.want {
			t.Errorf("VendorSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRegistryHas(t *testing.T) {
	path := writeTickers(t, `[{"ticker": "BRK.B", "query": "Berkshire"}]`)
	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Has("BRK.B") || !r.Has("brk-b") {
		t.Error("alias lookup failed")
	}
	if r.Has("TSLA") {
		t.Error("Has(TSLA) = true for absent symbol")
	}
}
