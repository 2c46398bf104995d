package classify

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLearnTopTerms(t *testing.T) {
	titles := []string{
		"earnings beat expectations as revenue climbs",
		"earnings miss drags shares lower",
		"revenue outlook raised after earnings call",
	}

	set := Learn(titles, 2)
	if set.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", set.Len())
	}
	if !set.Contains("earnings") {
		t.Error("most frequent term 'earnings' missing")
	}
	if !set.Contains("revenue") {
		t.Error("second term 'revenue' missing")
	}
}

func TestLearnFiltersStopwords(t *testing.T) {
	set := Learn([]string{"the stock and the market of the company"}, 10)
	for _, w := range []string{"the", "and", "of"} {
		if set.Contains(w) {
			t.Errorf("stopword %q should not be learned", w)
		}
	}
	if !set.Contains("stock") {
		t.Error("content word 'stock' should be learned")
	}
}

func TestLearnEmptyCorpus(t *testing.T) {
	if set := Learn(nil, 100); set.Len() != 0 {
		t.Errorf("empty corpus produced %d keywords", set.Len())
	}
	if set := Learn([]string{"", "  ", "a"}, 100); set.Len() != 0 {
		t.Errorf("all-stopword corpus produced %d keywords", set.Len())
	}
}

func TestLearnDeterministicOrder(t *testing.T) {
	titles := []string{"alpha beta", "beta gamma", "gamma alpha"}
	first := Learn(titles, 2).Words()
	for i := 0; i < 5; i++ {
		if got := Learn(titles, 2).Words(); !reflect.DeepEqual(got, first) {
			t.Fatalf("Learn not deterministic: %v vs %v", got, first)
		}
	}
}

func TestTokenizeMinimumRunes(t *testing.T) {
	got := tokenize("é ab 5 ok")
	want := []string{"ab", "ok"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokenize = %v, want %v", got, want)
	}
	// Two multibyte runes clear the minimum.
	if got := tokenize("日本"); !reflect.DeepEqual(got, []string{"日本"}) {
		t.Errorf("tokenize multibyte = %v", got)
	}
}

func TestPruneKeepsLiveKeywords(t *testing.T) {
	current := NewKeywordSet("earnings", "obsolete", "dividend")
	corpus := "record earnings reported\nboard approves dividend"

	kept, removed := Prune(current, corpus, 0)

	if !kept.Contains("earnings") || !kept.Contains("dividend") {
		t.Errorf("live keywords were pruned: kept %v", kept.Words())
	}
	if kept.Contains("obsolete") {
		t.Error("dead keyword 'obsolete' survived")
	}
	if len(removed) != 1 || removed[0] != "obsolete" {
		t.Errorf("removed = %v, want [obsolete]", removed)
	}
}

func TestPruneLeavesOriginalUntouched(t *testing.T) {
	current := NewKeywordSet("earnings", "obsolete")
	Prune(current, "earnings report", 0)
	if !current.Contains("obsolete") {
		t.Error("Prune mutated its input set")
	}
}

func TestKeywordFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.txt")

	set := NewKeywordSet("Dividend", "earnings", "  shares  ")
	if err := set.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	loaded, err := LoadKeywordFile(path)
	if err != nil {
		t.Fatalf("LoadKeywordFile: %v", err)
	}
	want := []string{"dividend", "earnings", "shares"}
	if got := loaded.Words(); !reflect.DeepEqual(got, want) {
		t.Errorf("Words() = %v, want %v", got, want)
	}
}

func TestLoadKeywordFileMissing(t *testing.T) {
	set, err := LoadKeywordFile(filepath.Join(t.TempDir(), "nope.txt"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("missing file produced %d keywords", set.Len())
	}
}

func TestSaveFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.txt")
	if err := NewKeywordSet("one").SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	if err := NewKeywordSet("two", "three").SaveFile(path); err != nil {
		t.Fatalf("SaveFile overwrite: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}
