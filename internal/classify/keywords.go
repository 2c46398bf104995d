package classify

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
)

// KeywordSet is a set of lowercase tokens driving the relevance classifier.
// It is treated as a versioned value: Learn and Prune return new sets rather
// than mutating ambient state, and the on-disk file is the version persisted
// between runs.
type KeywordSet struct {
	words map[string]struct{}
}

// NewKeywordSet builds a set from the given words, lowercased and trimmed.
func NewKeywordSet(words ...string) *KeywordSet {
	s := &KeywordSet{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			s.words[w] = struct{}{}
		}
	}
	return s
}

// Contains reports whether the set holds the given word.
func (s *KeywordSet) Contains(word string) bool {
	_, ok := s.words[strings.ToLower(word)]
	return ok
}

// Len returns the number of keywords.
func (s *KeywordSet) Len() int { return len(s.words) }

// Words returns the keywords in sorted order.
func (s *KeywordSet) Words() []string {
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Union returns a new set containing the words of both sets.
func (s *KeywordSet) Union(other *KeywordSet) *KeywordSet {
	merged := NewKeywordSet(s.Words()...)
	for w := range other.words {
		merged.words[w] = struct{}{}
	}
	return merged
}

// LoadKeywordFile reads a newline-delimited keyword file. A missing file is
// not an error; it yields an empty set.
func LoadKeywordFile(path string) (*KeywordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewKeywordSet(), nil
		}
		return nil, fmt.Errorf("open keyword file: %w", err)
	}
	defer f.Close()

	s := NewKeywordSet()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w != "" {
			s.words[w] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read keyword file: %w", err)
	}
	return s, nil
}

// SaveFile writes the set as sorted newline-delimited tokens, replacing the
// file atomically.
func (s *KeywordSet) SaveFile(path string) error {
	tmp := path + ".tmp"
	var b strings.Builder
	for _, w := range s.Words() {
		b.WriteString(w)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write keyword file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace keyword file: %w", err)
	}
	return nil
}

// Learn extracts the top-N most frequent non-stopword terms across the given
// titles via a bag-of-words vocabulary build. An empty corpus returns an
// empty set; callers must treat that as a no-op and keep the existing file.
func Learn(titles []string, maxFeatures int) *KeywordSet {
	counts := make(map[string]int)
	for _, title := range titles {
		for _, tok := range tokenize(title) {
			if isStopword(tok) {
				continue
			}
			counts[tok]++
		}
	}

	if len(counts) == 0 {
		return NewKeywordSet()
	}

	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	// Highest frequency first; alphabetical within equal counts so output is
	// deterministic across runs.
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	return NewKeywordSet(terms...)
}

// Prune returns a new set keeping only keywords that occur more than
// threshold times in the concatenated lowercase headline corpus, plus the
// list of removed keywords. A keyword that still matches at least one live
// headline always survives a threshold of zero.
func Prune(current *KeywordSet, corpus string, threshold int) (*KeywordSet, []string) {
	corpus = strings.ToLower(corpus)

	var kept, removed []string
	for _, kw := range current.Words() {
		if strings.Count(corpus, kw) > threshold {
			kept = append(kept, kw)
		} else {
			removed = append(removed, kw)
		}
	}
	return NewKeywordSet(kept...), removed
}

// tokenize splits a title into lowercase word tokens of at least two
// runes, matching the vocabulary builder's token rule.
func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	runes := 0
	flush := func() {
		if runes >= 2 {
			tokens = append(tokens, cur.String())
		}
		cur.Reset()
		runes = 0
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
			runes++
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
