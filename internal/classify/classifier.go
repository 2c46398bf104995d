package classify

import "strings"

// Reason tags attached to relevance decisions for observability.
const (
	ReasonKeyword = "keyword"
	ReasonSymbol  = "symbol"
	ReasonName    = "name"
)

// Classify decides whether a headline title concerns the ticker universe.
// Decision order, first match wins: learned/base keyword substring, active
// symbol substring ("symbol rescue"), full query string substring ("name
// rescue"). The function is pure: same inputs always produce the same verdict,
// and adding keywords can only promote a title, never demote it.
func Classify(title string, symbols []string, query string, keywords *KeywordSet) (relevant bool, reason string) {
	titleLower := strings.ToLower(title)

	for _, kw := range keywords.Words() {
		if strings.Contains(titleLower, kw) {
			return true, ReasonKeyword
		}
	}

	for _, sym := range symbols {
		if sym == "" {
			continue
		}
		if strings.Contains(titleLower, strings.ToLower(sym)) {
			return true, ReasonSymbol
		}
	}

	if query != "" && strings.Contains(titleLower, strings.ToLower(query)) {
		return true, ReasonName
	}

	return false, ""
}
