package table

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Key returns the deduplication key for a (calendar date, title) pair: the
// md5 hex digest of lowercase(date) + "_" + lowercase(title). The link is
// deliberately excluded; sources re-serve the same link under reformatted
// titles.
func Key(date, title string) string {
	sum := md5.Sum([]byte(strings.ToLower(date) + "_" + strings.ToLower(title)))
	return hex.EncodeToString(sum[:])
}

// RowKey returns the deduplication key for a table row.
func RowKey(r Row) string {
	return Key(r["date"], r["title"])
}

// MergeDedup unions existing and incoming rows, deduplicated by RowKey.
// Existing rows are never overwritten by reprocessing: within the union the
// first occurrence wins, and existing rows come first. The column set is the
// union of both tables, existing columns first. This is the pipeline's core
// idempotence guarantee; merging the same incoming table twice is a no-op.
func MergeDedup(existing, incoming *Table) *Table {
	out := New(existing.Columns...)
	for _, c := range incoming.Columns {
		out.AddColumn(c)
	}

	seen := make(map[string]struct{}, len(existing.Rows)+len(incoming.Rows))
	add := func(r Row) {
		k := RowKey(r)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, r)
	}

	for _, r := range existing.Rows {
		add(r)
	}
	for _, r := range incoming.Rows {
		add(r)
	}
	return out
}
