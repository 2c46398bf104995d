// Package table implements the flat row-oriented CSV tables every pipeline
// stage reads and writes. Tables are replaced atomically (temp file + rename)
// so an aborted stage leaves the previous table intact.
package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
)

// Row is one record keyed by lowercase column name. Absent columns read as
// the empty string, which downstream stages treat as null.
type Row map[string]string

// Table is an ordered set of columns plus rows. Column order is preserved on
// write so repeated runs produce byte-identical files.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column if not already present.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Append adds a row, extending the column set with any unseen keys in sorted
// order so output stays deterministic.
func (t *Table) Append(r Row) {
	extra := make([]string, 0)
	for k := range r {
		if !t.HasColumn(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	t.Columns = append(t.Columns, extra...)
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// SortBy orders rows by the given column, lexicographically. ISO calendar
// dates sort chronologically under this ordering. The sort is stable so
// equal-key rows keep their merge order.
func (t *Table) SortBy(column string, descending bool) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, b := t.Rows[i][column], t.Rows[j][column]
		if descending {
			return a > b
		}
		return a < b
	})
}

// AllNull reports whether every row has an empty value in the column.
func (t *Table) AllNull(column string) bool {
	for _, r := range t.Rows {
		if strings.TrimSpace(r[column]) != "" {
			return false
		}
	}
	return true
}

// ReadFile loads a CSV table. Headers are trimmed and lowercased; short rows
// are padded with empty cells rather than rejected.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return New(), nil
	}

	t := New()
	for _, h := range records[0] {
		t.Columns = append(t.Columns, strings.ToLower(strings.TrimSpace(h)))
	}
	for _, rec := range records[1:] {
		row := make(Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadFileIfExists loads a table, returning an empty table when the file does
// not exist yet. The boolean reports whether the file was present.
func ReadFileIfExists(path string) (*Table, bool, error) {
	t, err := ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), false, nil
		}
		return nil, false, err
	}
	return t, true, nil
}

// WriteFile replaces the table file atomically.
func (t *Table) WriteFile(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			rec[i] = row[col]
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// ReadRecords loads a fixed-schema CSV file into typed records. A missing
// file yields an empty slice.
func ReadRecords[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []T
	if err := gocsv.UnmarshalFile(f, &out); err != nil {
		if err == gocsv.ErrEmptyCSVFile {
			return nil, nil
		}
		return nil, fmt.Errorf("unmarshal csv %s: %w", path, err)
	}
	return out, nil
}

// WriteRecords replaces a fixed-schema CSV file atomically.
func WriteRecords[T any](path string, records []T) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := gocsv.MarshalFile(&records, f); err != nil {
		f.Close()
		return fmt.Errorf("marshal csv %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// AppendRecords appends typed records to a fixed-schema CSV file, rewriting
// it atomically so a crash never leaves a torn file.
func AppendRecords[T any](path string, records []T) error {
	existing, err := ReadRecords[T](path)
	if err != nil {
		return err
	}
	return WriteRecords(path, append(existing, records...))
}
