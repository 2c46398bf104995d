package types

// HeadlineRecord is a single scraped headline for one ticker. Date is the
// parsed calendar timestamp in "2006-01-02 15:04:05" form and is empty when
// the source timestamp could not be parsed.
type HeadlineRecord struct {
	Title     string `csv:"title" json:"title"`
	Link      string `csv:"link" json:"link"`
	Published string `csv:"published" json:"published"`
	Date      string `csv:"date" json:"date"`
	Source    string `csv:"source" json:"source"`
}

// ModelScore is one sentiment model's verdict on a headline.
// Score is a confidence in [0,1]; Label is "ERROR" with Score 0.0 when the
// model failed on this text.
type ModelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// PriceBar is one daily bar for a ticker. The next-day fields are nil for the
// final bar of a fetched window; that is expected, not an error.
type PriceBar struct {
	Date          string
	Close         float64
	NextDayClose  *float64
	NextDayReturn *float64
}

// RescueLogEntry records the provenance of a headline promoted from skipped
// to relevant.
type RescueLogEntry struct {
	Timestamp string `csv:"timestamp" json:"timestamp"`
	Symbol    string `csv:"symbol" json:"symbol"`
	Title     string `csv:"title" json:"title"`
	Date      string `csv:"date" json:"date"`
	Source    string `csv:"source" json:"source"`
	RescuedBy string `csv:"rescued_by" json:"rescued_by"`
}

// RowDiff compares a ticker's merged-table row count against the previous
// recorded snapshot.
type RowDiff struct {
	Yesterday int `json:"yesterday"`
	Today     int `json:"today"`
	NewRows   int `json:"new_rows"`
}
