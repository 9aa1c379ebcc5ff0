package service

import (
	"encoding/csv"
	"strings"
)

// CountColumns returns the number of columns in the header row of a CSV document.
//
// Only the header is inspected; data rows with a different field count are
// tolerated. Blank lines before the header are skipped. A document with no
// header, or one whose header cannot be parsed, has 0 columns.
func CountColumns(text string) int {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return 0
	}
	return len(header)
}
