package tabular

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned for extensions other than .xlsx, .xls and .csv.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// SchemaError reports a header row lacking required columns.
type SchemaError struct {
	Required []string
	Found    []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("File must have columns: [%s]. Found: [%s]",
		strings.Join(e.Required, ", "), strings.Join(e.Found, ", "))
}

// RowError describes one rejected data row. Row is the 1-based line or sheet
// row number.
type RowError struct {
	Row     int
	Field   string
	Message string
}

// ValidationError collects every rejected row of an input.
type ValidationError struct {
	Rows []RowError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		parts = append(parts, fmt.Sprintf("row %d: %s %s", r.Row, r.Field, r.Message))
	}
	return "invalid rows: " + strings.Join(parts, "; ")
}
