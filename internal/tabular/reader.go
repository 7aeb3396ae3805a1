package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
)

// Required input columns.
const (
	ColumnName    = "company_name"
	ColumnWebsite = "website"
)

// RequiredColumns lists the header names every input must carry.
var RequiredColumns = []string{ColumnName, ColumnWebsite}

var validate = validator.New()

// SupportedExtension reports whether filename has an accepted extension.
func SupportedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls", ".csv":
		return true
	}
	return false
}

// ReadTargets parses r according to filename's extension and returns the
// targets in row order. Rows where both required cells are blank are
// skipped; any other invalid row rejects the whole input.
func ReadTargets(r io.Reader, filename string) ([]crawler.CompanyTarget, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		rows, err = readSheet(r)
	case ".csv":
		rows, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%s: %w", filename, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	return targetsFromRows(rows)
}

func readSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func targetsFromRows(rows [][]string) ([]crawler.CompanyTarget, error) {
	var header []string
	if len(rows) > 0 {
		header = make([]string, len(rows[0]))
		for i, h := range rows[0] {
			header[i] = strings.TrimSpace(h)
		}
	}
	nameIdx, websiteIdx := indexOf(header, ColumnName), indexOf(header, ColumnWebsite)
	if nameIdx < 0 || websiteIdx < 0 {
		return nil, &SchemaError{Required: RequiredColumns, Found: header}
	}

	var (
		targets []crawler.CompanyTarget
		invalid []RowError
	)
	for i, row := range rows[1:] {
		target := crawler.CompanyTarget{
			Name: cell(row, nameIdx),
			URL:  cell(row, websiteIdx),
		}
		if target.Name == "" && target.URL == "" {
			continue
		}
		if err := validate.Struct(target); err != nil {
			invalid = append(invalid, rowErrors(i+2, err)...)
			continue
		}
		targets = append(targets, target)
	}
	if len(invalid) > 0 {
		return nil, &ValidationError{Rows: invalid}
	}
	return targets, nil
}

func rowErrors(row int, err error) []RowError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []RowError{{Row: row, Message: err.Error()}}
	}
	out := make([]RowError, 0, len(verrs))
	for _, fe := range verrs {
		field := ColumnName
		if fe.StructField() == "URL" {
			field = ColumnWebsite
		}
		msg := "is required"
		if fe.Tag() == "http_url" {
			msg = "must be an http(s) URL"
		}
		out = append(out, RowError{Row: row, Field: field, Message: msg})
	}
	return out
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
