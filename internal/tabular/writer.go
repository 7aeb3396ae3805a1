package tabular

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
)

// ContentType is the MIME type of written workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const sheetName = "Sheet1"

// OutputColumns is the fixed header of the result table.
var OutputColumns = append(append([]string{
	"Company Name",
	"Website",
	"Founded Info",
	"About Us",
}, crawler.SectionKeys...), "Email")

// Row renders one result in OutputColumns order. Null values are nil.
func Row(r crawler.CompanyResult) []*string {
	name, website := r.Name, r.Website
	row := []*string{&name, &website, r.FoundedInfo, r.AboutUs}
	for _, f := range r.Enrichment.Fields() {
		if f.IsNull() {
			row = append(row, nil)
			continue
		}
		v := f.String()
		row = append(row, &v)
	}
	return append(row, r.Email)
}

// EncodeWorkbook renders results as an .xlsx document with a header row.
// Null cells are left empty.
func EncodeWorkbook(results []crawler.CompanyResult) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, col := range OutputColumns {
		if err := setCell(f, i+1, 1, col); err != nil {
			return nil, err
		}
	}
	for r, result := range results {
		for c, v := range Row(result) {
			if v == nil {
				continue
			}
			if err := setCell(f, c+1, r+2, *v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value string) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetCellValue(sheetName, name, value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// Writer persists the whole result table under a fixed key after each
// company.
type Writer struct {
	store crawler.BlobStore
	key   string
}

// NewWriter stores workbooks in store under key.
func NewWriter(store crawler.BlobStore, key string) *Writer {
	return &Writer{store: store, key: key}
}

// Key returns the object key written by WriteResults.
func (w *Writer) Key() string { return w.key }

// WriteResults replaces the stored workbook with results and returns its URI.
func (w *Writer) WriteResults(ctx context.Context, results []crawler.CompanyResult) (string, error) {
	data, err := EncodeWorkbook(results)
	if err != nil {
		return "", err
	}
	uri, err := w.store.PutObject(ctx, w.key, ContentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("store workbook: %w", err)
	}
	return uri, nil
}
