package tabular

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
	"github.com/JakeFAU/company-intel-crawler/internal/storage/memory"
)

func readBack(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	return rows
}

func TestOutputColumnsOrder(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{
		"Company Name", "Website", "Founded Info", "About Us",
		"company_overview", "business_model", "products_services", "operational_footprint",
		"ai_ml_opportunity_map", "leadership", "strategic_developments", "strategic_outlook",
		"executive_brief", "Email",
	}, OutputColumns)
}

func TestEncodeWorkbook(t *testing.T) {
	t.Parallel()

	about := "About us: anvils"
	email := "sales@acme.test"
	acme := crawler.NewResult(crawler.CompanyTarget{Name: "Acme", URL: "https://acme.test"})
	acme.AboutUs = &about
	acme.Email = &email
	acme.CompanyOverview = crawler.StructuredField(`{"summary":"Anvils"}`)
	ghost := crawler.NewResult(crawler.CompanyTarget{Name: "Ghost", URL: "https://ghost.invalid"})

	data, err := EncodeWorkbook([]crawler.CompanyResult{acme, ghost})
	require.NoError(t, err)

	rows := readBack(t, data)
	require.Len(t, rows, 3)
	require.Equal(t, OutputColumns, rows[0])
	require.Equal(t, "Acme", rows[1][0])
	require.Equal(t, "", rows[1][2])
	require.Equal(t, about, rows[1][3])
	require.Equal(t, `{"summary":"Anvils"}`, rows[1][4])
	require.Equal(t, email, rows[1][13])
	require.Equal(t, []string{"Ghost", "https://ghost.invalid"}, rows[2])
}

func TestEncodeWorkbookHeaderOnly(t *testing.T) {
	t.Parallel()

	data, err := EncodeWorkbook(nil)
	require.NoError(t, err)
	require.Equal(t, [][]string{OutputColumns}, readBack(t, data))
}

func TestWriterReplacesStoredWorkbook(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	w := NewWriter(store, "output.xlsx")
	first := crawler.NewResult(crawler.CompanyTarget{Name: "A", URL: "https://a.test"})
	second := crawler.NewResult(crawler.CompanyTarget{Name: "B", URL: "https://b.test"})

	_, err := w.WriteResults(context.Background(), []crawler.CompanyResult{first})
	require.NoError(t, err)
	uri, err := w.WriteResults(context.Background(), []crawler.CompanyResult{first, second})
	require.NoError(t, err)
	require.Equal(t, "memory://output.xlsx", uri)
	require.Equal(t, "output.xlsx", w.Key())

	data, err := store.GetObject(context.Background(), "output.xlsx")
	require.NoError(t, err)
	require.Len(t, readBack(t, data), 3)
	require.Equal(t, ContentType, store.ContentType("output.xlsx"))
}

func TestRowRendersNulls(t *testing.T) {
	t.Parallel()

	row := Row(crawler.NewResult(crawler.CompanyTarget{Name: "A", URL: "https://a.test"}))
	require.Len(t, row, len(OutputColumns))
	require.Equal(t, "A", *row[0])
	for _, v := range row[2:] {
		require.Nil(t, v)
	}
}
