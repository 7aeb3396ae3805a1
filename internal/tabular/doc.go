// Package tabular reads company target lists from spreadsheets or CSV files
// and writes the result table as an .xlsx workbook.
package tabular
