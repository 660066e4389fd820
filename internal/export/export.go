// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes search results to disk as CSV, JSON, YAML, an Excel
// workbook, or a CSL-YAML bibliography, and appends Scholar batches to a CSV
// file as they arrive.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gscientist/pkg/types"
)

// Format selects the file encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatExcel Format = "excel"
	FormatCSL   Format = "csl"
)

// Formats lists the supported encodings.
var Formats = []Format{FormatCSV, FormatJSON, FormatYAML, FormatExcel, FormatCSL}

// Columns is the tabular field order shared by CSV and Excel output.
var Columns = []string{
	"paper_id", "title", "authors", "abstract", "url", "pdf_url",
	"published_date", "updated_date", "source", "categories", "keywords",
	"doi", "citations", "references", "extra",
}

// ListSep joins list-valued fields in tabular output.
const ListSep = "; "

const sheetName = "papers"

// ParseFormat maps a format tag to a Format. "xlsx" is accepted as an alias
// for excel and "yml" for yaml.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatYAML, FormatExcel, FormatCSL:
		return f, nil
	case "xlsx":
		return FormatExcel, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", types.NewConfigurationError("export format", s, "must be one of csv, json, yaml, excel, csl")
}

// FormatForPath guesses the format from a file extension, defaulting to CSV.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".xlsx":
		return FormatExcel
	}
	return FormatCSV
}

// Write encodes papers to path in format f, creating parent directories.
// An existing file is replaced.
func Write(papers []types.Paper, path string, f Format) error {
	f, err := ParseFormat(string(f))
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	switch f {
	case FormatJSON:
		return writeJSON(papers, path)
	case FormatYAML:
		return writeYAML(papers, path)
	case FormatExcel:
		return writeExcel(papers, path)
	case FormatCSL:
		return writeCSL(papers, path)
	default:
		return writeCSV(papers, path)
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

func writeJSON(papers []types.Paper, path string) error {
	if papers == nil {
		papers = []types.Paper{}
	}
	data, err := json.MarshalIndent(papers, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func writeYAML(papers []types.Paper, path string) error {
	data, err := yaml.Marshal(papers)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func writeCSV(papers []types.Paper, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, p := range papers {
		if err := w.Write(Row(p)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func writeExcel(papers []types.Paper, path string) error {
	x := excelize.NewFile()
	defer x.Close()

	if err := x.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	if err := setRow(x, 1, Columns); err != nil {
		return err
	}
	for i, p := range papers {
		if err := setRow(x, i+2, Row(p)); err != nil {
			return err
		}
	}
	if err := x.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func setRow(x *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return x.SetSheetRow(sheetName, cell, &row)
}

// Row flattens a paper into the Columns order.
func Row(p types.Paper) []string {
	return []string{
		p.PaperID,
		p.Title,
		strings.Join(p.Authors, ListSep),
		p.Abstract,
		p.URL,
		p.PDFURL,
		formatTime(p.PublishedDate),
		formatTime(p.UpdatedDate),
		string(p.Source),
		strings.Join(p.Categories, ListSep),
		strings.Join(p.Keywords, ListSep),
		p.DOI,
		strconv.Itoa(p.Citations),
		strings.Join(p.References, ListSep),
		formatExtra(p.Extra),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// formatExtra encodes the map as a JSON object with sorted keys. Values
// may contain ListSep (arXiv comments often do).
func formatExtra(extra map[string]string) string {
	if len(extra) == 0 {
		return ""
	}
	data, _ := json.Marshal(extra)
	return string(data)
}
