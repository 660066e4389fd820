// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gscientist/pkg/types"
)

func samplePapers() []types.Paper {
	return []types.Paper{
		{
			PaperID:       "2301.07041v2",
			Title:         "Attention, Again",
			Authors:       []string{"Ada Lovelace", "Alan Turing"},
			Abstract:      "Line one.\nLine \"two\".",
			URL:           "http://arxiv.org/abs/2301.07041v2",
			PDFURL:        "http://arxiv.org/pdf/2301.07041v2",
			PublishedDate: time.Date(2023, 1, 17, 18, 59, 59, 0, time.UTC),
			UpdatedDate:   time.Date(2023, 2, 10, 18, 0, 0, 0, time.UTC),
			Source:        types.SourceArxiv,
			Categories:    []string{"cs.LG", "stat.ML"},
			DOI:           "10.1000/xyz",
			Extra:         map[string]string{"primary_category": "cs.LG", "comment": "12 pages"},
		},
		{
			PaperID:       "abc123",
			Title:         "Scholarly Thing",
			Authors:       []string{"J Doe"},
			URL:           "https://example.org/x",
			PublishedDate: time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
			UpdatedDate:   time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
			Source:        types.SourceScholar,
			Citations:     42,
			References:    []string{"ref-1", "ref-2"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"csv": FormatCSV, "JSON": FormatJSON, "yaml": FormatYAML, "yml": FormatYAML,
		"excel": FormatExcel, "xlsx": FormatExcel, " csv ": FormatCSV, "csl": FormatCSL,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("parquet")
	var cfgErr *types.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "export format", cfgErr.Field)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatForPath("out/a.JSON"))
	assert.Equal(t, FormatYAML, FormatForPath("a.yml"))
	assert.Equal(t, FormatExcel, FormatForPath("a.xlsx"))
	assert.Equal(t, FormatCSV, FormatForPath("a.txt"))
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	err := Write(samplePapers(), path, Format("bin"))
	assert.True(t, types.IsConfigurationError(err))
	assert.NoFileExists(t, path)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "papers.csv")
	require.NoError(t, Write(samplePapers(), path, FormatCSV))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	want := samplePapers()
	assert.Equal(t, want[0].Title, got[0].Title)
	assert.Equal(t, want[0].Abstract, got[0].Abstract)
	assert.Equal(t, want[0].Authors, got[0].Authors)
	assert.Equal(t, want[0].Categories, got[0].Categories)
	assert.Equal(t, want[0].Extra, got[0].Extra)
	assert.True(t, want[0].PublishedDate.Equal(got[0].PublishedDate))
	assert.Equal(t, 42, got[1].Citations)
	assert.Equal(t, []string{"ref-1", "ref-2"}, got[1].References)
	assert.Equal(t, types.SourceScholar, got[1].Source)
}

func TestWriteCSVHeaderAndJoins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.csv")
	require.NoError(t, Write(samplePapers(), path, FormatCSV))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, "Ada Lovelace; Alan Turing", records[1][2])
	assert.Equal(t, "cs.LG; stat.ML", records[1][9])
	assert.Equal(t, `{"comment":"12 pages","primary_category":"cs.LG"}`, records[1][14])
	assert.Empty(t, records[2][14])
	assert.Equal(t, "2023-01-17T18:59:59Z", records[1][6])
}

func TestWriteCSVExtraWithSeparator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.csv")
	papers := samplePapers()
	papers[0].Extra = map[string]string{"comment": "10 pages; 3 figures", "journal_ref": "a=b"}
	require.NoError(t, Write(papers, path, FormatCSV))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, papers[0].Extra, got[0].Extra)
	assert.Nil(t, got[1].Extra)
}

func TestReadCSVBadExtra(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.csv")
	row := make([]string, len(Columns))
	row[len(row)-1] = "comment=12 pages"
	data := strings.Join(Columns, ",") + "\n" + strings.Join(row, ",") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := ReadCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestWriteNormalizesFormatTag(t *testing.T) {
	dir := t.TempDir()

	xlsx := filepath.Join(dir, "papers.xlsx")
	require.NoError(t, Write(samplePapers(), xlsx, Format("xlsx")))
	got, err := ReadExcel(xlsx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Attention, Again", got[0].Title)

	jsonPath := filepath.Join(dir, "papers.out")
	require.NoError(t, Write(samplePapers(), jsonPath, Format("JSON")))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var papers []types.Paper
	require.NoError(t, json.Unmarshal(data, &papers))
	assert.Len(t, papers, 2)

	ymlPath := filepath.Join(dir, "papers.txt")
	require.NoError(t, Write(samplePapers(), ymlPath, Format("yml")))
	data, err = os.ReadFile(ymlPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "- paper_id: 2301.07041v2"), string(data))
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.json")
	require.NoError(t, Write(samplePapers(), path, FormatJSON))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []types.Paper
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "2301.07041v2", got[0].PaperID)
	assert.Equal(t, map[string]string{"primary_category": "cs.LG", "comment": "12 pages"}, got[0].Extra)
}

func TestWriteJSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, Write(nil, path, FormatJSON))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.yaml")
	require.NoError(t, Write(samplePapers(), path, FormatYAML))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "paper_id: 2301.07041v2")

	var got []types.Paper
	require.NoError(t, yaml.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Scholarly Thing", got[1].Title)
}

func TestWriteExcelRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.xlsx")
	require.NoError(t, Write(samplePapers(), path, FormatExcel))

	got, err := ReadExcel(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Attention, Again", got[0].Title)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, got[0].Authors)
	assert.Equal(t, 42, got[1].Citations)
}

func TestReadCSVMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,url\nx,y\n"), 0o644))
	_, err := ReadCSV(path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing column"))
}

// --- BatchAppender ---

func TestBatchAppenderWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches", "scholar.csv")
	papers := samplePapers()

	a := NewBatchAppender(path)
	require.NoError(t, a.WriteBatch(papers[:1]))
	require.NoError(t, a.WriteBatch(papers[1:]))

	// A second appender on the same file continues without a new header.
	require.NoError(t, NewBatchAppender(path).WriteBatch(papers[:1]))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 4)
	assert.Equal(t, BatchColumns, records[0])
	assert.Equal(t, []string{
		"Attention, Again",
		"http://arxiv.org/abs/2301.07041v2",
		"Ada Lovelace; Alan Turing",
		"2023",
		"0",
		"Line one.\nLine \"two\".",
	}, records[1])
	assert.Equal(t, "42", records[2][4])
	assert.Equal(t, records[1], records[3])
}

func TestBatchAppenderSkipsEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scholar.csv")
	require.NoError(t, NewBatchAppender(path).WriteBatch(nil))
	assert.NoFileExists(t, path)
}
