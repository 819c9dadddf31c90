package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"

	"citemon/internal"
	"citemon/internal/util"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

var errNoTable = errors.New("no table found")

// DetectFormat picks the format from the name's extension, falling back to
// the content.
func DetectFormat(content []byte, name string) Format {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" {
		name = u.Path
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	case ".html", ".htm":
		return FormatHTML
	}

	if bytes.HasPrefix(content, []byte("PK\x03\x04")) {
		return FormatXLSX
	}
	head := content
	if len(head) > 2048 {
		head = head[:2048]
	}
	if bytes.Contains(bytes.ToLower(head), []byte("<table")) {
		return FormatHTML
	}
	return FormatCSV
}

// Parse turns one source's bytes into a table. The first row is the header.
func Parse(content []byte, name string) (*internal.Table, error) {
	switch DetectFormat(content, name) {
	case FormatXLSX:
		return parseXLSX(content)
	case FormatHTML:
		return parseHTML(content)
	default:
		return parseCSV(content)
	}
}

// parseXLSX reads the first sheet with raw cell values, so date cells arrive
// as Excel serial numbers instead of locale-formatted text.
func parseXLSX(content []byte) (*internal.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errNoTable
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	return buildTable(rows), nil
}

func parseCSV(content []byte) (*internal.Table, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if sep := sniffDelimiter(content); sep != 0 {
		r.Comma = sep
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return buildTable(rows), nil
}

func sniffDelimiter(content []byte) rune {
	line := content
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestCount := rune(0), 0
	for _, sep := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(sep))); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

func parseHTML(content []byte) (*internal.Table, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, errNoTable
	}

	var rows [][]string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := []string{}
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, cell.Text())
		})
		rows = append(rows, cells)
	})
	return buildTable(rows), nil
}

// buildTable uses the first row as the header. Empty headers become
// "Unnamed: N" and repeated headers get ".1", ".2" suffixes. Cells that are
// empty after space normalization are null; rows that are entirely null
// are kept so the trimmer can see them.
func buildTable(rows [][]string) *internal.Table {
	if len(rows) == 0 {
		return internal.NewTable()
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	header := make([]string, width)
	seen := map[string]int{}
	for i := 0; i < width; i++ {
		name := ""
		if i < len(rows[0]) {
			name = util.NormalizeSpaces(rows[0][i])
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		header[i] = name
	}

	t := internal.NewTable(header...)
	for _, row := range rows[1:] {
		cells := make([]*string, width)
		for i, v := range row {
			v = util.NormalizeSpaces(v)
			if v != "" {
				cells[i] = util.StringPtr(v)
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}
