package internal

import "time"

// Canonical column names, as produced by the schema normalizer.
const (
	ColDate         = "date_of_publication"
	ColDocument     = "name_of_the_document_citing_eige"
	ColOutputType   = "type_of_eige's_output_cited"
	ColOutputCited  = "eige's_output_cited"
	ColAuthors      = "name_of_the_author/organisation_citing_eige"
	ColInstitutions = "name_of_the_institution_citing_eige"
	ColURL          = "url_of_the_document_citing_eige"
	ColJournal      = "name_of_the_journal_citing_eige"
	ColWeight       = "ranking/weight"
	ColCitations    = "number_of_citations_(using_google_scholar)"
	ColImpactFactor = "impact_factor_of_the_journal:_1_respectable;_2_strong;_3_very_strong_(using_free_version_of_scopus)"
	ColSentiment    = "category_of_mention:_1_positive;_0_neutral;_-1_negative"
	ColLocation     = "location_of_the_citation:_3_body_of_the_article;_2_introduction;_1_bibliography/reference"
	ColShortLabels  = "short_labels"

	AggSuffix = "_agg"
)

const (
	ValueOther   = "Other"
	ValueUnknown = "Unknown"
)

// Table is a row-oriented table of nullable string cells. Rows are aligned
// with Columns; a nil cell is a null.
type Table struct {
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
}

func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

func (t *Table) Has(column string) bool {
	return t.Index(column) >= 0
}

// Column returns a copy of the cells of one column, or nil when the column
// is absent.
func (t *Table) Column(column string) []*string {
	idx := t.Index(column)
	if idx < 0 {
		return nil
	}
	out := make([]*string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out
}

// SetColumn replaces the column's cells, appending the column when absent.
// values must have one entry per row.
func (t *Table) SetColumn(column string, values []*string) {
	idx := t.Index(column)
	if idx < 0 {
		t.Columns = append(t.Columns, column)
		idx = len(t.Columns) - 1
	}
	for i := range t.Rows {
		for len(t.Rows[i]) <= idx {
			t.Rows[i] = append(t.Rows[i], nil)
		}
		if i < len(values) {
			t.Rows[i][idx] = values[i]
		} else {
			t.Rows[i][idx] = nil
		}
	}
}

func (t *Table) AppendRow(cells ...*string) {
	row := make([]*string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Cell returns the value at row i in column, or nil.
func (t *Table) Cell(i int, column string) *string {
	idx := t.Index(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) || idx >= len(t.Rows[i]) {
		return nil
	}
	return t.Rows[i][idx]
}

// Head returns a table sharing the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

func (t *Table) Clone() *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...), Rows: make([][]*string, len(t.Rows))}
	for i, row := range t.Rows {
		out.Rows[i] = append([]*string(nil), row...)
	}
	return out
}

type Metrics struct {
	Citations    *float64 `json:"citations"`
	ImpactFactor *float64 `json:"impactFactor"`
	Sentiment    *float64 `json:"sentiment"`
	Location     *float64 `json:"location"`
}

type CitationRecord struct {
	Row                int        `json:"row"`
	PublicationDate    *time.Time `json:"publicationDate"`
	DocumentTitle      *string    `json:"documentTitle"`
	DocumentURL        *string    `json:"documentUrl"`
	Journal            *string    `json:"journal"`
	Authors            []string   `json:"authors"`
	Institutions       []string   `json:"institutions"`
	OutputType         string     `json:"outputType"`
	OutputTypeCategory string     `json:"outputTypeCategory"`
	OutputCited        *string    `json:"outputCited"`
	ShortLabel         *string    `json:"shortLabel"`
	Metrics            Metrics    `json:"metrics"`
	Weight             *float64   `json:"weight"`
}

type GeoPoint struct {
	Institution string  `json:"institution"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type FrequencyEntry struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type RunRow struct {
	ID        int
	TraceID   string
	SourceKey string
	Timings   map[string]float64
	Counts    map[string]int
	CreatedAt string
}
