package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"citemon/internal"
	"citemon/internal/config"
)

const (
	GrainRows      = "rows"
	GrainDocuments = "documents"
)

type Options struct {
	Anchor       string
	Placeholder  string
	Grain        string
	Authors      TokenFilter
	Institutions TokenFilter
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Anchor:       cfg.AnchorColumn,
		Placeholder:  cfg.PlaceholderValue,
		Grain:        cfg.TokenGrain,
		Authors:      AuthorFilter(cfg),
		Institutions: InstitutionFilter(cfg),
	}
}

type Quality struct {
	RowsLoaded      int `json:"rowsLoaded"`
	RowsTrimmed     int `json:"rowsTrimmed"`
	UnparsedDates   int `json:"unparsedDates"`
	UnparsedMetrics int `json:"unparsedMetrics"`
	FilledUnknown   int `json:"filledUnknown"`
}

// Dataset is the cleaned output of one render.
type Dataset struct {
	Table        *internal.Table           `json:"table"`
	Records      []internal.CitationRecord `json:"records"`
	Authors      Explanation               `json:"authors"`
	Institutions Explanation               `json:"institutions"`
	Mismatch     *SchemaMismatch           `json:"mismatch,omitempty"`
	Quality      Quality                   `json:"quality"`
	Timings      map[string]float64        `json:"-"`
}

// Run cleans a loaded table: normalize columns, trim trailing rows, derive
// the aggregated category, canonical dates, short labels and entity counts,
// then fill missing categories and build records. The input table is not
// modified.
func Run(ctx context.Context, raw *internal.Table, opts Options) (*Dataset, error) {
	if raw == nil {
		return nil, fmt.Errorf("run: nil table")
	}
	if opts.Anchor == "" {
		opts.Anchor = internal.ColDocument
	}
	timings := map[string]float64{}
	mark := func(stage string, started time.Time) {
		timings[stage] = float64(time.Since(started).Microseconds()) / 1000
	}

	started := time.Now()
	table := NormalizeColumns(raw.Clone())
	mark("normalize", started)

	started = time.Now()
	table, trimmed := TrimTrailing(table, opts.Anchor)
	table = table.Clone()
	mark("trim", started)

	mismatch := Validate(table, RequiredColumns)

	var (
		aggCells, labelCells, dateCells []*string
		aggOK, labelOK, dateOK          bool
		unparsedDates                   int
		authors, institutions           Explanation
	)
	entities := table
	if opts.Grain == GrainDocuments {
		entities = UniqueDocuments(table, internal.ColDocument)
	}

	started = time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		aggCells, aggOK = AggregateRare(table, internal.ColOutputType, opts.Placeholder)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		dateCells, _, unparsedDates, dateOK = NormalizeDates(table, internal.ColDate)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		labelCells, labelOK = ShortLabels(table, internal.ColOutputCited)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		authors = Explain(entities.Column(internal.ColAuthors), opts.Authors)
		institutions = Explain(entities.Column(internal.ColInstitutions), opts.Institutions)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	mark("derive", started)

	if aggOK {
		table.SetColumn(internal.ColOutputType+internal.AggSuffix, aggCells)
	}
	if dateOK {
		table.SetColumn(internal.ColDate, dateCells)
	}
	if labelOK {
		table.SetColumn(internal.ColShortLabels, labelCells)
	}

	filled := FillUnknown(table, FillColumns)

	started = time.Now()
	records, unparsedMetrics := BuildRecords(table)
	mark("records", started)

	return &Dataset{
		Table:        table,
		Records:      records,
		Authors:      authors,
		Institutions: institutions,
		Mismatch:     mismatch,
		Quality: Quality{
			RowsLoaded:      raw.Len(),
			RowsTrimmed:     trimmed,
			UnparsedDates:   unparsedDates,
			UnparsedMetrics: unparsedMetrics,
			FilledUnknown:   filled,
		},
		Timings: timings,
	}, nil
}
