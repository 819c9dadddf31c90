package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"citemon/internal"
	"citemon/internal/app"
	"citemon/internal/config"
	"citemon/internal/geo"
	"citemon/internal/pipeline"
	"citemon/internal/report"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, os.Stderr)
	a, err := app.Open(cfg, logger)
	must(err)
	defer a.Close()

	ctx := context.Background()
	cmd := os.Args[1]
	switch cmd {
	case "render":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sel := selection(fs)
		out := fs.String("out", "", "output xlsx path")
		grain := fs.String("grain", "", "rows|documents")
		noCache := fs.Bool("no-cache", false, "bypass the dataset cache")
		_ = fs.Parse(os.Args[2:])
		must(checkGrain(*grain))
		rep := sel.resolve(a)
		ds := render(ctx, a, rep, *grain, *noCache)

		path := strings.TrimSpace(*out)
		if path == "" {
			path = filepath.Join(cfg.OutputDir, fileName(rep)+".xlsx")
		}
		records := report.InPeriod(ds.Records, rep.Year, rep.Months)
		must(report.ExportXLSX(ds, report.Build(records, report.DefaultTopN), path))
		fmt.Printf("render done rows=%d trimmed=%d records=%d unparsed_dates=%d output=%s\n",
			ds.Quality.RowsLoaded, ds.Quality.RowsTrimmed, len(records), ds.Quality.UnparsedDates, path)
	case "authors", "institutions":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sel := selection(fs)
		grain := fs.String("grain", "", "rows|documents")
		all := fs.Bool("all", false, "print every token, not only repeating ones")
		_ = fs.Parse(os.Args[2:])
		must(checkGrain(*grain))
		rep := sel.resolve(a)
		ds := render(ctx, a, rep, *grain, false)

		ex := ds.Authors
		if cmd == "institutions" {
			ex = ds.Institutions
		}
		entries := ex.Repeating
		if *all {
			entries = ex.Counts
		}
		for _, e := range entries {
			fmt.Printf("%d\t%s\n", e.Count, e.Value)
		}
		fmt.Printf("%s: %d shown, %d distinct\n", cmd, len(entries), len(ex.Counts))
	case "summary":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sel := selection(fs)
		top := fs.Int("top", report.DefaultTopN, "number of ranked documents")
		_ = fs.Parse(os.Args[2:])
		rep := sel.resolve(a)
		ds := render(ctx, a, rep, "", false)
		printSummary(rep, report.Build(report.InPeriod(ds.Records, rep.Year, rep.Months), *top))
	case "geo":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sel := selection(fs)
		geocode := fs.Bool("geocode", false, "look up institutions without coordinates")
		out := fs.String("out", "", "optional output xlsx path")
		_ = fs.Parse(os.Args[2:])
		rep := sel.resolve(a)
		sources := rep.GeoSources
		if len(sources) == 0 {
			sources = rep.Sources
		}
		raw, err := a.Loader.Load(ctx, sources)
		must(err)
		table := pipeline.NormalizeColumns(raw)

		points := geo.Points(table, cfg.GeoNameColumn)
		if *geocode {
			g := geo.NewGeocoder(cfg, a.DB, logger)
			found, err := g.GeocodeAll(ctx, geo.Unlocated(table, cfg.GeoNameColumn))
			must(err)
			points = append(points, found...)
		}
		for _, p := range points {
			fmt.Printf("%.5f\t%.5f\t%s\n", p.Latitude, p.Longitude, p.Institution)
		}
		if strings.TrimSpace(*out) != "" {
			must(pipeline.ExportToXLSX(*out, geoSheet(points)))
		}
		fmt.Printf("geo done points=%d\n", len(points))
	case "cache:clear":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sel := selection(fs)
		_ = fs.Parse(os.Args[2:])
		var sources []string
		if sel.given() {
			sources = sel.resolve(a).Sources
		}
		n, err := a.Service.Invalidate(sources)
		must(err)
		fmt.Printf("cache cleared entries=%d\n", n)
	case "runs":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "number of runs")
		_ = fs.Parse(os.Args[2:])
		runs, err := a.DB.ListRuns(*limit)
		must(err)
		for _, r := range runs {
			fmt.Printf("%s\t%s\tkey=%s\trecords=%d\ttotal_ms=%.0f\n",
				r.CreatedAt, r.TraceID, shortKey(r.SourceKey), r.Counts["records"], r.Timings["totalMs"])
		}
	default:
		usage()
		os.Exit(1)
	}
}

type sourceFlags struct {
	reportID *string
	source   *string
}

func selection(fs *flag.FlagSet) sourceFlags {
	return sourceFlags{
		reportID: fs.String("report", "", "report id from the reports file"),
		source:   fs.String("source", "", "comma-separated spreadsheet paths, URLs or gdrive:IDs"),
	}
}

func (s sourceFlags) given() bool {
	return strings.TrimSpace(*s.reportID) != "" || strings.TrimSpace(*s.source) != ""
}

// resolve turns --report or --source into a report definition. Ad hoc
// sources get an unbounded period.
func (s sourceFlags) resolve(a *app.App) config.Report {
	if id := strings.TrimSpace(*s.reportID); id != "" {
		reports, err := a.Reports()
		must(err)
		rep, err := reports.Find(id)
		must(err)
		return rep
	}
	var sources []string
	for _, src := range strings.Split(*s.source, ",") {
		if src = strings.TrimSpace(src); src != "" {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		must(fmt.Errorf("--report or --source is required"))
	}
	return config.Report{ID: "adhoc", Sources: sources}
}

func render(ctx context.Context, a *app.App, rep config.Report, grain string, noCache bool) *pipeline.Dataset {
	if grain == "" {
		grain = rep.Grain
	}
	ds, err := a.Service.Render(ctx, rep.Sources, pipeline.RenderOptions{Grain: grain, NoCache: noCache})
	must(err)
	if ds.Mismatch != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", ds.Mismatch)
	}
	return ds
}

func checkGrain(grain string) error {
	if !pipeline.ValidGrain(grain) {
		return fmt.Errorf("--grain must be %s or %s, got %q", pipeline.GrainRows, pipeline.GrainDocuments, grain)
	}
	return nil
}

func printSummary(rep config.Report, s report.Summary) {
	title := rep.Title
	if title == "" {
		title = rep.ID
	}
	fmt.Printf("%s (%s)\n\n", title, s.Months)
	fmt.Printf("%-8s %12s %9s\n", "quarter", "publications", "mentions")
	for _, q := range s.Quarters {
		fmt.Printf("%-8s %12d %9d\n", q.Quarter, q.Publications, q.Mentions)
	}
	fmt.Printf("\nmost active: %s\n", report.JoinMonths(s.MostActive))
	fmt.Printf("least active: %s\n", report.JoinMonths(s.LeastActive))
	fmt.Printf("total citations: %d\n", s.TotalCitations)

	fmt.Println("\noutput types:")
	for _, e := range s.OutputTypes {
		fmt.Printf("  %4d  %s\n", e.Count, e.Value)
	}
	fmt.Println("\ntop documents:")
	for _, d := range s.Top {
		fmt.Printf("  %d. %s (%g)\n", d.Rank, d.Document, d.Weight)
	}
}

func geoSheet(points []internal.GeoPoint) pipeline.Sheet {
	s := pipeline.Sheet{Name: "geo", Header: []string{"institution", "latitude", "longitude"}}
	for _, p := range points {
		s.Rows = append(s.Rows, []any{p.Institution, p.Latitude, p.Longitude})
	}
	return s
}

func fileName(rep config.Report) string {
	repl := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return repl.Replace(rep.ID)
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

func usage() {
	fmt.Println("usage: citemon <command>")
	fmt.Println("commands:")
	fmt.Println("  render --report=ID | --source=a.xlsx,b.csv [--out=./out/report.xlsx] [--grain=rows|documents] [--no-cache]")
	fmt.Println("  authors --report=ID | --source=... [--all] [--grain=rows|documents]")
	fmt.Println("  institutions --report=ID | --source=... [--all] [--grain=rows|documents]")
	fmt.Println("  summary --report=ID | --source=... [--top=5]")
	fmt.Println("  geo --report=ID | --source=... [--geocode] [--out=./out/geo.xlsx]")
	fmt.Println("  cache:clear [--report=ID | --source=...]")
	fmt.Println("  runs [--limit=20]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
