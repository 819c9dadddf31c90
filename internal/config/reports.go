package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Report describes one report render: which spreadsheets feed it and the
// period it covers.
type Report struct {
	ID         string   `yaml:"id"`
	Title      string   `yaml:"title"`
	Year       int      `yaml:"year"`
	Months     []int    `yaml:"months,omitempty"`
	Sources    []string `yaml:"sources"`
	GeoSources []string `yaml:"geo_sources,omitempty"`
	Grain      string   `yaml:"grain,omitempty"`
}

type Reports struct {
	Reports []Report `yaml:"reports"`
}

// LoadReports reads the report definitions file.
func LoadReports(path string) (*Reports, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reports file: %w", err)
	}
	return ParseReports(data)
}

func ParseReports(data []byte) (*Reports, error) {
	var out Reports
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing reports file: %w", err)
	}

	seen := map[string]struct{}{}
	for i, r := range out.Reports {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, fmt.Errorf("report #%d: missing id", i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("report %s: duplicate id", id)
		}
		seen[id] = struct{}{}
		if len(r.Sources) == 0 {
			return nil, fmt.Errorf("report %s: no sources", id)
		}
		for _, m := range r.Months {
			if m < 1 || m > 12 {
				return nil, fmt.Errorf("report %s: invalid month %d", id, m)
			}
		}
		switch r.Grain {
		case "", "rows", "documents":
		default:
			return nil, fmt.Errorf("report %s: unsupported grain %q", id, r.Grain)
		}
		out.Reports[i].ID = id
	}
	return &out, nil
}

func (r *Reports) Find(id string) (Report, error) {
	for _, report := range r.Reports {
		if report.ID == id {
			return report, nil
		}
	}
	return Report{}, fmt.Errorf("report not found: %s", id)
}
