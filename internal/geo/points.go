package geo

import (
	"math"
	"strconv"
	"strings"

	"citemon/internal"
	"citemon/internal/util"
)

var (
	latitudeColumns  = []string{"latitude", "lat"}
	longitudeColumns = []string{"longitude", "lon", "lng", "long"}
)

// Points reads institution coordinates from a normalized map table. Rows
// whose coordinates are missing, non-numeric or out of range are dropped.
func Points(t *internal.Table, nameColumn string) []internal.GeoPoint {
	latCol := firstPresent(t, latitudeColumns)
	lonCol := firstPresent(t, longitudeColumns)
	if latCol == "" || lonCol == "" {
		return []internal.GeoPoint{}
	}

	out := []internal.GeoPoint{}
	for i := range t.Rows {
		lat := ParseCoordinate(t.Cell(i, latCol))
		lon := ParseCoordinate(t.Cell(i, lonCol))
		if !Valid(lat, lon) {
			continue
		}
		out = append(out, internal.GeoPoint{
			Institution: util.Deref(t.Cell(i, nameColumn)),
			Latitude:    *lat,
			Longitude:   *lon,
		})
	}
	return out
}

// Unlocated lists the distinct names of rows that Points drops, in order of
// first appearance. Rows without a name are ignored.
func Unlocated(t *internal.Table, nameColumn string) []string {
	latCol := firstPresent(t, latitudeColumns)
	lonCol := firstPresent(t, longitudeColumns)
	seen := map[string]struct{}{}
	out := []string{}
	for i := range t.Rows {
		name := t.Cell(i, nameColumn)
		if util.IsBlank(name) {
			continue
		}
		if latCol != "" && lonCol != "" && Valid(ParseCoordinate(t.Cell(i, latCol)), ParseCoordinate(t.Cell(i, lonCol))) {
			continue
		}
		if _, dup := seen[*name]; dup {
			continue
		}
		seen[*name] = struct{}{}
		out = append(out, *name)
	}
	return out
}

// ParseCoordinate reads a decimal degree value. A lone comma is taken as
// the decimal separator; dots are never thousand separators.
func ParseCoordinate(v *string) *float64 {
	if util.IsBlank(v) {
		return nil
	}
	s := strings.TrimSpace(*v)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Valid reports whether both coordinates are present and in range.
func Valid(lat, lon *float64) bool {
	if lat == nil || lon == nil {
		return false
	}
	return *lat >= -90 && *lat <= 90 && *lon >= -180 && *lon <= 180
}

func firstPresent(t *internal.Table, candidates []string) string {
	for _, c := range candidates {
		if t.Has(c) {
			return c
		}
	}
	return ""
}
