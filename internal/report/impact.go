package report

import (
	"sort"
	"time"

	"citemon/internal"
)

// ImpactProfile is the mean of the four impact metrics over a document's
// mentions.
type ImpactProfile struct {
	Document     string   `json:"document"`
	Weight       *float64 `json:"weight"`
	Citations    float64  `json:"citations"`
	ImpactFactor float64  `json:"impactFactor"`
	Sentiment    float64  `json:"sentiment"`
	Location     float64  `json:"location"`
}

var sentimentScale = map[float64]float64{-1: 0, 0: 1.5, 1: 3}

type profileAcc struct {
	profile                ImpactProfile
	n, sentimentN          int
	citations, impact, loc float64
	sentiment              float64
}

// ImpactProfiles averages the metrics per (citing document, weight) pair,
// ordered by weight, heaviest first; rows without a weight form their own
// profile per document and come last. Missing metrics count as zero.
// Sentiment is rescaled to the other metrics' 0..3 range (-1 -> 0, 0 -> 1.5,
// 1 -> 3); values outside -1, 0 and 1 are left out of the sentiment mean.
func ImpactProfiles(records []internal.CitationRecord) []ImpactProfile {
	type groupKey struct {
		doc       string
		weight    float64
		hasWeight bool
	}
	idx := map[groupKey]int{}
	var accs []*profileAcc
	for _, r := range records {
		if r.DocumentTitle == nil {
			continue
		}
		k := groupKey{doc: *r.DocumentTitle}
		if r.Weight != nil {
			k.weight, k.hasWeight = *r.Weight, true
		}
		i, ok := idx[k]
		if !ok {
			i = len(accs)
			idx[k] = i
			accs = append(accs, &profileAcc{profile: ImpactProfile{Document: k.doc, Weight: r.Weight}})
		}
		a := accs[i]
		a.n++
		a.citations += zero(r.Metrics.Citations)
		a.impact += zero(r.Metrics.ImpactFactor)
		a.loc += zero(r.Metrics.Location)
		if s, ok := sentimentScale[zero(r.Metrics.Sentiment)]; ok {
			a.sentiment += s
			a.sentimentN++
		}
	}

	out := make([]ImpactProfile, 0, len(accs))
	for _, a := range accs {
		p := a.profile
		p.Citations = a.citations / float64(a.n)
		p.ImpactFactor = a.impact / float64(a.n)
		p.Location = a.loc / float64(a.n)
		if a.sentimentN > 0 {
			p.Sentiment = a.sentiment / float64(a.sentimentN)
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return heavier(out[i].Weight, out[j].Weight) })
	return out
}

type RankedDocument struct {
	Rank     int     `json:"rank"`
	Document string  `json:"document"`
	Weight   float64 `json:"weight"`
}

// TopWeighted ranks distinct citing documents by weight, heaviest first,
// and keeps the first n. Documents without a weight are not ranked.
func TopWeighted(records []internal.CitationRecord, n int) []RankedDocument {
	seen := map[string]struct{}{}
	var out []RankedDocument
	for _, r := range records {
		if r.DocumentTitle == nil || r.Weight == nil {
			continue
		}
		if _, dup := seen[*r.DocumentTitle]; dup {
			continue
		}
		seen[*r.DocumentTitle] = struct{}{}
		out = append(out, RankedDocument{Document: *r.DocumentTitle, Weight: *r.Weight})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

type MonthTypeCitations struct {
	Month      time.Month `json:"month"`
	OutputType string     `json:"outputType"`
	Citations  float64    `json:"citations"`
}

// CitationsByMonthAndType sums citation counts per month and output type.
// Rows without a date or a citation count are skipped.
func CitationsByMonthAndType(records []internal.CitationRecord) []MonthTypeCitations {
	type key struct {
		m time.Month
		t string
	}
	sums := map[key]float64{}
	var order []key
	for _, r := range records {
		if r.PublicationDate == nil || r.Metrics.Citations == nil {
			continue
		}
		k := key{r.PublicationDate.Month(), r.OutputType}
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += *r.Metrics.Citations
	}
	out := make([]MonthTypeCitations, 0, len(order))
	for _, k := range order {
		out = append(out, MonthTypeCitations{Month: k.m, OutputType: k.t, Citations: sums[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

type MonthAverage struct {
	Month time.Month `json:"month"`
	Value float64    `json:"value"`
}

// MonthlyAverageCitations averages citation counts per article within each
// month, then across the month's articles.
func MonthlyAverageCitations(records []internal.CitationRecord) []MonthAverage {
	type docStat struct {
		sum float64
		n   int
	}
	perMonth := map[time.Month]map[string]*docStat{}
	for _, r := range records {
		if r.PublicationDate == nil || r.DocumentTitle == nil || r.Metrics.Citations == nil {
			continue
		}
		m := r.PublicationDate.Month()
		if perMonth[m] == nil {
			perMonth[m] = map[string]*docStat{}
		}
		st := perMonth[m][*r.DocumentTitle]
		if st == nil {
			st = &docStat{}
			perMonth[m][*r.DocumentTitle] = st
		}
		st.sum += *r.Metrics.Citations
		st.n++
	}
	out := make([]MonthAverage, 0, len(perMonth))
	for m, docs := range perMonth {
		total := 0.0
		for _, st := range docs {
			total += st.sum / float64(st.n)
		}
		out = append(out, MonthAverage{Month: m, Value: total / float64(len(docs))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func zero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func heavier(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a > *b
	}
}
