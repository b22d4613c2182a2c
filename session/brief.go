package session

import (
	"strings"

	"streamtrace/tracelog"
)

// Category counts the records whose label column contains Match.
type Category struct {
	Name  string `json:"name"`
	Match string `json:"match"`
}

var DefaultCategories = []Category{
	{Name: "video", Match: "video"},
	{Name: "audio", Match: "audio"},
	{Name: "mpd", Match: "dash"},
}

type CategoryCount struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Rate  float64 `json:"rate"`
}

// Briefing summarizes the records falling in one period.
type Briefing struct {
	Period
	SpanSeconds int64           `json:"span"`
	Counts      []CategoryCount `json:"counts"`
}

// Brief counts, for every period, the records with timeCol in [start, end]
// per category and divides by the period span in seconds. A period shorter
// than one second has rate 0.
func Brief(periods []Period, records *tracelog.Table, timeCol, labelCol string, categories []Category) ([]Briefing, error) {
	ts, err := records.Floats(timeCol)
	if err != nil {
		return nil, err
	}
	labels, err := records.Strings(labelCol)
	if err != nil {
		return nil, err
	}
	out := make([]Briefing, 0, len(periods))
	for _, p := range periods {
		b := Briefing{Period: p, SpanSeconds: p.Span(), Counts: make([]CategoryCount, len(categories))}
		for k, c := range categories {
			b.Counts[k].Name = c.Name
		}
		for i := range ts {
			if !p.Contains(ts[i]) {
				continue
			}
			for k, c := range categories {
				if strings.Contains(labels[i], c.Match) {
					b.Counts[k].Count++
				}
			}
		}
		if b.SpanSeconds > 0 {
			for k := range b.Counts {
				b.Counts[k].Rate = float64(b.Counts[k].Count) / float64(b.SpanSeconds)
			}
		}
		out = append(out, b)
	}
	return out, nil
}
