package session

import (
	"fmt"
	"log/slog"
	"regexp"

	"streamtrace/tracelog"
)

// DefaultExclude matches the bookkeeping events the bot writes around the
// streaming ones.
const DefaultExclude = "sniffer|browser|origin|net|app"

// Period is one streaming period, in milliseconds relative to the session start.
type Period struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Name  string `json:"name"`
}

// Span is the length of the period in whole seconds, truncated.
func (p Period) Span() int64 {
	return (p.End - p.Start) / 1000
}

// Contains reports whether ts lies in [Start, End].
func (p Period) Contains(ts float64) bool {
	return ts >= float64(p.Start) && ts <= float64(p.End)
}

type Segmentation struct {
	Events   []tracelog.Event `json:"events"`
	Periods  []Period         `json:"periods"`
	Unpaired *tracelog.Event  `json:"unpaired,omitempty"`
}

type Segmenter struct {
	exclude *regexp.Regexp
	logger  *slog.Logger
}

// NewSegmenter compiles pattern as a case-insensitive exclusion expression.
// An empty pattern excludes nothing.
func NewSegmenter(pattern string, logger *slog.Logger) (*Segmenter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Segmenter{logger: logger}
	if len(pattern) > 0 {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		s.exclude = re
	}
	return s, nil
}

// Segment drops the excluded events and pairs the remaining ones in order:
// (0,1), (2,3), ... A trailing event without a partner does not make a period;
// it is reported in Unpaired.
func (s *Segmenter) Segment(events []tracelog.Event) Segmentation {
	kept := make([]tracelog.Event, 0, len(events))
	for _, e := range events {
		if s.exclude != nil && s.exclude.MatchString(e.Name) {
			continue
		}
		kept = append(kept, e)
	}
	seg := Segmentation{Events: kept, Periods: make([]Period, 0, len(kept)/2)}
	for i := 0; i+1 < len(kept); i += 2 {
		seg.Periods = append(seg.Periods, Period{Start: kept[i].Rel, End: kept[i+1].Rel, Name: kept[i].Name})
	}
	if len(kept)%2 == 1 {
		last := kept[len(kept)-1]
		seg.Unpaired = &last
		s.logger.Warn("unpaired streaming event dropped", "event", last.Name, "rel", last.Rel, "events", len(kept))
	}
	return seg
}

// SegmentPeriods segments events with the default exclusion pattern,
// logging to the current slog default.
func SegmentPeriods(events []tracelog.Event) []Period {
	s, _ := NewSegmenter(DefaultExclude, nil)
	return s.Segment(events).Periods
}
