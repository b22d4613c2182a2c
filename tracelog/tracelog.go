package tracelog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Event is one row of the bot log: a timestamp relative to the session start
// and a free text event name.
type Event struct {
	Rel  int64  `json:"rel"`
	Name string `json:"event"`
}

const (
	RelColumn   = "rel"
	EventColumn = "event"
)

// ParseEvents reads a bot log. The header must name the rel and event columns;
// when event is the last column it absorbs any extra fields of a row, so names
// may contain blanks. Events are returned ordered by rel, ties in file order.
func ParseEvents(r io.Reader, path string) ([]Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	var header []string
	relidx, evtidx := -1, -1
	events := []Event{}
	lineno := 0
	for scanner.Scan() {
		lineno++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if header == nil {
			header = fields
			for i, f := range header {
				switch normalizeHeader(f) {
				case RelColumn:
					relidx = i
				case EventColumn:
					evtidx = i
				}
			}
			if relidx < 0 || evtidx < 0 {
				return nil, &MalformedRecordError{Path: path, Line: lineno, Reason: "header lacks rel or event column"}
			}
			continue
		}
		last := evtidx == len(header)-1
		if len(fields) < len(header) || (len(fields) > len(header) && !last) {
			return nil, &MalformedRecordError{Path: path, Line: lineno,
				Reason: fmt.Sprintf("%d fields, header has %d", len(fields), len(header))}
		}
		rel, err := strconv.ParseFloat(fields[relidx], 64)
		if err != nil {
			return nil, &MalformedRecordError{Path: path, Line: lineno, Reason: "rel is not a number: " + fields[relidx]}
		}
		name := fields[evtidx]
		if last {
			name = strings.Join(fields[evtidx:], " ")
		}
		events = append(events, Event{Rel: int64(rel), Name: name})
	}
	if err := scanner.Err(); err != nil {
		return nil, &MalformedRecordError{Path: path, Line: lineno, Reason: err.Error()}
	}
	if header == nil {
		return nil, &MalformedRecordError{Path: path, Reason: "no header"}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Rel < events[j].Rel })
	return events, nil
}

func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer f.Close()
	return ParseEvents(f, path)
}
