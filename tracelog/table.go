package tracelog

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Column holds the values of one field. A column is numeric when every value of
// the field parsed as a float, otherwise it keeps the raw text.
type Column struct {
	Name    string
	numeric bool
	floats  []float64
	strings []string
}

func FloatColumn(name string, values ...float64) *Column {
	return &Column{Name: name, numeric: true, floats: append([]float64{}, values...)}
}

func StringColumn(name string, values ...string) *Column {
	return &Column{Name: name, strings: append([]string{}, values...)}
}

func (c *Column) Numeric() bool { return c.numeric }

func (c *Column) Len() int {
	if c.numeric {
		return len(c.floats)
	}
	return len(c.strings)
}

func (c *Column) text(i int) string {
	if c.numeric {
		return strconv.FormatFloat(c.floats[i], 'f', -1, 64)
	}
	return c.strings[i]
}

func (c *Column) take(idx []int) *Column {
	out := &Column{Name: c.Name, numeric: c.numeric}
	if c.numeric {
		out.floats = make([]float64, len(idx))
		for k, i := range idx {
			out.floats[k] = c.floats[i]
		}
		return out
	}
	out.strings = make([]string, len(idx))
	for k, i := range idx {
		out.strings[k] = c.strings[i]
	}
	return out
}

// Table is an immutable set of equally long typed columns. Every transform
// returns a new Table; slices handed out by accessors must not be modified.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

func NewTable(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = i
		t.cols = append(t.cols, c)
	}
	return t, nil
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

func (t *Table) Columns() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

func (t *Table) Has(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[name]
	return ok
}

func (t *Table) Column(name string) (*Column, error) {
	if t != nil {
		if i, ok := t.index[name]; ok {
			return t.cols[i], nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownColumn, name)
}

func (t *Table) Floats(name string) ([]float64, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if !c.numeric {
		return nil, fmt.Errorf("%w: %q", ErrNotNumeric, name)
	}
	return c.floats, nil
}

// Strings returns the column as text, formatting numeric values.
func (t *Table) Strings(name string) ([]string, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if !c.numeric {
		return c.strings, nil
	}
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.text(i)
	}
	return out, nil
}

// Float returns the numeric value at row i; ok is false for unknown or text columns.
func (t *Table) Float(name string, i int) (float64, bool) {
	c, err := t.Column(name)
	if err != nil || !c.numeric {
		return math.NaN(), false
	}
	return c.floats[i], true
}

// Text returns the value at row i as text, "" for unknown columns.
func (t *Table) Text(name string, i int) string {
	c, err := t.Column(name)
	if err != nil {
		return ""
	}
	return c.text(i)
}

// Take returns the rows at idx, in idx order.
func (t *Table) Take(idx []int) *Table {
	out := &Table{index: t.index, rows: len(idx), cols: make([]*Column, len(t.cols))}
	for i, c := range t.cols {
		out.cols[i] = c.take(idx)
	}
	return out
}

// Filter returns the rows for which keep is true, in original order.
func (t *Table) Filter(keep func(i int) bool) *Table {
	idx := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return t.Take(idx)
}

// Concat appends tables row-wise. The result has the union of the columns in
// first-seen order; cells of a column missing from one table are NaN for numeric
// columns and "" for text ones. A column numeric in one table and text in another
// becomes text.
func Concat(tables ...*Table) *Table {
	type colDef struct {
		name    string
		numeric bool
	}
	var defs []colDef
	pos := make(map[string]int)
	rows := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		rows += t.rows
		for _, c := range t.cols {
			if i, ok := pos[c.Name]; ok {
				defs[i].numeric = defs[i].numeric && c.numeric
				continue
			}
			pos[c.Name] = len(defs)
			defs = append(defs, colDef{name: c.Name, numeric: c.numeric})
		}
	}
	out := &Table{index: make(map[string]int, len(defs)), rows: rows}
	for i, s := range defs {
		col := &Column{Name: s.name, numeric: s.numeric}
		if s.numeric {
			col.floats = make([]float64, 0, rows)
		} else {
			col.strings = make([]string, 0, rows)
		}
		for _, t := range tables {
			if t == nil {
				continue
			}
			j, ok := t.index[s.name]
			for r := 0; r < t.rows; r++ {
				switch {
				case s.numeric && ok:
					col.floats = append(col.floats, t.cols[j].floats[r])
				case s.numeric:
					col.floats = append(col.floats, math.NaN())
				case ok:
					col.strings = append(col.strings, t.cols[j].text(r))
				default:
					col.strings = append(col.strings, "")
				}
			}
		}
		out.index[s.name] = i
		out.cols = append(out.cols, col)
	}
	return out
}

// normalizeHeader turns Tstat style header tokens such as "#15#c_ip:1" or
// "c_port:2" into plain field names.
func normalizeHeader(tok string) string {
	if i := strings.LastIndex(tok, "#"); i >= 0 {
		tok = tok[i+1:]
	}
	if i := strings.LastIndex(tok, ":"); i > 0 {
		suffix := tok[i+1:]
		if len(suffix) > 0 && strings.IndexFunc(suffix, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
			tok = tok[:i]
		}
	}
	return tok
}

//longest accepted line of a log file
const maxLineSize = 16 * 1024 * 1024

// ParseTable reads whitespace-delimited text whose first non-blank line is the header.
// path is only used to name the source in errors.
func ParseTable(r io.Reader, path string) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	var header []string
	var raw [][]string
	lineno := 0
	for scanner.Scan() {
		lineno++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if header == nil {
			header = make([]string, len(fields))
			for i, f := range fields {
				header[i] = normalizeHeader(f)
				if len(header[i]) == 0 {
					return nil, &MalformedRecordError{Path: path, Line: lineno, Reason: fmt.Sprintf("empty column name %q", f)}
				}
			}
			raw = make([][]string, len(header))
			continue
		}
		if len(fields) != len(header) {
			return nil, &MalformedRecordError{Path: path, Line: lineno,
				Reason: fmt.Sprintf("%d fields, header has %d", len(fields), len(header))}
		}
		for i, f := range fields {
			raw[i] = append(raw[i], f)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &MalformedRecordError{Path: path, Line: lineno, Reason: err.Error()}
	}
	if header == nil {
		return nil, &MalformedRecordError{Path: path, Reason: "no header"}
	}
	cols := make([]*Column, len(header))
	for i, name := range header {
		cols[i] = typedColumn(name, raw[i])
	}
	t, err := NewTable(cols...)
	if err != nil {
		return nil, &MalformedRecordError{Path: path, Line: 1, Reason: err.Error()}
	}
	return t, nil
}

func typedColumn(name string, values []string) *Column {
	floats := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &Column{Name: name, strings: values}
		}
		floats[i] = f
	}
	return &Column{Name: name, numeric: true, floats: floats}
}

// ReadTable parses one log file. A missing or unreadable file is ErrDataUnavailable.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer f.Close()
	return ParseTable(f, path)
}
