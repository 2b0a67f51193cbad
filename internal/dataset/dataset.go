package dataset

import (
	"fmt"
	"math"
)

// Kind is the inferred storage kind of a column.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindText    Kind = "text"
)

// Column is one named column. Numeric columns carry Values with NaN marking
// nulls; text columns carry Strings with "" marking nulls.
type Column struct {
	Name    string
	Kind    Kind
	Values  []float64
	Strings []string
}

// NumericColumn builds a numeric column.
func NumericColumn(name string, values []float64) Column {
	return Column{Name: name, Kind: KindNumeric, Values: values}
}

// TextColumn builds a text column.
func TextColumn(name string, values []string) Column {
	return Column{Name: name, Kind: KindText, Strings: values}
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	if c.Kind == KindNumeric {
		return len(c.Values)
	}
	return len(c.Strings)
}

// IsNull reports whether cell i is missing.
func (c *Column) IsNull(i int) bool {
	if c.Kind == KindNumeric {
		return math.IsNaN(c.Values[i])
	}
	return c.Strings[i] == ""
}

// NullCount counts missing cells.
func (c *Column) NullCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			n++
		}
	}
	return n
}

// Valid returns the non-null numeric values, in row order.
func (c *Column) Valid() []float64 {
	if c.Kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Cell renders cell i as text.
func (c *Column) Cell(i int) string {
	if c.Kind == KindNumeric {
		v := c.Values[i]
		if math.IsNaN(v) {
			return "NaN"
		}
		return formatFloat(v)
	}
	return c.Strings[i]
}

// Dataset is an ordered collection of equally long, uniquely named columns.
// A Dataset is never mutated after construction: Drop, Select and Take return
// new values that may share column storage with the receiver.
type Dataset struct {
	Name  string
	cols  []Column
	index map[string]int
	rows  int
}

// New validates and assembles a dataset.
func New(name string, cols ...Column) (*Dataset, error) {
	d := &Dataset{Name: name, cols: make([]Column, 0, len(cols)), index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c.Name == "" {
			return nil, &DataError{Reason: fmt.Sprintf("column %d has an empty name", i)}
		}
		if _, dup := d.index[c.Name]; dup {
			return nil, &DataError{Column: c.Name, Reason: "duplicate column name"}
		}
		if i == 0 {
			d.rows = c.Len()
		} else if c.Len() != d.rows {
			return nil, &DataError{Column: c.Name, Reason: fmt.Sprintf("has %d rows, expected %d", c.Len(), d.rows)}
		}
		d.index[c.Name] = len(d.cols)
		d.cols = append(d.cols, c)
	}
	return d, nil
}

// Rows returns the row count.
func (d *Dataset) Rows() int { return d.rows }

// Width returns the column count.
func (d *Dataset) Width() int { return len(d.cols) }

// Names returns column names in dataset order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// Has reports whether a column exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return &d.cols[i], true
}

// ColumnAt returns the i-th column.
func (d *Dataset) ColumnAt(i int) *Column { return &d.cols[i] }

// Drop returns a dataset without the named columns, preserving the order of
// the survivors. Unknown names are ignored.
func (d *Dataset) Drop(names ...string) *Dataset {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	kept := make([]Column, 0, len(d.cols))
	for _, c := range d.cols {
		if _, ok := skip[c.Name]; ok {
			continue
		}
		kept = append(kept, c)
	}
	out, _ := New(d.Name, kept...)
	if len(kept) == 0 {
		out.rows = d.rows
	}
	return out
}

// Select returns a dataset with the named columns in the requested order.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c, ok := d.Column(n)
		if !ok {
			return nil, &DataError{Column: n, Reason: "column not found"}
		}
		cols = append(cols, *c)
	}
	return New(d.Name, cols...)
}

// Take returns a dataset holding the given rows, in the given order.
func (d *Dataset) Take(rows []int) *Dataset {
	cols := make([]Column, len(d.cols))
	for j, c := range d.cols {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == KindNumeric {
			nc.Values = make([]float64, len(rows))
			for i, r := range rows {
				nc.Values[i] = c.Values[r]
			}
		} else {
			nc.Strings = make([]string, len(rows))
			for i, r := range rows {
				nc.Strings[i] = c.Strings[r]
			}
		}
		cols[j] = nc
	}
	out, _ := New(d.Name, cols...)
	out.rows = len(rows)
	return out
}

// Head returns up to n rows rendered as text, for previews.
func (d *Dataset) Head(n int) [][]string {
	if n > d.rows {
		n = d.rows
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(d.cols))
		for j := range d.cols {
			row[j] = d.cols[j].Cell(i)
		}
		out[i] = row
	}
	return out
}
