package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// columnOrderKey holds the JSON-encoded column order. The schema already
// carries it; readers fall back on the key for files whose leaves were
// reordered by another writer.
const columnOrderKey = "featprune.columns"

const rowBatch = 1024

func readParquet(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: fmt.Errorf("open parquet: %w", err)}
	}

	type leaf struct {
		name    string
		numeric bool
		vals    []float64
		strs    []string
	}
	nrows := int(pf.NumRows())
	byIndex := map[int]*leaf{}
	var leaves []*leaf
	for _, c := range pf.Root().Columns() {
		if !c.Leaf() || c.MaxRepetitionLevel() > 0 {
			return nil, &DataError{Column: c.Name(), Reason: "nested or repeated parquet columns are not supported"}
		}
		l := &leaf{name: c.Name()}
		switch c.Type().Kind() {
		case parquet.Boolean, parquet.Int32, parquet.Int64, parquet.Float, parquet.Double:
			l.numeric = true
			l.vals = make([]float64, 0, nrows)
		default:
			l.strs = make([]string, 0, nrows)
		}
		byIndex[c.Index()] = l
		leaves = append(leaves, l)
	}

	buf := make([]parquet.Row, rowBatch)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				for _, v := range row {
					l := byIndex[v.Column()]
					if l == nil {
						continue
					}
					if l.numeric {
						l.vals = append(l.vals, numericValue(v))
					} else if v.IsNull() {
						l.strs = append(l.strs, "")
					} else {
						l.strs = append(l.strs, v.String())
					}
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				_ = rows.Close()
				return nil, &IOError{Op: "read", Path: path, Err: fmt.Errorf("read rows: %w", err)}
			}
		}
		if err := rows.Close(); err != nil {
			return nil, &IOError{Op: "read", Path: path, Err: err}
		}
	}

	cols := make([]Column, 0, len(leaves))
	pos := map[string]int{}
	for _, l := range leaves {
		// pandas writes a non-default index as an extra column
		if strings.HasPrefix(l.name, "__index_level_") {
			continue
		}
		pos[l.name] = len(cols)
		if l.numeric {
			cols = append(cols, NumericColumn(l.name, l.vals))
		} else {
			cols = append(cols, TextColumn(l.name, l.strs))
		}
	}
	if order, ok := pf.Lookup(columnOrderKey); ok {
		var names []string
		if err := json.Unmarshal([]byte(order), &names); err == nil && len(names) == len(cols) {
			ordered := make([]Column, 0, len(cols))
			for _, n := range names {
				i, ok := pos[n]
				if !ok {
					ordered = nil
					break
				}
				ordered = append(ordered, cols[i])
			}
			if ordered != nil {
				cols = ordered
			}
		}
	}
	return New(filepath.Base(path), cols...)
}

func numericValue(v parquet.Value) float64 {
	if v.IsNull() {
		return math.NaN()
	}
	switch v.Kind() {
	case parquet.Boolean:
		if v.Boolean() {
			return 1
		}
		return 0
	case parquet.Int32:
		return float64(v.Int32())
	case parquet.Int64:
		return float64(v.Int64())
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	default:
		return math.NaN()
	}
}

// orderedSchema builds the file schema from a struct type so leaves keep the
// dataset's column order. A parquet.Group would sort them by name.
func orderedSchema(d *Dataset) (parquet.Node, error) {
	fields := make([]reflect.StructField, len(d.cols))
	for i, c := range d.cols {
		if c.Name == "-" || strings.Contains(c.Name, ",") {
			return nil, &DataError{Column: c.Name, Reason: "column name cannot be stored in a parquet schema"}
		}
		typ := reflect.TypeOf(float64(0))
		if c.Kind != KindNumeric {
			typ = reflect.TypeOf("")
		}
		fields[i] = reflect.StructField{
			Name: fmt.Sprintf("F%d", i),
			Type: typ,
			Tag:  reflect.StructTag(`parquet:` + strconv.Quote(c.Name+",optional")),
		}
	}
	model := reflect.New(reflect.StructOf(fields)).Elem().Interface()
	return parquet.SchemaOf(model), nil
}

// writeParquet encodes numeric columns as optional DOUBLE and text columns as
// optional UTF-8 strings. NaN is written as null.
func writeParquet(w io.Writer, d *Dataset) error {
	if d.Width() == 0 {
		return &DataError{Reason: "cannot write a dataset with no columns"}
	}
	root, err := orderedSchema(d)
	if err != nil {
		return err
	}
	schema := parquet.NewSchema(strings.TrimSuffix(d.Name, filepath.Ext(d.Name)), root)
	leafIdx := make([]int, d.Width())
	for j, c := range d.cols {
		lc, ok := schema.Lookup(c.Name)
		if !ok {
			return fmt.Errorf("schema lookup %q failed", c.Name)
		}
		leafIdx[j] = lc.ColumnIndex
	}
	order, err := json.Marshal(d.Names())
	if err != nil {
		return err
	}

	pw := parquet.NewWriter(w, schema, parquet.KeyValueMetadata(columnOrderKey, string(order)))
	batch := make([]parquet.Row, 0, rowBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pw.WriteRows(batch); err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
		batch = batch[:0]
		return nil
	}
	for i := 0; i < d.Rows(); i++ {
		row := make(parquet.Row, d.Width())
		for j := range d.cols {
			c := &d.cols[j]
			col := leafIdx[j]
			switch {
			case c.IsNull(i):
				row[col] = parquet.NullValue().Level(0, 0, col)
			case c.Kind == KindNumeric:
				row[col] = parquet.DoubleValue(c.Values[i]).Level(0, 1, col)
			default:
				row[col] = parquet.ByteArrayValue([]byte(c.Strings[i])).Level(0, 1, col)
			}
		}
		batch = append(batch, row)
		if len(batch) == rowBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
