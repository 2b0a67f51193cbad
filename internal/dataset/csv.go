package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CSVOptions controls delimited-text parsing.
type CSVOptions struct {
	// Delimiter for CSV. If 0, picks '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, auto-detect common separators (',' '.' space)
}

func readCSV(path string, opt CSVOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(filepath.Base(path))
		}
		return nil, &IOError{Op: "read", Path: path, Err: fmt.Errorf("read header: %w", err)}
	}
	ncol := len(header)
	raw := make([][]string, ncol)
	rows := 0
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &IOError{Op: "read", Path: path, Err: fmt.Errorf("read row %d: %w", rows+1, err)}
		}
		for j := 0; j < ncol; j++ {
			v := ""
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			raw[j] = append(raw[j], v)
		}
		rows++
	}

	cols := make([]Column, ncol)
	for j := range header {
		cols[j] = inferColumn(strings.TrimSpace(header[j]), raw[j], opt)
	}
	return New(filepath.Base(path), cols...)
}

// inferColumn keeps a column numeric only when every non-empty cell parses.
func inferColumn(name string, cells []string, opt CSVOptions) Column {
	vals := make([]float64, len(cells))
	for i, s := range cells {
		if s == "" {
			vals[i] = math.NaN()
			continue
		}
		x, ok := parseNumeric(s, opt)
		if !ok {
			return TextColumn(name, cells)
		}
		vals[i] = x
	}
	return NumericColumn(name, vals)
}

func writeCSV(w io.Writer, d *Dataset, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(d.Names()); err != nil {
		return err
	}
	rec := make([]string, d.Width())
	for i := 0; i < d.Rows(); i++ {
		for j := range d.cols {
			c := &d.cols[j]
			if c.IsNull(i) {
				rec[j] = ""
				continue
			}
			rec[j] = c.Cell(i)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

func parseNumeric(s string, opt CSVOptions) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(raw, 64); err == nil && opt.DecimalSeparator == 0 && !strings.Contains(raw, ",") {
		return f, true
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
