package dataset

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/featprune-cli/internal/utils"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/parquet-go/parquet-go"
)

func TestParquetRoundTripPreservesOrderAndNulls(t *testing.T) {
	// names deliberately out of alphabetical order
	d, err := New("encoded.parquet",
		NumericColumn("zeta", []float64{1.5, math.NaN(), -3}),
		NumericColumn("alpha", []float64{10, 20, 30}),
		TextColumn("mid", []string{"a", "", "c"}),
		NumericColumn("label", []float64{0, 1, 2}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.parquet")
	if err := saveFile(path, d); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path, CSVOptions{}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(d.Names(), got.Names()); diff != "" {
		t.Fatalf("column order (-want +got):\n%s", diff)
	}
	if got.Rows() != 3 {
		t.Fatalf("rows = %d", got.Rows())
	}
	for _, name := range d.Names() {
		want, _ := d.Column(name)
		have, _ := got.Column(name)
		if diff := cmp.Diff(*want, *have, cmpopts.EquateNaNs(), cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("column %s (-want +got):\n%s", name, diff)
		}
	}
}

func TestParquetSchemaKeepsColumnOrder(t *testing.T) {
	d, err := New("encoded.parquet",
		NumericColumn("zeta", []float64{1, 2}),
		TextColumn("alpha", []string{"x", "y"}),
		NumericColumn("label", []float64{0, 1}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var buf bytes.Buffer
	if err := writeParquet(&buf, d); err != nil {
		t.Fatalf("writeParquet: %v", err)
	}
	pf, err := parquet.OpenFile(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	// element 0 is the root group
	var names []string
	for _, el := range pf.Metadata().Schema[1:] {
		names = append(names, el.Name)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha", "label"}, names); diff != "" {
		t.Fatalf("on-disk schema order (-want +got):\n%s", diff)
	}
	var leaves []string
	for _, c := range pf.Root().Columns() {
		leaves = append(leaves, c.Name())
	}
	if diff := cmp.Diff(names, leaves); diff != "" {
		t.Fatalf("leaf order (-want +got):\n%s", diff)
	}
}

func TestParquetRejectsUnstorableNames(t *testing.T) {
	d, err := New("x.parquet", NumericColumn("a,b", []float64{1}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var de *DataError
	if err := writeParquet(&bytes.Buffer{}, d); !errors.As(err, &de) || de.Column != "a,b" {
		t.Fatalf("expected DataError for a,b, got %v", err)
	}
}

func TestCSVLocaleParsing(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "metrics.csv")
	content := strings.Join([]string{
		"Group;Score;LocaleNumber;label",
		"A;10,0;1.000,0;0",
		"B;11,5;1.100,0;1",
		"A;;0.900,0;0",
	}, "\n")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	d, err := Load(p, CSVOptions{Delimiter: ';', DecimalSeparator: ',', ThousandsSeparator: '.'}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	g, _ := d.Column("Group")
	if g.Kind != KindText {
		t.Fatalf("Group kind = %s, want text", g.Kind)
	}
	score, _ := d.Column("Score")
	if diff := cmp.Diff([]float64{10, 11.5, math.NaN()}, score.Values, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("score (-want +got):\n%s", diff)
	}
	loc, _ := d.Column("LocaleNumber")
	if diff := cmp.Diff([]float64{1000, 1100, 900}, loc.Values); diff != "" {
		t.Fatalf("locale (-want +got):\n%s", diff)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	d, err := New("x.csv",
		NumericColumn("x", []float64{1e-7, 2.5, math.NaN()}),
		TextColumn("label", []string{"cat", "dog", "cat"}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	path := filepath.Join(t.TempDir(), "x.tsv")
	if err := saveFile(path, d); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path, CSVOptions{}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	x, _ := got.Column("x")
	if diff := cmp.Diff([]float64{1e-7, 2.5, math.NaN()}, x.Values, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("x (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.parquet"), CSVOptions{}, nil)
	var ioe *IOError
	if !errors.As(err, &ioe) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected IOError wrapping ErrNotExist, got %v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.parquet")
	if err := os.WriteFile(corrupt, []byte("not parquet at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(corrupt, CSVOptions{}, nil); !errors.As(err, &ioe) {
		t.Fatalf("expected IOError for corrupt file, got %v", err)
	}

	if _, err := Load(filepath.Join(dir, "data.json"), CSVOptions{}, nil); !errors.As(err, &ioe) {
		t.Fatalf("expected IOError for unsupported extension, got %v", err)
	}
}

func TestStageEmptyDatasetFailsWithoutOutput(t *testing.T) {
	d, _ := New("empty")
	path := filepath.Join(t.TempDir(), "empty.parquet")
	err := saveFile(path, d)
	var de *DataError
	if !errors.As(err, &de) {
		t.Fatalf("expected DataError, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("no file should be written: %v", err)
	}
}

func saveFile(path string, d *Dataset) error {
	var st utils.Staged
	defer st.Abort()
	if err := Stage(&st, path, d, nil); err != nil {
		return err
	}
	return st.Commit()
}
