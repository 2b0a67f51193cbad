package dataset

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/featprune-cli/internal/utils"
	"go.uber.org/zap"
)

// Format identifies an on-disk dataset encoding.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
)

// FormatFor picks the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return FormatParquet, nil
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported dataset extension %q (use .parquet, .csv or .tsv)", filepath.Ext(path))
	}
}

// Load reads a dataset from disk, choosing the decoder by extension.
func Load(path string, opt CSVOptions, log *zap.Logger) (*Dataset, error) {
	if log == nil {
		log = zap.NewNop()
	}
	format, err := FormatFor(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	var d *Dataset
	switch format {
	case FormatParquet:
		d, err = readParquet(path)
	default:
		d, err = readCSV(path, opt)
	}
	if err != nil {
		return nil, err
	}
	log.Debug("dataset loaded",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("rows", d.Rows()),
		zap.Int("columns", d.Width()))
	return d, nil
}

// Stage encodes d into st, choosing the encoder by extension. The file
// appears at path only when st commits, and a failed encode stages nothing.
func Stage(st *utils.Staged, path string, d *Dataset, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	format, err := FormatFor(path)
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	err = st.Write(path, func(w io.Writer) error {
		if format == FormatParquet {
			return writeParquet(w, d)
		}
		return writeCSV(w, d, sniffDelimiter(path))
	})
	if err != nil {
		var de *DataError
		if errors.As(err, &de) {
			return err
		}
		return &IOError{Op: "write", Path: path, Err: err}
	}
	log.Debug("dataset encoded", zap.String("path", path), zap.Int("rows", d.Rows()), zap.Int("columns", d.Width()))
	return nil
}
