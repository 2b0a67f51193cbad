package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/featprune-cli/internal/dataset"
	"github.com/spf13/cobra"
)

// csvFlags are the delimited-text parsing flags shared by clean and explore.
type csvFlags struct {
	delimiter string
	decimal   string
	thousands string
}

func (f *csvFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	cmd.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	cmd.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
}

func (f *csvFlags) options() (dataset.CSVOptions, error) {
	var opt dataset.CSVOptions
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	return opt, nil
}

// resolveInput picks the dataset path from the optional positional argument,
// then --input, then the configured default.
func resolveInput(cmd *cobra.Command, args []string, flagVal, fallback string) (string, error) {
	changed := cmd.Flags().Changed("input")
	switch {
	case len(args) == 1 && changed:
		return "", fmt.Errorf("input given twice: %q and --input %q", args[0], flagVal)
	case len(args) == 1:
		return args[0], nil
	case changed:
		return flagVal, nil
	}
	return fallback, nil
}
