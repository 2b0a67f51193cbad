package analysis

import (
	"fmt"
	"io"
	"strconv"

	"github.com/KaramelBytes/featprune-cli/internal/dataset"
	"github.com/olekukonko/tablewriter"
)

// WriteConsole prints the report as terminal tables: kinds, null counts,
// descriptive statistics, class balance and the leading rows.
func (r *Report) WriteConsole(w io.Writer) {
	fmt.Fprintf(w, "Shape: %d rows x %d columns\n", r.Rows, len(r.Cols))

	section(w, "Columns & kinds")
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Column", "Kind", "Non-null", "Nulls"})
	nulls := 0
	for _, c := range r.Cols {
		t.Append([]string{c.Name, string(c.Kind), strconv.Itoa(c.NonNull), strconv.Itoa(c.Missing)})
		nulls += c.Missing
	}
	t.Render()
	if nulls == 0 {
		fmt.Fprintln(w, "No nulls — clean dataset")
	} else {
		fmt.Fprintf(w, "%d null cells in total\n", nulls)
	}

	section(w, "Descriptive statistics")
	t = tablewriter.NewWriter(w)
	t.SetHeader([]string{"Column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"})
	for _, c := range r.Cols {
		if c.Kind != dataset.KindNumeric {
			continue
		}
		t.Append([]string{
			c.Name, strconv.Itoa(c.NonNull),
			num(c.Mean), num(c.Std), num(c.Min), num(c.Q25), num(c.Median), num(c.Q75), num(c.Max),
		})
	}
	t.Render()

	if len(r.Classes) > 0 {
		section(w, "Class balance")
		t = tablewriter.NewWriter(w)
		t.SetHeader([]string{"Label", "Count", "Share"})
		for _, c := range r.Classes {
			share := 0.0
			if r.Rows > 0 {
				share = float64(c.Count) * 100 / float64(r.Rows)
			}
			t.Append([]string{c.Value, strconv.Itoa(c.Count), fmt.Sprintf("%.1f%%", share)})
		}
		t.Render()
	}

	if len(r.Top) > 0 {
		section(w, "Top features by mean |r|")
		t = tablewriter.NewWriter(w)
		t.SetHeader([]string{"#", "Feature", "Mean |r|"})
		for i, f := range r.Top {
			t.Append([]string{strconv.Itoa(i + 1), f.Name, num(f.MeanAbsCorr)})
		}
		t.Render()
	}

	if len(r.Head) > 0 {
		section(w, fmt.Sprintf("First %d rows", len(r.Head)))
		t = tablewriter.NewWriter(w)
		header := make([]string, len(r.Cols))
		for i, c := range r.Cols {
			header[i] = c.Name
		}
		t.SetHeader(header)
		t.AppendBulk(r.Head)
		t.Render()
	}

	for _, note := range r.Warnings {
		fmt.Fprintf(w, "note: %s\n", note)
	}
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n── %s ──\n", title)
}

func num(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }
