package validate

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

// maxListed caps the issues printed per dataset
const maxListed = 20

// Print writes the report in a human-readable form
func (r *Report) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "=== Data Quality Report: %s ===\n", r.Status())
	_, _ = fmt.Fprintf(w, "Generated: %s\n", r.Timestamp.Format(time.RFC3339))

	for _, d := range r.Datasets {
		status := "ok"
		if !d.Passed() {
			status = "FAILED"
		}
		_, _ = fmt.Fprintf(w, "\n%s: %s records, %s\n", d.Dataset, humanize.Comma(int64(d.Records)), status)

		printIssues(w, "error", d.Errors)
		printIssues(w, "warning", d.Warnings)
		printProfile(w, d.Profile)
	}

	_, _ = fmt.Fprintf(w, "\ncross-table checks: ")
	if len(r.CrossTable) == 0 {
		_, _ = fmt.Fprintln(w, "ok")
		return
	}
	_, _ = fmt.Fprintln(w, "FAILED")
	for _, issue := range r.CrossTable {
		_, _ = fmt.Fprintf(w, "  - %s: %s\n", issue.Dataset, issue)
	}
}

func printIssues(w io.Writer, label string, issues []Issue) {
	for i, issue := range issues {
		if i == maxListed {
			_, _ = fmt.Fprintf(w, "  ... and %s more %ss\n", humanize.Comma(int64(len(issues)-maxListed)), label)
			return
		}
		_, _ = fmt.Fprintf(w, "  %s: %s\n", label, issue)
	}
}

func printProfile(w io.Writer, p Profile) {
	if p.Records == 0 {
		return
	}
	if p.First != nil {
		_, _ = fmt.Fprintf(w, "  dates: %s to %s\n", p.First.Format(time.DateOnly), p.Last.Format(time.DateOnly))
	}
	if p.DuplicateKeys > 0 {
		_, _ = fmt.Fprintf(w, "  duplicate keys: %d\n", p.DuplicateKeys)
	}

	columns := make([]string, 0, len(p.NullCounts))
	for c, n := range p.NullCounts {
		if n > 0 {
			columns = append(columns, c)
		}
	}
	sort.Strings(columns)
	for _, c := range columns {
		_, _ = fmt.Fprintf(w, "  nulls in %s: %d (%.1f%%)\n", c, p.NullCounts[c], 100*float64(p.NullCounts[c])/float64(p.Records))
	}

	numeric := make([]string, 0, len(p.Numeric))
	for c := range p.Numeric {
		numeric = append(numeric, c)
	}
	sort.Strings(numeric)
	for _, c := range numeric {
		st := p.Numeric[c]
		_, _ = fmt.Fprintf(w, "  %s: min %s, max %s, mean %s, stddev %s\n", c,
			humanize.Commaf(round(st.Min)), humanize.Commaf(round(st.Max)),
			humanize.Commaf(round(st.Mean)), humanize.Commaf(round(st.StdDev)))
	}
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
