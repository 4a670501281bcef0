// Package report formats load summaries and benchmark results into
// markdown tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/weiihann/docbench/bench"
	"github.com/weiihann/docbench/loader"
)

// GenerateLoad writes the timing of every recreated collection.
func GenerateLoad(w io.Writer, s *loader.Summary) error {
	if s == nil || len(s.Collections) == 0 {
		return fmt.Errorf("no collections to report")
	}

	for _, c := range s.Collections {
		fmt.Fprintf(w, "Time taken to create '%s' collection: %.2f seconds\n",
			c.Name, c.Elapsed.Seconds())
	}

	if len(s.MissingSenders) > 0 {
		fmt.Fprintf(w, "Messages without a matching sender: %d\n", len(s.MissingSenders))
	}

	fmt.Fprintln(w)

	table := newTable(w)
	table.SetHeader([]string{"Collection", "Documents", "Load Time"})

	for _, c := range s.Collections {
		table.Append([]string{
			c.Name,
			fmt.Sprintf("%d", c.Documents),
			formatSeconds(c.Elapsed),
		})
	}

	table.Render()

	return nil
}

// Generate writes a markdown comparison of the unindexed and indexed
// phases of one run.
func Generate(w io.Writer, r *bench.Report) error {
	if r == nil || len(r.Unindexed) == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintf(w, "## Benchmark Results: %s (%s)\n", r.Layout, r.Database)
	fmt.Fprintln(w)

	// Consistency check.
	mismatches := checkConsistent(r)
	if len(mismatches) == 0 {
		fmt.Fprintln(w, "Results across phases: **all match**")
	} else {
		fmt.Fprintln(w, "Results across phases: **MISMATCH**")

		for _, m := range mismatches {
			fmt.Fprintf(w, "  - %s\n", m)
		}
	}

	fmt.Fprintln(w)

	table := newTable(w)
	table.SetHeader([]string{
		"Query", "Result", "Unindexed", "Indexed", "Speedup",
	})

	for _, before := range r.Unindexed {
		after, ok := lo.Find(r.Indexed, func(m bench.Measurement) bool {
			return m.Query == before.Query
		})
		if !ok {
			after = bench.Measurement{Status: bench.StatusError}
		}

		result := before.Result
		if before.Status != bench.StatusOK && after.Status == bench.StatusOK {
			result = after.Result
		}

		table.Append([]string{
			before.Query,
			result,
			formatMeasurement(before),
			formatMeasurement(after),
			formatSpeedup(before, after),
		})
	}

	table.Render()
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Indices (%s): %v\n", formatMs(r.IndexElapsed), r.Indexes)
	fmt.Fprintf(w, "%s: %s (%s)\n",
		r.Mutation.Query, formatMeasurement(r.Mutation), r.Mutation.Result)

	return nil
}

// GenerateComparison writes the indexed timings of several runs side by
// side, one column per layout.
func GenerateComparison(w io.Writer, reports []*bench.Report) error {
	if len(reports) == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintln(w, "## Layout Comparison (indexed)")
	fmt.Fprintln(w)

	header := []string{"Query"}
	for _, r := range reports {
		header = append(header, string(r.Layout))
	}

	table := newTable(w)
	table.SetHeader(header)

	ids := lo.Map(reports[0].Indexed, func(m bench.Measurement, _ int) string {
		return m.Query
	})
	ids = append(ids, reports[0].Mutation.Query)

	for _, id := range ids {
		row := []string{id}
		cells := make([]bench.Measurement, len(reports))

		for i, r := range reports {
			cells[i] = find(r, id)
		}

		fastest := findFastest(cells)

		for _, m := range cells {
			cell := formatMeasurement(m)
			if m.Status == bench.StatusOK && fastest > 0 && m.Elapsed > 0 {
				cell += fmt.Sprintf(" (%.2fx)", float64(m.Elapsed)/float64(fastest))
			}

			row = append(row, cell)
		}

		table.Append(row)
	}

	table.Render()

	return nil
}

// GenerateJSON writes v as indented JSON to w.
func GenerateJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")

	return table
}

// checkConsistent compares each query's result across phases. Calls
// that did not complete are skipped.
func checkConsistent(r *bench.Report) []string {
	var mismatches []string

	for _, before := range r.Unindexed {
		after, ok := lo.Find(r.Indexed, func(m bench.Measurement) bool {
			return m.Query == before.Query
		})
		if !ok || before.Status != bench.StatusOK || after.Status != bench.StatusOK {
			continue
		}

		if before.Result != after.Result {
			mismatches = append(mismatches, fmt.Sprintf("%s: %q unindexed vs %q indexed",
				before.Query, before.Result, after.Result))
		}
	}

	return mismatches
}

func find(r *bench.Report, id string) bench.Measurement {
	if r.Mutation.Query == id {
		return r.Mutation
	}

	m, ok := lo.Find(r.Indexed, func(m bench.Measurement) bool {
		return m.Query == id
	})
	if !ok {
		return bench.Measurement{Query: id, Status: bench.StatusError}
	}

	return m
}

func findFastest(ms []bench.Measurement) time.Duration {
	fastest := time.Duration(math.MaxInt64)
	for _, m := range ms {
		if m.Status == bench.StatusOK && m.Elapsed > 0 && m.Elapsed < fastest {
			fastest = m.Elapsed
		}
	}

	if fastest == math.MaxInt64 {
		return 0
	}

	return fastest
}

func formatMeasurement(m bench.Measurement) string {
	switch m.Status {
	case bench.StatusOK:
		return formatMs(m.Elapsed)
	case bench.StatusTimeout:
		return "timeout"
	default:
		return "error"
	}
}

func formatSpeedup(before, after bench.Measurement) string {
	if before.Status != bench.StatusOK || after.Status != bench.StatusOK || after.Elapsed <= 0 {
		return "-"
	}

	return fmt.Sprintf("%.2fx", float64(before.Elapsed)/float64(after.Elapsed))
}

func formatMs(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	if ms < 1000 {
		return fmt.Sprintf("%.2fms", ms)
	}

	return fmt.Sprintf("%.2fs", ms/1000)
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
