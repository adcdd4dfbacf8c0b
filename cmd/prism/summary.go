package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/ajitpratap0/prism/pkg/observability"
	"github.com/ajitpratap0/prism/pkg/report"
)

func printSummary(w io.Writer, name string, r *report.Report) {
	fmt.Fprintf(w, "\n%s: %s rows, %s, %d columns, %s ms\n",
		name,
		humanize.Comma(r.TotalRows),
		humanize.Bytes(uint64(r.BytesProcessed)),
		len(r.Columns),
		humanize.Comma(r.ElapsedMs))
	if r.DuplicateRows > 0 || r.MalformedRecords > 0 || r.FieldCountMismatches > 0 {
		fmt.Fprintf(w, "  duplicates %s (%.2f%%), malformed %s, field count mismatches %s\n",
			humanize.Comma(r.DuplicateRows), r.DuplicatePercentage,
			humanize.Comma(r.MalformedRecords), humanize.Comma(r.FieldCountMismatches))
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  COLUMN\tTYPE\tMISSING\tDISTINCT\tSCORE\tPII")
	for _, c := range r.Columns {
		pii := string(c.PII)
		if pii == "" {
			pii = "-"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t~%s\t%.2f\t%s\n",
			c.Name, c.InferredType,
			humanize.Comma(c.MissingCount),
			humanize.Comma(int64(c.DistinctEstimate)),
			c.Quality.Score, pii)
	}
	tw.Flush()
}

func printResources(w io.Writer, u observability.ResourceUsage) {
	fmt.Fprintf(w, "\nresources: rss %s, heap %s, cpu %.1f%%, goroutines %d\n",
		humanize.Bytes(u.MemoryRSS), humanize.Bytes(u.HeapAlloc), u.CPUPercent, u.GoroutineCount)
}
