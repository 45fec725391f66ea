package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/example/reviewbot/pkg/models"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// writeOutput renders v as json or yaml, or calls table for the table format
func writeOutput(w io.Writer, format string, v any, table func(w io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatTable, "":
		return table(w)
	default:
		return fmt.Errorf("unknown format %q (choose table, json or yaml)", format)
	}
}

// writeWordTable prints one line per word
func writeWordTable(w io.Writer, words []models.WordRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WORD\tMEANING\tERRORS\tREVIEWS\tNEXT REVIEW\tMASTERED")
	for _, rec := range words {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%t\n",
			rec.Word,
			truncate(rec.Meaning, 40),
			rec.ErrorCount,
			rec.ReviewCount,
			rec.NextReviewDate.Local().Format(time.DateTime),
			rec.IsMastered,
		)
	}
	return tw.Flush()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
