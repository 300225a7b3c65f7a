package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// field is one labelled line of human-readable output
type field struct {
	label string
	value string
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// printFields writes title, then one aligned "label: value" line per field
func printFields(w io.Writer, title string, fields []field) error {
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, f := range fields {
		fmt.Fprintf(tw, "  %s:\t%s\n", f.label, f.value)
	}
	return tw.Flush()
}
