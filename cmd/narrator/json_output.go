package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON writes v to stdout as indented JSON for --json flags.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
