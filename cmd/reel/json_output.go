package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"reel/internal/services"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeFailure renders err in the shared error envelope on stdout and passes
// it through, so scripts get parseable output while the exit code still
// reports the failure.
func writeFailure(cmd *cobra.Command, err error) error {
	if encodeErr := writeJSON(cmd, services.Envelope(err)); encodeErr != nil {
		return encodeErr
	}
	return err
}
