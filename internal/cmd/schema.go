package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/koscakluka/foundry-core/core/frames"
	"github.com/spf13/cobra"
)

var schemaKind string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of run stream frames",
	Long: `Print the JSON Schema of the envelope every run stream frame is sent in.
With --kind, print the schema of that frame kind's payload instead.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	kinds := make([]string, 0, len(frames.Kinds()))
	for _, kind := range frames.Kinds() {
		kinds = append(kinds, string(kind))
	}
	schemaCmd.Flags().StringVar(&schemaKind, "kind", "", "payload kind: "+strings.Join(kinds, ", "))
}

func runSchema(cmd *cobra.Command, args []string) error {
	if schemaKind == "" {
		return writeJSON(cmd.OutOrStdout(), frames.Schema())
	}
	schema, ok := frames.PayloadSchema(frames.Kind(schemaKind))
	if !ok {
		return fmt.Errorf("unknown frame kind %q", schemaKind)
	}
	return writeJSON(cmd.OutOrStdout(), schema)
}

func writeJSON(out io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", encoded)
	return err
}
