package cli

import (
	"github.com/spf13/cobra"

	"github.com/emberbi/ember/internal/schema"
)

// newSchemaCmd groups the schema subcommands.
func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and validate slicer schemas",
	}
	cmd.AddCommand(newSchemaValidateCmd())
	return cmd
}

// newSchemaValidateCmd creates "schema validate": parse a schema file
// and report the first structural problem.
func newSchemaValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema-file>",
		Short: "Validate a slicer schema file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slicer, err := schema.Load(args[0])
			if err != nil {
				return err
			}
			cmd.Printf("schema %q is valid: %d metrics, %d dimensions, %d reports\n",
				slicer.Key, len(slicer.Metrics), len(slicer.Dimensions), len(slicer.Reports))
			return nil
		},
	}
}
