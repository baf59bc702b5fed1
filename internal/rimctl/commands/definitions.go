package commands

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newSchemaCommand() *cobra.Command {
	var confidential bool

	cmd := &cobra.Command{
		Use:   "schema <model>",
		Short: "Print the front schema of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := loadCore()
			if err != nil {
				return err
			}

			front, err := core.Schemas.CompileFront(args[0], confidential)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), front)
		},
	}
	cmd.Flags().BoolVar(&confidential, "confidential", false, "include confidential fields")
	return cmd
}

func newLayoutCommand() *cobra.Command {
	var confidential bool

	cmd := &cobra.Command{
		Use:   "layout <model>",
		Short: "Print the derived layout of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := loadCore()
			if err != nil {
				return err
			}

			rows, err := core.Layouts.Derive(args[0], confidential)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().BoolVar(&confidential, "confidential", false, "include confidential fields")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
