package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the apidocgen CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "apidocgen",
		Short:         "Generate Markdown API reference docs from OpenAPI specs",
		Long:          "apidocgen renders human-readable Markdown API reference documentation from OpenAPI 3.0/3.1 (and Swagger 2.0) documents, with schema-derived examples, curl snippets, and security summaries.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage
	// errors that also show the command's help text.
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	})

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	g := newGenerateCmd()
	g.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	})
	cmd.AddCommand(g)

	i := newInitCmd()
	i.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	})
	cmd.AddCommand(i)

	return cmd
}
