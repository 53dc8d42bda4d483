// Package commands implements the pixelfan CLI commands.
package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// CLI wraps the cobra command tree for the local batch runner.
type CLI struct {
	rootCmd *cobra.Command
}

func New() *CLI {
	rootCmd := &cobra.Command{
		Use:           "pixelfan",
		Short:         "Generate every stage-variant combination of a set of images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c := &CLI{rootCmd: rootCmd}

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}
