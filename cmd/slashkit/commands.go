package main

import (
	"context"
	"fmt"
	"io"

	"github.com/keepmind9/slashkit/internal/core"
	"github.com/keepmind9/slashkit/internal/slash"
	"github.com/spf13/cobra"
)

var commandsPayload bool

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Print the compiled command tree",
	Long: `Compile the built-in command modules and print the resulting tree as JSON
without connecting to Discord. With --payload the registration payload sent to
Discord is printed instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printCommands(cmd.Context(), cmd.OutOrStdout(), commandsPayload)
	},
}

func printCommands(ctx context.Context, w io.Writer, payload bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	tree, err := slash.Compile(ctx, demoModules())
	if err != nil {
		return fmt.Errorf("failed to compile commands: %w", err)
	}

	if payload {
		return printJSON(w, tree.Payload())
	}
	return printJSON(w, core.DescribeTree(tree))
}

func init() {
	commandsCmd.Flags().BoolVar(&commandsPayload, "payload", false, "Print the Discord registration payload")
}
