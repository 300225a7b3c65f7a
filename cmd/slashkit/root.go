package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slashkit",
	Short: "slashkit serves Discord slash commands and paginated component sessions",
	Long: `slashkit compiles declarative command modules into Discord application
commands, registers them per scope, dispatches invocations with typed
arguments, and runs button-driven sessions such as paginated messages.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(versionCmd)
}
