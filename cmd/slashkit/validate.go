package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/keepmind9/slashkit/internal/core"
	"github.com/keepmind9/slashkit/internal/slash"
	"github.com/spf13/cobra"
)

var (
	validateConfigFile string
	validateJSON       bool
)

// ValidationResult represents the validation result
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Config   string   `json:"config"`
	Scopes   []string `json:"scopes,omitempty"`
	Commands int      `json:"commands"`
	Admin    string   `json:"admin,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate slashkit configuration file",
	Long: `Validate the slashkit configuration file without connecting to Discord.

This command checks:
  - YAML syntax and ${VAR} references
  - Required fields
  - Interactivity behaviours, timeout and button ids
  - Logging settings
  - That the command modules compile

Exit codes:
  0 - Configuration is valid
  1 - Configuration has errors`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runValidate(cmd.OutOrStdout(), findConfig(validateConfigFile), validateJSON))
	},
}

// findConfig returns path, or the first default location that exists
func findConfig(path string) string {
	if path != "" {
		return path
	}
	for _, loc := range []string{
		"config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config/slashkit/config.yaml"),
		"/etc/slashkit/config.yaml",
	} {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

func runValidate(w io.Writer, configFile string, jsonFormat bool) int {
	if configFile == "" {
		result := ValidationResult{Errors: []string{
			"no configuration file found; pass --config or create ./config.yaml, ~/.config/slashkit/config.yaml or /etc/slashkit/config.yaml",
		}}
		outputValidationResult(w, result, jsonFormat)
		return 1
	}

	cfg, err := core.LoadConfig(configFile)
	if err != nil {
		outputValidationResult(w, ValidationResult{Config: configFile, Errors: []string{err.Error()}}, jsonFormat)
		return 1
	}

	result := ValidationResult{
		Valid:    true,
		Config:   configFile,
		Warnings: validateConfigDetails(cfg),
	}
	if len(cfg.Discord.GuildIDs) == 0 {
		result.Scopes = []string{slash.GlobalScope.String()}
	}
	for _, id := range cfg.Discord.GuildIDs {
		result.Scopes = append(result.Scopes, slash.GuildScope(id).String())
	}
	if cfg.AdminEnabled() {
		result.Admin = cfg.Admin.Listen
	}

	tree, err := slash.Compile(context.Background(), demoModules())
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	} else {
		tree.Walk(func(n *slash.Node, _ int) {
			if n.IsLeaf() {
				result.Commands++
			}
		})
	}

	outputValidationResult(w, result, jsonFormat)
	if !result.Valid {
		return 1
	}
	return 0
}

func outputValidationResult(w io.Writer, result ValidationResult, jsonFormat bool) {
	if jsonFormat {
		if err := printJSON(w, result); err != nil {
			fmt.Fprintf(w, "{\"error\": %q}\n", err.Error())
		}
		return
	}

	if result.Valid {
		fields := []field{
			{"Config", result.Config},
			{"Scopes", strings.Join(result.Scopes, ", ")},
			{"Commands", fmt.Sprint(result.Commands)},
		}
		if result.Admin != "" {
			fields = append(fields, field{"Admin server", result.Admin})
		}
		_ = printFields(w, "✓ Configuration is valid", fields)
		if len(result.Warnings) > 0 {
			fmt.Fprintln(w, "\n⚠️  Warnings:")
			for _, warning := range result.Warnings {
				fmt.Fprintf(w, "  - %s\n", warning)
			}
		}
		return
	}

	fmt.Fprintln(w, "❌ Configuration validation failed:")
	if len(result.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, errMsg := range result.Errors {
			fmt.Fprintf(w, "  - %s\n", errMsg)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}
}

func validateConfigDetails(cfg *core.Config) []string {
	var warnings []string

	if len(cfg.Discord.GuildIDs) == 0 {
		warnings = append(warnings, "No guild_ids configured - commands register globally and may take a while to appear")
	}
	if cfg.Discord.AppID == "" {
		warnings = append(warnings, "discord.app_id is empty - it will be learned from the Ready event")
	}

	rc, err := cfg.Interactivity.RouterConfig()
	if err == nil {
		if rc.Timeout == 0 {
			warnings = append(warnings, "interactivity.timeout is 0 - sessions only end on stop or shutdown")
		}
		if cfg.Interactivity.ResponseMessage != "" && !strings.EqualFold(cfg.Interactivity.ResponseBehavior, "respond") {
			warnings = append(warnings, "interactivity.response_message is set but response_behavior is not \"respond\"")
		}
	}

	if cfg.AdminEnabled() && strings.HasPrefix(cfg.Admin.Listen, ":") {
		warnings = append(warnings, fmt.Sprintf("Admin server listens on all interfaces (%s)", cfg.Admin.Listen))
	}

	return warnings
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "config", "c", "", "Configuration file path")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
}
