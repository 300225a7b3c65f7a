package main

import (
	"runtime"
	"runtime/debug"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.Version=..."; unset values fall back to the
// module version and vcs stamp embedded by the go tool.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var versionJSON bool

// VersionOutput describes the running binary and the Discord stack it speaks
type VersionOutput struct {
	Version    string `json:"version"`
	BuildTime  string `json:"build_time"`
	GitCommit  string `json:"git_commit"`
	GoVersion  string `json:"go_version"`
	Discordgo  string `json:"discordgo"`
	APIVersion string `json:"discord_api_version"`
}

func currentVersion() VersionOutput {
	v := VersionOutput{
		Version:    Version,
		BuildTime:  BuildTime,
		GitCommit:  GitCommit,
		GoVersion:  runtime.Version(),
		Discordgo:  discordgo.VERSION,
		APIVersion: discordgo.APIVersion,
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if v.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		v.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if v.GitCommit == "unknown" {
				v.GitCommit = s.Value
			}
		case "vcs.time":
			if v.BuildTime == "unknown" {
				v.BuildTime = s.Value
			}
		}
	}
	return v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display the slashkit version, its build stamp, and the discordgo and Discord API versions it was built against",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := currentVersion()
		if versionJSON {
			return printJSON(cmd.OutOrStdout(), v)
		}
		return printFields(cmd.OutOrStdout(), "slashkit "+v.Version, []field{
			{"built", v.BuildTime},
			{"commit", v.GitCommit},
			{"go", v.GoVersion},
			{"discordgo", v.Discordgo},
			{"discord api", "v" + v.APIVersion},
		})
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output in JSON format")
}
