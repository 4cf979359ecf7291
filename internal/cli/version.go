package cli

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version information, set by main.
var (
	Version   string
	GitCommit string
	BuildDate string
)

// SetVersionInfo records build information for the version command.
func SetVersionInfo(version, gitCommit, buildDate string) {
	Version = version
	GitCommit = gitCommit
	BuildDate = buildDate
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			title := color.New(color.FgCyan, color.Bold)
			label := color.New(color.FgGreen)

			title.Fprintf(w, "recoveryctl %s\n", orDefault(Version, "dev"))
			fmt.Fprintln(w)

			label.Fprint(w, "Git commit: ")
			fmt.Fprintln(w, orDefault(GitCommit, "unknown"))
			label.Fprint(w, "Built:      ")
			fmt.Fprintln(w, orDefault(BuildDate, "unknown"))
			label.Fprint(w, "Go version: ")
			fmt.Fprintln(w, runtime.Version())
			label.Fprint(w, "OS/Arch:    ")
			fmt.Fprintf(w, "%s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
