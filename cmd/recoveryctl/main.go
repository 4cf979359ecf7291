// Command recoveryctl inspects and manages recovery snapshots.
package main

import (
	"os"

	"github.com/dshills/recovery-go/internal/cli"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersionInfo(version, gitCommit, buildDate)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
