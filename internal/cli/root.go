// Package cli implements the recoveryctl commands.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/recovery-go/recovery"
)

type app struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCmd builds the recoveryctl command tree.
//
// Every persistent flag can also be set in the config file
// ($HOME/.recoveryctl.yaml by default) or through the environment with the
// RECOVERYCTL_ prefix, e.g. RECOVERYCTL_MYSQL_DSN.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "recoveryctl",
		Short: "Inspect and manage recovery snapshots",
		Long: color.CyanString("recoveryctl - inspect, export and clear persisted recovery snapshots") + `

A snapshot holds the dependency description and the recorded step results
of every computation a Runner executed. Use show to inspect one, deps to
print its dependencies, list to find snapshots and clear to force the next
run to start from scratch.`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.initConfig(cmd) },
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.recoveryctl.yaml)")
	flags.String("transport", "file", "snapshot transport: file, sqlite, mysql, redis, s3, gcs")
	flags.String("location", recovery.DefaultRecoveryLocation, "recovery location (path or key)")
	flags.String("codec", "msgpack", "snapshot codec: msgpack, json")
	flags.String("sqlite-path", "recovery.db", "SQLite database file")
	flags.String("mysql-dsn", "", "MySQL DSN")
	flags.String("redis-addr", "localhost:6379", "Redis address")
	flags.String("redis-prefix", "recovery:", "Redis key prefix")
	flags.String("bucket", "", "S3 or GCS bucket")
	flags.String("region", "", "S3 region")
	flags.String("prefix", "", "S3 or GCS object prefix")
	flags.BoolP("verbose", "v", false, "verbose output")

	_ = a.v.BindPFlags(flags)
	a.v.SetEnvPrefix("RECOVERYCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		a.newShowCmd(),
		a.newDepsCmd(),
		a.newListCmd(),
		a.newClearCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs recoveryctl with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) initConfig(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigName(".recoveryctl")
		a.v.SetConfigType("yaml")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		return nil
	}

	if a.v.GetBool("verbose") {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", a.v.ConfigFileUsed())
	}
	return nil
}
