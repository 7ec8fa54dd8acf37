package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/transito/internal/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "transito",
	Short: "Transito runs durable finite-state-machine actors",
	Long: `Transito loads a machine definition from YAML and binds it to a storage backend.
Every event sent to an actor is applied all-or-nothing and persisted before the command returns.

Configuration is read from flags, then TRANSITO_* environment variables, then ./transito.yaml.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ./transito.yaml when present)")
	flags.StringP("definition", "d", "machine.yaml", "Machine definition file")
	flags.String("backend", cli.BackendMemory, "Storage backend: "+strings.Join(cli.Backends, ", "))
	flags.String("dsn", "", "Backend location: directory, database file, connection string or URL")
	flags.String("table", "actors", "SQL table (sqlite, postgres)")
	flags.String("database", "transito", "MongoDB database")
	flags.String("collection", "actors", "MongoDB collection")
	flags.String("prefix", "", "Redis key prefix")
	flags.Duration("ttl", 0, "Redis key expiry (0 keeps actors forever)")
	flags.String("unhandled", "ignore", "Unhandled event policy: ignore, touch, reject")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error, off")
}

// loadConfig resolves the configuration of cmd.
func loadConfig(cmd *cobra.Command) (cli.Config, *slog.Logger, error) {
	configFile, _ := cmd.Flags().GetString("config")
	v, err := cli.NewViper(configFile)
	if err != nil {
		return cli.Config{}, nil, err
	}
	if err := bindFlags(v, cmd); err != nil {
		return cli.Config{}, nil, err
	}
	cfg, err := cli.LoadConfig(v)
	if err != nil {
		return cli.Config{}, nil, err
	}
	logger, err := cli.NewLogger(cfg.LogLevel)
	if err != nil {
		return cli.Config{}, nil, err
	}
	return cfg, logger, nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return v.BindPFlags(cmd.InheritedFlags())
}
