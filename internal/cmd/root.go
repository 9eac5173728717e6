// Package cmd implements the ydl command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yankadevlab/ydl/internal/config"
	"github.com/yankadevlab/ydl/internal/logging"
	"github.com/yankadevlab/ydl/internal/style"
)

// Version is set at build time.
var Version = "dev"

// Command groups
const (
	GroupDB         = "db"
	GroupContainers = "containers"
)

var (
	verbose    bool
	configPath string

	cfg      = config.Default()
	logger   = zap.NewNop()
	closeLog = func() {}
)

var rootCmd = &cobra.Command{
	Use:     "ydl",
	Short:   "Yanka Dev Lab project tooling",
	Version: Version,
	Long: `ydl moves WordPress databases between local docker compose projects
and remote projects on an SSH host, keeping each site's own URLs.

Remote settings come from the config file or from SSH_HOST, SSH_USERNAME,
SSH_PRIVATE_KEY and REMOTE_ROOT_PATH.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupDB, Title: "Database:"},
		&cobra.Group{ID: GroupContainers, Title: "Containers:"},
	)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug details")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $YDL_CONFIG or <user config dir>/ydl/config.toml)")
}

// setup loads the config and builds the logger before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	l, closeFn, err := logging.New(cfg.Log, verbose)
	if err != nil {
		return err
	}
	logger, closeLog = l, closeFn
	logger.Debug("configuration loaded", zap.String("command", cmd.CommandPath()))
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer func() { closeLog() }()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", style.ErrorPrefix, err)
		return 1
	}
	return 0
}

func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requires a subcommand\n\nRun '%s --help' for usage", cmd.CommandPath())
	}
	return fmt.Errorf("unknown command %q for %q\n\nRun '%s --help' for usage",
		args[0], cmd.CommandPath(), cmd.CommandPath())
}
