package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/curatordash/internal/config"
	"github.com/ziadkadry99/curatordash/internal/logging"
)

var (
	cfgFile string
	verbose bool

	appCfg *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "curatordash",
	Short: "Dashboard gateway and CLI for the Discord curator tracker",
	Long: `curatordash serves a live dashboard for the curator-tracking backend:
curators, activities, servers, task reports, settings and backups. Each
browser tab gets its own server-side session that polls the backend and
pushes rendered sections over a websocket.

The same REST client is exposed as subcommands for scripting.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The wizard writes the config, so it must not depend on one.
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w\nRun `curatordash init` to create a config file", err)
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		l, err := logging.New(level, string(cfg.LogFormat))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		appCfg = cfg
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".curatordash.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
