package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/vitality/internal/config"
	"github.com/lazypower/vitality/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "vitality",
	Short: "Growth, reflection and self-modeling for long-lived agents",
	Long: "Vitality keeps a persistent inner state for each agent: soul aspects, consciousness " +
		"metrics, a cultivation stage, goals and a self-model. Single Go binary.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default $"+config.EnvConfig+")")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(turnCmd)
	rootCmd.AddCommand(canModifyCmd)
	rootCmd.AddCommand(modifyCmd)
	rootCmd.AddCommand(goalCmd)
	rootCmd.AddCommand(capabilitiesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(cleanupCmd)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *zap.Logger {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
