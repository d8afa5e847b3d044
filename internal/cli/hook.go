package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lazypower/vitality/internal/config"
	"github.com/lazypower/vitality/internal/hooks"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle host runtime hook events",
}

// hookRun never returns an error: hooks must not break the host.
func hookRun(event string) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			cfg = config.Default()
		}
		if !cfg.Hooks.Enabled {
			return
		}
		hooks.Handle(event, os.Stdin, cfg.BaseURL(), cfg.Hooks.Timeout)
	}
}

var hookTurnCmd = &cobra.Command{
	Use:   "turn",
	Short: "Record an agent turn and print its prompt context",
	Run:   hookRun("turn"),
}

var hookContextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print an agent's prompt context without recording a turn",
	Run:   hookRun("context"),
}

var hookSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Forward session summaries to the server",
	Run:   hookRun("sessions"),
}

func init() {
	hookCmd.AddCommand(hookTurnCmd)
	hookCmd.AddCommand(hookContextCmd)
	hookCmd.AddCommand(hookSessionsCmd)
}
