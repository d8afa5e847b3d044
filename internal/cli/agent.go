package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/vitality/internal/consciousness"
	"github.com/lazypower/vitality/internal/cultivation"
	"github.com/lazypower/vitality/internal/engine"
	"github.com/lazypower/vitality/internal/goals"
	"github.com/lazypower/vitality/internal/vitality"
)

// Commands below work on the state files directly, without a server.

var (
	turnType    string
	turnChannel string
	turnPeer    string
	turnTopic   string
	turnDepth   float64

	modifyReason string
	modifyRemove bool

	goalPriority float64

	historyLimit int
)

// withEngine opens a local engine, runs fn and closes it.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, eng *engine.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	eng, closeEngine, err := openEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEngine()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	return fn(ctx, eng)
}

var statusCmd = &cobra.Command{
	Use:   "status <agent-id>",
	Short: "Show an agent's vitality status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
			text, ok, err := eng.Status(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no recorded experiences yet.\n", args[0])
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

var turnCmd = &cobra.Command{
	Use:   "turn <agent-id>",
	Short: "Run one vitality cycle for an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
			res, err := eng.ProcessTurn(ctx, args[0], vitality.TurnInput{
				ExperienceType: consciousness.ExperienceType(strings.ToLower(turnType)),
				Channel:        turnChannel,
				Peer:           turnPeer,
				Topic:          turnTopic,
				Depth:          turnDepth,
			})
			if err != nil && !errors.Is(err, engine.ErrSaveFailed) {
				return err
			}
			printTurn(cmd.OutOrStdout(), res)
			return err
		})
	},
}

func printTurn(w io.Writer, res vitality.CycleResult) {
	g := res.State.Growth
	fmt.Fprintf(w, "level: %s  stage: %s (%.0f%%)  experiences: %d  reflections: %d\n",
		res.State.ConsciousnessLevel, cultivation.StageName(g.CultivationStage),
		g.CultivationProgress*100, g.ExperienceCount, g.ReflectionCount)
	for _, c := range res.Changes {
		switch {
		case c.From != "" || c.To != "":
			fmt.Fprintf(w, "  %s: %s -> %s\n", c.Kind, c.From, c.To)
		case c.Detail != "":
			fmt.Fprintf(w, "  %s: %s\n", c.Kind, c.Detail)
		default:
			fmt.Fprintf(w, "  %s\n", c.Kind)
		}
	}
}

var canModifyCmd = &cobra.Command{
	Use:   "can-modify <agent-id> <field>",
	Short: "Check whether an agent may change a field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
			d, err := eng.CanModify(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			verdict := "denied"
			if d.Allowed {
				verdict = "allowed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", args[1], verdict, d.Reason)
			return nil
		})
	},
}

var modifyCmd = &cobra.Command{
	Use:   "modify <agent-id> <field> <value>",
	Short: "Apply a stage-gated self-modification",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
			d, err := eng.Modify(ctx, args[0], vitality.Edit{
				Field:  args[1],
				Value:  args[2],
				Remove: modifyRemove,
				Reason: modifyReason,
			})
			if err != nil {
				return err
			}
			if !d.Allowed {
				return fmt.Errorf("modification denied: %s", d.Reason)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", args[1])
			return nil
		})
	},
}

var goalCmd = &cobra.Command{
	Use:   "goal <agent-id> <description>",
	Short: "Assign a goal to an agent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
			g, err := eng.AddGoal(ctx, args[0], goals.NewGoal{
				Description: args[1],
				Priority:    goalPriority,
				Origin:      goals.OriginUser,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %.2f  %s\n", g.ID, g.Priority, g.Description)
			return nil
		})
	},
}

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities <agent-id>",
	Short: "List capabilities an agent's stage has unlocked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
			stage, caps, err := eng.Capabilities(ctx, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "stage %d (%s)\n", stage, cultivation.StageName(stage))
			for _, c := range caps {
				fmt.Fprintf(w, "  %s\n", c)
			}
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <agent-id>",
	Short: "Show an agent's recent cycles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
			if eng.History == nil {
				return errors.New("history is disabled in config")
			}
			cycles, err := eng.Cycles(args[0], historyLimit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(cycles) == 0 {
				fmt.Fprintln(w, "No cycles recorded.")
				return nil
			}
			for _, c := range cycles {
				at := time.UnixMilli(c.CreatedAt)
				fmt.Fprintf(w, "#%-5d %-14s %-13s stage %d  aggregate %.3f  %s\n",
					c.ExperienceCount, c.ExperienceType, c.Level, c.Stage, c.Aggregate, humanize.Time(at))
				for _, ch := range c.Changes {
					if ch.Kind == vitality.ChangeExperienceProcessed {
						continue
					}
					fmt.Fprintf(w, "       %s %s%s\n", ch.Kind, ch.Detail, ch.To)
				}
			}
			return nil
		})
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agents with saved state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
			ids, err := eng.Agents()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop long-completed goals and stale session summaries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
			n, err := eng.CleanupAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d completed goals\n", n)
			return nil
		})
	},
}

func init() {
	turnCmd.Flags().StringVarP(&turnType, "type", "t", string(consciousness.ExperienceConversation), "Experience type")
	turnCmd.Flags().StringVar(&turnChannel, "channel", "", "Channel the turn happened on")
	turnCmd.Flags().StringVar(&turnPeer, "peer", "", "Peer the agent talked to")
	turnCmd.Flags().StringVar(&turnTopic, "topic", "", "Topic of the turn")
	turnCmd.Flags().Float64Var(&turnDepth, "depth", 0, "Experience depth in [0,1] (0 uses the default)")

	modifyCmd.Flags().StringVar(&modifyReason, "reason", "", "Why the change is made")
	modifyCmd.Flags().BoolVar(&modifyRemove, "remove", false, "Remove the value instead of adding it")

	goalCmd.Flags().Float64VarP(&goalPriority, "priority", "p", 0.5, "Goal priority in [0,1]")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of cycles")
}
