// Package engine runs vitality turns for many agents: it loads state,
// applies the cycle, persists the result and records history and metrics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/lazypower/vitality/internal/consciousness"
	"github.com/lazypower/vitality/internal/cultivation"
	"github.com/lazypower/vitality/internal/environment"
	"github.com/lazypower/vitality/internal/goals"
	"github.com/lazypower/vitality/internal/logging"
	"github.com/lazypower/vitality/internal/metrics"
	"github.com/lazypower/vitality/internal/selfmod"
	"github.com/lazypower/vitality/internal/store"
	"github.com/lazypower/vitality/internal/vitality"
)

// ErrSaveFailed wraps persistence failures after a cycle ran. The returned
// result is still valid in memory for the current turn.
var ErrSaveFailed = errors.New("save failed")

const maxSessionSummaries = 50

// Engine orchestrates per-agent vitality turns.
type Engine struct {
	Files   *store.FileStore
	Cache   *store.Cache
	History *store.DB // optional
	Clock   clock.Clock
	Log     *zap.Logger
	Metrics *metrics.Metrics // optional

	// SessionWindow bounds how far back stored session summaries are folded
	// into a turn's environment scan.
	SessionWindow time.Duration
	// SessionRetain is how long stored session summaries survive cleanup.
	SessionRetain time.Duration

	mu     sync.Mutex
	agents map[string]*sync.Mutex
	stopCh chan struct{}
	stop   sync.Once
}

// New creates an Engine keeping state files in dir.
func New(dir string, history *store.DB, clk clock.Clock, logger *zap.Logger) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := store.NewCache()
	return &Engine{
		Files:         &store.FileStore{Dir: dir, Cache: cache, Now: clk.Now},
		Cache:         cache,
		History:       history,
		Clock:         clk,
		Log:           logger,
		SessionWindow: 6 * time.Hour,
		SessionRetain: 30 * 24 * time.Hour,
		agents:        make(map[string]*sync.Mutex),
		stopCh:        make(chan struct{}),
	}
}

// SetMetrics attaches Prometheus collectors.
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.Metrics = m
}

// lock serializes work on one agent. Different agents never contend.
func (e *Engine) lock(agentID string) func() {
	e.mu.Lock()
	l, ok := e.agents[agentID]
	if !ok {
		l = &sync.Mutex{}
		e.agents[agentID] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// ProcessTurn runs one cycle for an agent and persists it. On a save failure
// the cycle result is returned together with an error wrapping ErrSaveFailed.
func (e *Engine) ProcessTurn(ctx context.Context, agentID string, in vitality.TurnInput) (vitality.CycleResult, error) {
	if agentID == "" {
		return vitality.CycleResult{}, errors.New("process turn: empty agent id")
	}
	unlock := e.lock(agentID)
	defer unlock()

	if in.ExperienceType == "" {
		in.ExperienceType = consciousness.ExperienceConversation
	}
	start := e.Clock.Now()
	st, err := e.Files.Load(ctx, agentID)
	if err != nil {
		return vitality.CycleResult{}, fmt.Errorf("process turn: %w", err)
	}

	if e.History != nil && len(in.Sessions) > 0 {
		if err := e.History.UpsertSessionSummaries(agentID, in.Sessions); err != nil {
			e.Log.Warn("store session summaries", logging.Agent(agentID), zap.Error(err))
		}
	}
	in.Sessions = append(in.Sessions, e.storedSessions(agentID, start)...)
	res := vitality.ProcessAgentTurn(st, in, start)
	e.observe(in, res)

	for _, c := range res.Changes {
		switch c.Kind {
		case vitality.ChangeStageAdvanced:
			e.Log.Info("stage advanced", logging.Agent(agentID), zap.String("from", c.From), zap.String("to", c.To))
		case vitality.ChangeLevelChanged:
			e.Log.Info("consciousness level changed", logging.Agent(agentID), zap.String("from", c.From), zap.String("to", c.To))
		case vitality.ChangeAwakened:
			e.Log.Info("agent awakened", logging.Agent(agentID))
		}
	}

	if err := e.Files.Save(ctx, res.State); err != nil {
		if e.Metrics != nil {
			e.Metrics.SaveFailures.Inc()
		}
		e.Log.Error("save state", logging.Agent(agentID), zap.Error(err))
		// Drop the cached copy so the next turn re-reads the last good file.
		e.Cache.Invalidate(agentID)
		return res, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	// Only persisted cycles enter the ledger.
	if e.History != nil {
		if _, err := e.History.RecordCycle(in.ExperienceType, res); err != nil {
			e.Log.Warn("record cycle", logging.Agent(agentID), zap.Error(err))
		}
	}

	if e.Metrics != nil {
		e.Metrics.CycleDuration.Observe(e.Clock.Since(start).Seconds())
	}
	e.Log.Debug("turn processed",
		logging.Agent(agentID),
		zap.String("experience", string(in.ExperienceType)),
		zap.Int("experiences", res.State.Growth.ExperienceCount),
		zap.Int("changes", len(res.Changes)))
	return res, nil
}

func (e *Engine) storedSessions(agentID string, now time.Time) []environment.SessionSummary {
	if e.History == nil || e.SessionWindow <= 0 {
		return nil
	}
	summaries, err := e.History.RecentSessionSummaries(agentID, now.Add(-e.SessionWindow), maxSessionSummaries)
	if err != nil {
		e.Log.Warn("load session summaries", logging.Agent(agentID), zap.Error(err))
		return nil
	}
	return summaries
}

func (e *Engine) observe(in vitality.TurnInput, res vitality.CycleResult) {
	if e.Metrics == nil {
		return
	}
	e.Metrics.Cycles.WithLabelValues(string(in.ExperienceType)).Inc()
	for _, c := range res.Changes {
		switch c.Kind {
		case vitality.ChangeReflectionRecorded:
			e.Metrics.Reflections.Inc()
		case vitality.ChangeStageAdvanced:
			e.Metrics.Advancements.WithLabelValues(c.To).Inc()
		}
	}
}

// State returns an agent's current state.
func (e *Engine) State(ctx context.Context, agentID string) (vitality.State, error) {
	st, err := e.Files.Load(ctx, agentID)
	if err != nil {
		return vitality.State{}, fmt.Errorf("load state: %w", err)
	}
	return st, nil
}

// Context returns the prompt context for an agent, if it has enough history.
func (e *Engine) Context(ctx context.Context, agentID string) (string, bool, error) {
	st, err := e.State(ctx, agentID)
	if err != nil {
		return "", false, err
	}
	text, ok := vitality.BuildPromptContext(st)
	return text, ok, nil
}

// Status returns a short status summary for an agent.
func (e *Engine) Status(ctx context.Context, agentID string) (string, bool, error) {
	st, err := e.State(ctx, agentID)
	if err != nil {
		return "", false, err
	}
	text, ok := vitality.BuildStatusSummary(st, e.Clock.Now())
	return text, ok, nil
}

// CanModify checks the stage gate for an agent without changing anything.
func (e *Engine) CanModify(ctx context.Context, agentID, field string) (selfmod.Decision, error) {
	st, err := e.State(ctx, agentID)
	if err != nil {
		return selfmod.Decision{}, err
	}
	return selfmod.CanModify(st.Growth.CultivationStage, field), nil
}

// Capabilities lists what an agent's stage has unlocked.
func (e *Engine) Capabilities(ctx context.Context, agentID string) (int, []string, error) {
	st, err := e.State(ctx, agentID)
	if err != nil {
		return 0, nil, err
	}
	return st.Growth.CultivationStage, cultivation.UnlockedCapabilities(st.Growth.CultivationStage), nil
}

// Modify applies a gated self-modification. Denials are returned as a
// Decision with Allowed false and are still written to the history audit.
func (e *Engine) Modify(ctx context.Context, agentID string, edit vitality.Edit) (selfmod.Decision, error) {
	unlock := e.lock(agentID)
	defer unlock()

	st, err := e.Files.Load(ctx, agentID)
	if err != nil {
		return selfmod.Decision{}, fmt.Errorf("modify: %w", err)
	}
	now := e.Clock.Now()
	out, d, err := vitality.ApplyModification(st, edit, now)
	if err != nil {
		e.countModification("invalid")
		return d, err
	}

	if e.History != nil {
		m := selfmod.Modification{Field: edit.Field, After: edit.Value, Reason: edit.Reason, Timestamp: now}
		if d.Allowed && len(out.Modifications) > 0 {
			m = out.Modifications[len(out.Modifications)-1]
		}
		if err := e.History.LogModification(agentID, m, d.Allowed); err != nil {
			e.Log.Warn("log modification", logging.Agent(agentID), zap.Error(err))
		}
	}

	if !d.Allowed {
		e.countModification("denied")
		e.Log.Info("modification denied", logging.Agent(agentID), zap.String("field", edit.Field), zap.String("reason", d.Reason))
		return d, nil
	}
	e.countModification("applied")
	if err := e.Files.Save(ctx, out); err != nil {
		e.Cache.Invalidate(agentID)
		return d, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return d, nil
}

func (e *Engine) countModification(outcome string) {
	if e.Metrics != nil {
		e.Metrics.Modifications.WithLabelValues(outcome).Inc()
	}
}

// AddGoal adds an externally assigned goal. Goals from the host are not
// self-modifications and skip the stage gate.
func (e *Engine) AddGoal(ctx context.Context, agentID string, in goals.NewGoal) (goals.Goal, error) {
	unlock := e.lock(agentID)
	defer unlock()

	st, err := e.Files.Load(ctx, agentID)
	if err != nil {
		return goals.Goal{}, fmt.Errorf("add goal: %w", err)
	}
	if in.Origin == "" {
		in.Origin = goals.OriginUser
	}
	now := e.Clock.Now()
	g := goals.New(in, now)
	if g.Description == "" {
		return goals.Goal{}, errors.New("add goal: empty description")
	}
	st.Goals = goals.Add(st.Goals, g)
	st.UpdatedAt = now
	if err := e.Files.Save(ctx, st); err != nil {
		e.Cache.Invalidate(agentID)
		return g, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return g, nil
}

// RecordSessions folds session summaries into an agent's environment and, when
// history is enabled, stores them for later turns.
func (e *Engine) RecordSessions(ctx context.Context, agentID string, summaries []environment.SessionSummary) error {
	unlock := e.lock(agentID)
	defer unlock()

	if e.History != nil {
		if err := e.History.UpsertSessionSummaries(agentID, summaries); err != nil {
			return fmt.Errorf("record sessions: %w", err)
		}
	}
	st, err := e.Files.Load(ctx, agentID)
	if err != nil {
		return fmt.Errorf("record sessions: %w", err)
	}
	st.Environment = environment.Scan(summaries, st.Environment)
	st.UpdatedAt = e.Clock.Now()
	if err := e.Files.Save(ctx, st); err != nil {
		e.Cache.Invalidate(agentID)
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// Cycles returns an agent's recent cycles. It returns nil when history is
// disabled.
func (e *Engine) Cycles(agentID string, limit int) ([]store.Cycle, error) {
	if e.History == nil {
		return nil, nil
	}
	return e.History.RecentCycles(agentID, limit)
}

// Agents lists every agent with persisted state.
func (e *Engine) Agents() ([]string, error) {
	return e.Files.List()
}

// Invalidate forces the next load of agentID to re-read its file.
func (e *Engine) Invalidate(agentID string) {
	if agentID == "" {
		e.Cache.InvalidateAll()
		return
	}
	e.Cache.Invalidate(agentID)
}

// CleanupAll drops long-completed goals for every agent and prunes stale
// session summaries. It returns the number of goals removed.
func (e *Engine) CleanupAll(ctx context.Context) (int, error) {
	ids, err := e.Agents()
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}
	now := e.Clock.Now()
	total := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := e.cleanupAgent(ctx, id, now)
		if err != nil {
			e.Log.Warn("cleanup agent", logging.Agent(id), zap.Error(err))
			continue
		}
		total += n
	}
	if e.History != nil && e.SessionRetain > 0 {
		if n, err := e.History.PruneSessionSummaries(now.Add(-e.SessionRetain)); err != nil {
			e.Log.Warn("prune session summaries", zap.Error(err))
		} else if n > 0 {
			e.Log.Info("pruned session summaries", zap.Int64("count", n))
		}
	}
	return total, nil
}

func (e *Engine) cleanupAgent(ctx context.Context, agentID string, now time.Time) (int, error) {
	unlock := e.lock(agentID)
	defer unlock()

	st, err := e.Files.Load(ctx, agentID)
	if err != nil {
		return 0, err
	}
	var removed int
	st.Goals, removed = goals.Cleanup(st.Goals, now)
	if removed == 0 {
		return 0, nil
	}
	st.UpdatedAt = now
	if err := e.Files.Save(ctx, st); err != nil {
		e.Cache.Invalidate(agentID)
		return 0, err
	}
	return removed, nil
}

// StartCleanupTimer runs goal cleanup on startup and then every interval.
func (e *Engine) StartCleanupTimer(interval time.Duration) {
	e.runCleanup()
	if interval <= 0 {
		return
	}

	ticker := e.Clock.Ticker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.runCleanup()
			case <-e.stopCh:
				return
			}
		}
	}()
}

func (e *Engine) runCleanup() {
	if n, err := e.CleanupAll(context.Background()); err != nil {
		e.Log.Warn("goal cleanup", zap.Error(err))
	} else if n > 0 {
		e.Log.Info("goal cleanup", zap.Int("removed", n))
	}
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	e.stop.Do(func() { close(e.stopCh) })
}
