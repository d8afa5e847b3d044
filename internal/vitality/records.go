package vitality

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/vitality/internal/consciousness"
	"github.com/lazypower/vitality/internal/goals"
	"github.com/lazypower/vitality/internal/reflection"
	"github.com/lazypower/vitality/internal/selfmod"
)

// ReflectionInput is a reflection supplied by the host or synthesized by the
// cycle.
type ReflectionInput struct {
	Type     consciousness.ReflectionType `json:"type"`
	Trigger  string                       `json:"trigger"`
	Content  string                       `json:"content"`
	Insights []string                     `json:"insights"`
	Depth    float64                      `json:"depth"`
}

// RecordReflection stores a reflection, grows consciousness by it and files
// each insight into the self-model.
func RecordReflection(s State, in ReflectionInput, now time.Time) State {
	out := s.Clone()
	depth := in.Depth
	if depth != depth {
		depth = 0
	}
	depth = min(max(depth, 0), 1)
	out.Reflections = reflection.Append(out.Reflections, reflection.Reflection{
		Type:      in.Type,
		Trigger:   in.Trigger,
		Content:   in.Content,
		Insights:  append([]string(nil), in.Insights...),
		Depth:     depth,
		Timestamp: now,
	})
	out.Growth.ReflectionCount++
	out.Growth.ExperiencesAtLastReflection = out.Growth.ExperienceCount
	out.Growth.LastGrowthEvent = now
	out.Consciousness = consciousness.ProcessReflection(out.Consciousness, in.Type, depth)
	for _, insight := range in.Insights {
		out.SelfModel = reflection.AddInsight(out.SelfModel, insight)
	}
	out.UpdatedAt = now
	return out
}

// ReflectionContext returns prompt guidance when a reflection is due.
func ReflectionContext(s State) (string, bool) {
	tr, due := reflection.Check(s.Growth)
	if !due {
		return "", false
	}
	return fmt.Sprintf("Reflection due (%s, %s). %s",
		strings.ReplaceAll(string(tr.Type), "_", " "), tr.Reason, reflection.Prompt(tr.Type)), true
}

// RecordModification appends an audit entry. It does not check permissions.
func RecordModification(s State, in selfmod.Input, now time.Time) State {
	out := s.Clone()
	out.Modifications = selfmod.Record(out.Modifications, in, now)
	out.UpdatedAt = now
	return out
}

// Edit is a requested self-modification.
//
// Supported fields:
//
//	selfModel.<bucket>            add Value to a self-model bucket (Remove drops it)
//	identity-document             replace the identity document
//	goals                         add a self-originated goal described by Value
//	goals.complete                complete the goal whose id is Value
//	soulAspects.<name>.current    set an aspect's current value
//	soulAspects.<name>.baseline   set an aspect's baseline
type Edit struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Remove bool   `json:"remove,omitempty"`
	Reason string `json:"reason"`
}

// ApplyModification checks the stage gate, applies the edit and records it.
// A denied edit returns the state unchanged with Allowed false. Malformed
// edits that pass the gate return an error.
func ApplyModification(s State, e Edit, now time.Time) (State, selfmod.Decision, error) {
	field := strings.Trim(strings.TrimSpace(e.Field), ".")
	d := selfmod.CanModify(s.Growth.CultivationStage, field)
	if !d.Allowed {
		return s, d, nil
	}

	out := s.Clone()
	var before, after string
	segs := strings.Split(field, ".")

	switch segs[0] {
	case "selfModel":
		if len(segs) != 2 {
			return s, d, fmt.Errorf("apply %s: expected selfModel.<bucket>", field)
		}
		b, ok := reflection.ParseBucket(segs[1])
		if !ok {
			return s, d, fmt.Errorf("apply %s: unknown bucket %q", field, segs[1])
		}
		before = strings.Join(out.SelfModel.Bucket(b), "; ")
		if e.Remove {
			out.SelfModel = reflection.RemoveFrom(out.SelfModel, b, e.Value)
		} else {
			out.SelfModel = reflection.AddTo(out.SelfModel, b, e.Value)
		}
		after = strings.Join(out.SelfModel.Bucket(b), "; ")

	case "identity-document":
		before, after = out.IdentityDocument, e.Value
		out.IdentityDocument = e.Value

	case "goals":
		switch {
		case len(segs) == 1:
			if strings.TrimSpace(e.Value) == "" {
				return s, d, fmt.Errorf("apply %s: empty goal description", field)
			}
			g := goals.New(goals.NewGoal{Description: e.Value, Priority: 0.5, Origin: goals.OriginSelf}, now)
			out.Goals = goals.Add(out.Goals, g)
			after = g.ID
		case len(segs) == 2 && segs[1] == "complete":
			var ok bool
			out.Goals, ok = goals.Complete(out.Goals, e.Value, now)
			if !ok {
				return s, d, fmt.Errorf("apply %s: no goal %q", field, e.Value)
			}
			before, after = e.Value, "completed"
		default:
			return s, d, fmt.Errorf("apply %s: unsupported goal edit", field)
		}

	case "soulAspects":
		if len(segs) != 3 {
			return s, d, fmt.Errorf("apply %s: expected soulAspects.<name>.<current|baseline>", field)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(e.Value), 64)
		if err != nil {
			return s, d, fmt.Errorf("apply %s: parse value: %w", field, err)
		}
		v = min(max(v, 0), 1)
		idx := -1
		for i, a := range out.SoulAspects {
			if strings.EqualFold(string(a.Name), segs[1]) {
				idx = i
			}
		}
		if idx < 0 {
			return s, d, fmt.Errorf("apply %s: unknown aspect %q", field, segs[1])
		}
		a := &out.SoulAspects[idx]
		switch segs[2] {
		case "current":
			before = strconv.FormatFloat(a.Current, 'f', 3, 64)
			a.Current = v
		case "baseline":
			before = strconv.FormatFloat(a.Baseline, 'f', 3, 64)
			a.Baseline = v
		default:
			return s, d, fmt.Errorf("apply %s: unsupported aspect field %q", field, segs[2])
		}
		after = strconv.FormatFloat(v, 'f', 3, 64)

	default:
		return s, d, fmt.Errorf("apply %s: no writer for field", field)
	}

	out = RecordModification(out, selfmod.Input{Field: field, Before: before, After: after, Reason: e.Reason}, now)
	return out, d, nil
}
