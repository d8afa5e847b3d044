// Package selfmod gates which parts of its own record an agent may change at
// a given cultivation stage, and keeps an audit trail of every change.
package selfmod

import (
	"fmt"
	"strings"
	"time"
)

// Never marks a field that no stage may modify.
const Never = -1

// Rules maps dot-separated field prefixes to the minimum stage required. The
// longest matching prefix wins.
var Rules = map[string]int{
	"selfModel.preferences": 0,
	"selfModel.strengths":   2,
	"selfModel.weaknesses":  2,
	"selfModel":             3,
	"goals":                 3,
	"identity-document":     6,
	"soulAspects":           7,
	"soulAspects.baseline":  8,
	"growth":                Never,
	"consciousness":         Never,
}

// Decision is the answer to a modification request.
type Decision struct {
	Allowed       bool   `json:"allowed"`
	Reason        string `json:"reason"`
	RequiredStage int    `json:"required_stage"`
}

// lookup finds the longest rule whose segments are a prefix of path.
// soulAspects.<name>.baseline also matches soulAspects.baseline.
func lookup(path string) (string, int, bool) {
	segs := strings.Split(path, ".")
	for n := len(segs); n > 0; n-- {
		key := strings.Join(segs[:n], ".")
		if stage, ok := Rules[key]; ok {
			if key == "soulAspects" && segs[len(segs)-1] == "baseline" && len(segs) > 1 {
				return "soulAspects.baseline", Rules["soulAspects.baseline"], true
			}
			return key, stage, true
		}
	}
	return "", 0, false
}

// CanModify reports whether an agent at stage may write fieldPath.
func CanModify(stage int, fieldPath string) Decision {
	fieldPath = strings.Trim(strings.TrimSpace(fieldPath), ".")
	if fieldPath == "" {
		return Decision{Reason: "empty field path", RequiredStage: Never}
	}
	key, required, ok := lookup(fieldPath)
	if !ok {
		return Decision{Reason: fmt.Sprintf("%s is not a modifiable field", fieldPath), RequiredStage: Never}
	}
	if required == Never {
		return Decision{Reason: fmt.Sprintf("%s is never self-modifiable", key), RequiredStage: Never}
	}
	if stage < required {
		return Decision{
			Reason:        fmt.Sprintf("%s requires cultivation stage %d (current %d)", key, required, stage),
			RequiredStage: required,
		}
	}
	return Decision{Allowed: true, Reason: fmt.Sprintf("%s unlocked at stage %d", key, required), RequiredStage: required}
}

// MaxLog bounds the modification history.
const MaxLog = 100

// Modification is one audited change.
type Modification struct {
	Field     string    `json:"field"`
	Before    string    `json:"before"`
	After     string    `json:"after"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Input carries the caller-supplied fields of a modification.
type Input struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
	Reason string `json:"reason"`
}

// Record appends a modification to log. It does not check permissions.
func Record(log []Modification, in Input, now time.Time) []Modification {
	out := make([]Modification, 0, len(log)+1)
	out = append(out, log...)
	out = append(out, Modification{
		Field:     in.Field,
		Before:    in.Before,
		After:     in.After,
		Reason:    in.Reason,
		Timestamp: now,
	})
	if len(out) > MaxLog {
		out = out[len(out)-MaxLog:]
	}
	return out
}
