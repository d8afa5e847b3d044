package soul

import (
	"fmt"
	"math"
)

// Mode classifies which family currently leads.
type Mode string

const (
	HunGoverns Mode = "hun-governs"
	Balanced   Mode = "balanced"
	PoControls Mode = "po-controls"
)

// Balance is derived from the aspects on demand and never stored as
// authoritative.
type Balance struct {
	DominanceRatio float64 `json:"dominance_ratio"`
	Harmony        float64 `json:"harmony"`
	Mode           Mode    `json:"mode"`
}

const (
	// ModeThreshold is the dominance magnitude past which one family leads.
	ModeThreshold = 0.15

	// HintElevation is how far above baseline an aspect must sit to produce
	// a hint.
	HintElevation = 0.15
)

// ComputeBalance compares mean hun activation with mean po activation.
func ComputeBalance(as Aspects) Balance {
	var hunSum, poSum float64
	var hunN, poN int
	values := make([]float64, 0, len(as))
	for _, a := range as {
		v := clamp01(a.Current)
		values = append(values, v)
		switch GroupOf(a.Name) {
		case Hun:
			hunSum += v
			hunN++
		case Po:
			poSum += v
			poN++
		}
	}

	var hun, po float64
	if hunN > 0 {
		hun = hunSum / float64(hunN)
	}
	if poN > 0 {
		po = poSum / float64(poN)
	}

	dominance := 0.0
	if hun+po > 0 {
		dominance = (hun - po) / (hun + po)
	}
	dominance = math.Max(-1, math.Min(1, dominance))

	b := Balance{
		DominanceRatio: dominance,
		Harmony:        harmony(values),
		Mode:           Balanced,
	}
	switch {
	case dominance > ModeThreshold:
		b.Mode = HunGoverns
	case dominance < -ModeThreshold:
		b.Mode = PoControls
	}
	return b
}

// harmony is one minus the standard deviation normalized by its maximum (0.5
// for values confined to [0,1]).
func harmony(values []float64) float64 {
	if len(values) == 0 {
		return 1
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return clamp01(1 - math.Sqrt(variance)/0.5)
}

// DeriveHints names aspects elevated well above their baseline, plus the
// leading family when the balance is tilted.
func DeriveHints(as Aspects, b Balance) []string {
	var hints []string
	for _, a := range as {
		if a.Current-a.Baseline > HintElevation {
			hints = append(hints, fmt.Sprintf("heightened-%s", Gloss(a.Name)))
		}
	}
	switch b.Mode {
	case HunGoverns:
		hints = append(hints, "aspiration-leading")
	case PoControls:
		hints = append(hints, "instinct-leading")
	}
	return hints
}
