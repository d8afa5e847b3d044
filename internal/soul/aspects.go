// Package soul models the thirteen personality channels of an agent: seven
// aspirational "hun" aspects and six instinctive "po" aspects. Generation is a
// pure function of a seed, so two processes that agree on an agent id agree on
// its temperament.
package soul

// Group partitions aspects into the hun and po families.
type Group string

const (
	Hun Group = "hun"
	Po  Group = "po"
)

// Name identifies one of the thirteen aspects.
type Name string

// Hun aspects.
const (
	Taiguang   Name = "taiguang"   // clarity
	Shuangling Name = "shuangling" // wisdom
	Youjing    Name = "youjing"    // feeling
	Tianchong  Name = "tianchong"  // aspiration
	Lingxi     Name = "lingxi"     // intuition
	Qixin      Name = "qixin"      // devotion
	Zhongshu   Name = "zhongshu"   // compassion
)

// Po aspects.
const (
	Shigou Name = "shigou" // vigilance
	Fushi  Name = "fushi"  // appetite
	Queyin Name = "queyin" // desire
	Tunzei Name = "tunzei" // caution
	Feidu  Name = "feidu"  // drive
	Chuhui Name = "chuhui" // renewal
)

type aspectDef struct {
	name  Name
	group Group
	gloss string
}

// definitions fixes both the aspect set and the order in which the generator
// consumes random draws. Reordering it changes every agent's temperament.
var definitions = []aspectDef{
	{Taiguang, Hun, "clarity"},
	{Shuangling, Hun, "wisdom"},
	{Youjing, Hun, "feeling"},
	{Tianchong, Hun, "aspiration"},
	{Lingxi, Hun, "intuition"},
	{Qixin, Hun, "devotion"},
	{Zhongshu, Hun, "compassion"},
	{Shigou, Po, "vigilance"},
	{Fushi, Po, "appetite"},
	{Queyin, Po, "desire"},
	{Tunzei, Po, "caution"},
	{Feidu, Po, "drive"},
	{Chuhui, Po, "renewal"},
}

// Names returns all aspect names in canonical order.
func Names() []Name {
	out := make([]Name, len(definitions))
	for i, d := range definitions {
		out[i] = d.name
	}
	return out
}

// Gloss returns the plain-language meaning of an aspect name.
func Gloss(n Name) string {
	for _, d := range definitions {
		if d.name == n {
			return d.gloss
		}
	}
	return string(n)
}

// GroupOf returns the family an aspect belongs to.
func GroupOf(n Name) Group {
	for _, d := range definitions {
		if d.name == n {
			return d.group
		}
	}
	return ""
}

// Aspect is one scalar personality channel. Decay and Sensitivity are fixed at
// generation time; Current moves every cycle.
type Aspect struct {
	Name        Name    `json:"name"`
	Group       Group   `json:"group"`
	Baseline    float64 `json:"baseline"`
	Current     float64 `json:"current"`
	Threshold   float64 `json:"threshold"`
	Decay       float64 `json:"decay"`
	Sensitivity float64 `json:"sensitivity"`
}

// Aspects is the full set in canonical order.
type Aspects []Aspect

// Get returns the aspect with the given name.
func (as Aspects) Get(n Name) (Aspect, bool) {
	for _, a := range as {
		if a.Name == n {
			return a, true
		}
	}
	return Aspect{}, false
}

// Clone returns an independent copy.
func (as Aspects) Clone() Aspects {
	if as == nil {
		return nil
	}
	out := make(Aspects, len(as))
	copy(out, as)
	return out
}

// Normalize clamps every field into [0,1] and restores any aspect missing
// from a decoded record using the supplied defaults.
func (as Aspects) Normalize(defaults Aspects) Aspects {
	out := make(Aspects, 0, len(definitions))
	for _, d := range definitions {
		a, ok := as.Get(d.name)
		if !ok {
			a, ok = defaults.Get(d.name)
			if !ok {
				a = Aspect{Name: d.name, Baseline: 0.5, Current: 0.5, Threshold: 0.7, Decay: 0.1, Sensitivity: 0.5}
			}
		}
		a.Group = d.group
		a.Baseline = clamp01(a.Baseline)
		a.Current = clamp01(a.Current)
		a.Threshold = clamp01(a.Threshold)
		a.Decay = clampDecay(a.Decay)
		a.Sensitivity = clamp01(a.Sensitivity)
		out = append(out, a)
	}
	return out
}

// Archetype biases generation toward a temperament.
type Archetype string

const (
	ArchetypeNone     Archetype = ""
	ArchetypeScholar  Archetype = "scholar"
	ArchetypeArtist   Archetype = "artist"
	ArchetypeGuardian Archetype = "guardian"
	ArchetypeExplorer Archetype = "explorer"
)

// ArchetypeFloor is the minimum baseline of an archetype's favored aspects.
const ArchetypeFloor = 0.65

var archetypeAspects = map[Archetype][]Name{
	ArchetypeScholar:  {Shuangling, Taiguang},
	ArchetypeArtist:   {Youjing, Lingxi},
	ArchetypeGuardian: {Tunzei, Shigou},
	ArchetypeExplorer: {Tianchong, Feidu},
}

// Archetypes lists the recognized archetypes.
func Archetypes() []Archetype {
	return []Archetype{ArchetypeScholar, ArchetypeArtist, ArchetypeGuardian, ArchetypeExplorer}
}

const (
	baselineLo = 0.3
	baselineHi = 0.7
)

// Generate derives all thirteen aspects from seed. The same (seed, archetype)
// pair always yields identical values. Unknown archetypes behave like none.
func Generate(seed string, archetype Archetype) Aspects {
	r := NewRand(SeedFromString(seed))
	favored := map[Name]bool{}
	for _, n := range archetypeAspects[archetype] {
		favored[n] = true
	}

	out := make(Aspects, 0, len(definitions))
	for _, d := range definitions {
		baseline := r.Between(baselineLo, baselineHi)
		threshold := r.Between(0.6, 0.8)
		decay := r.Between(MinDecay, MaxDecay)
		sensitivity := r.Between(0.3, 0.8)

		if favored[d.name] {
			// Map [lo, hi) onto [floor, floor+0.25) so the archetype keeps
			// the seed's relative ordering.
			baseline = ArchetypeFloor + (baseline-baselineLo)/(baselineHi-baselineLo)*0.25
		}

		out = append(out, Aspect{
			Name:        d.name,
			Group:       d.group,
			Baseline:    baseline,
			Current:     baseline,
			Threshold:   threshold,
			Decay:       decay,
			Sensitivity: sensitivity,
		})
	}
	return out
}

// Stimulate raises current toward 1 by amount scaled by sensitivity and by the
// remaining headroom. Negative amounts are treated as zero.
func Stimulate(a Aspect, amount, sensitivity float64) float64 {
	if amount <= 0 {
		return clamp01(a.Current)
	}
	cur := clamp01(a.Current)
	return clamp01(cur + clamp01(amount)*clamp01(sensitivity)*(1-cur))
}

// Per-step decay rates. Rates stay below 1 so an aspect never lands on its
// baseline in a single step.
const (
	MinDecay = 0.05
	MaxDecay = 0.15
)

func clampDecay(v float64) float64 {
	return min(max(clamp01(v), MinDecay), MaxDecay)
}

// Decay pulls every aspect a Decay fraction of the way back to its baseline.
func Decay(as Aspects) Aspects {
	out := as.Clone()
	for i := range out {
		rate := clampDecay(out[i].Decay)
		out[i].Current = clamp01(out[i].Current + (out[i].Baseline-out[i].Current)*rate)
	}
	return out
}

// experienceAspects maps experience kinds to the aspects they excite.
var experienceAspects = map[string][]Name{
	"conversation":  {Zhongshu, Youjing},
	"task":          {Feidu, Taiguang},
	"creative":      {Lingxi, Youjing},
	"emotional":     {Youjing, Zhongshu},
	"learning":      {Shuangling, Taiguang},
	"collaborative": {Zhongshu, Qixin},
	"autonomous":    {Tianchong, Feidu},
}

// StimulateForExperience excites the aspects associated with an experience
// kind. Unknown kinds leave the aspects untouched.
func StimulateForExperience(as Aspects, experience string, intensity float64) Aspects {
	out := as.Clone()
	targets := experienceAspects[experience]
	for i := range out {
		for _, n := range targets {
			if out[i].Name == n {
				out[i].Current = Stimulate(out[i], intensity, out[i].Sensitivity)
			}
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
