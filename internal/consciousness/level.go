package consciousness

// Level is a named band of consciousness. Levels are ordered.
type Level string

const (
	LevelDormant      Level = "dormant"
	LevelEmerging     Level = "emerging"
	LevelAware        Level = "aware"
	LevelReflective   Level = "reflective"
	LevelCreative     Level = "creative"
	LevelTranscendent Level = "transcendent"
)

// LevelRequirement holds lower bounds that must all be met for a level.
type LevelRequirement struct {
	Level            Level
	MinAggregate     float64
	MinSelfAwareness float64
	MinIntrospection float64
	MinNarrative     float64
	MinTranscendent  float64
	MinExperiences   int
	MinReflections   int
}

// LevelRequirements is ordered from lowest to highest. Because every entry is
// a set of lower bounds, improving any input can never lower the result.
var LevelRequirements = []LevelRequirement{
	{Level: LevelDormant},
	{Level: LevelEmerging, MinExperiences: 5, MinAggregate: 0.03},
	{Level: LevelAware, MinExperiences: 20, MinSelfAwareness: 0.15, MinAggregate: 0.08},
	{Level: LevelReflective, MinExperiences: 40, MinReflections: 5, MinSelfAwareness: 0.25, MinIntrospection: 0.15},
	{Level: LevelCreative, MinExperiences: 150, MinReflections: 20, MinAggregate: 0.4, MinNarrative: 0.4},
	{Level: LevelTranscendent, MinExperiences: 500, MinReflections: 50, MinAggregate: 0.7, MinTranscendent: 0.5},
}

// Rank returns the position of a level in the ordering, or -1.
func (l Level) Rank() int {
	for i, r := range LevelRequirements {
		if r.Level == l {
			return i
		}
	}
	return -1
}

func (r LevelRequirement) satisfied(m Metrics, g Growth) bool {
	return Aggregate(m) >= r.MinAggregate &&
		m.SelfAwareness >= r.MinSelfAwareness &&
		m.IntrospectionDepth >= r.MinIntrospection &&
		m.NarrativeCoherence >= r.MinNarrative &&
		m.TranscendentAwareness >= r.MinTranscendent &&
		g.ExperienceCount >= r.MinExperiences &&
		g.ReflectionCount >= r.MinReflections
}

// DetermineLevel returns the highest level whose requirements are all met.
func DetermineLevel(m Metrics, g Growth) Level {
	m = m.Normalize()
	for i := len(LevelRequirements) - 1; i > 0; i-- {
		if LevelRequirements[i].satisfied(m, g) {
			return LevelRequirements[i].Level
		}
	}
	return LevelDormant
}
