package reflection

import (
	"regexp"
	"strings"
)

// Bucket names one self-model category.
type Bucket string

const (
	Weaknesses   Bucket = "weaknesses"
	Strengths    Bucket = "strengths"
	Preferences  Bucket = "preferences"
	Values       Bucket = "values"
	Observations Bucket = "observations"
)

// SelfModel is what the agent believes about itself.
type SelfModel struct {
	Preferences  []string `json:"preferences"`
	Strengths    []string `json:"strengths"`
	Weaknesses   []string `json:"weaknesses"`
	Values       []string `json:"values"`
	Observations []string `json:"observations"`
}

// Bucket returns the entries in b.
func (s SelfModel) Bucket(b Bucket) []string {
	switch b {
	case Preferences:
		return s.Preferences
	case Strengths:
		return s.Strengths
	case Weaknesses:
		return s.Weaknesses
	case Values:
		return s.Values
	}
	return s.Observations
}

func (s *SelfModel) set(b Bucket, v []string) {
	switch b {
	case Preferences:
		s.Preferences = v
	case Strengths:
		s.Strengths = v
	case Weaknesses:
		s.Weaknesses = v
	case Values:
		s.Values = v
	default:
		s.Observations = v
	}
}

// Clone returns a deep copy.
func (s SelfModel) Clone() SelfModel {
	cp := func(v []string) []string {
		if v == nil {
			return nil
		}
		return append([]string(nil), v...)
	}
	return SelfModel{
		Preferences:  cp(s.Preferences),
		Strengths:    cp(s.Strengths),
		Weaknesses:   cp(s.Weaknesses),
		Values:       cp(s.Values),
		Observations: cp(s.Observations),
	}
}

type rule struct {
	bucket Bucket
	re     *regexp.Regexp
}

func wordsRe(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// Rules are checked in order; the first match wins.
var rules = []rule{
	{Weaknesses, wordsRe("struggle", "struggled", "struggling", "weak", "weakness", "difficult", "fail", "failed", "mistake", "mistakes", "could improve", "need to improve", "not good at", "limitation")},
	{Strengths, wordsRe("good at", "excel", "excels", "strength", "skilled", "effective", "succeed", "succeeded", "capable")},
	{Preferences, wordsRe("enjoy", "enjoyed", "prefer", "like", "love", "drawn to", "interested in")},
	{Values, wordsRe("value", "values", "important", "believe", "care about", "matters")},
}

// Classify assigns an insight to exactly one bucket.
func Classify(insight string) Bucket {
	for _, r := range rules {
		if r.re.MatchString(insight) {
			return r.bucket
		}
	}
	return Observations
}

// AddInsight classifies insight and inserts it unless an equal entry already
// exists. Each bucket keeps at most MaxBucket entries, oldest dropped first.
func AddInsight(s SelfModel, insight string) SelfModel {
	insight = strings.TrimSpace(insight)
	if insight == "" {
		return s
	}
	return AddTo(s, Classify(insight), insight)
}

// AddTo inserts entry into a specific bucket with the same dedupe and bound
// rules as AddInsight.
func AddTo(s SelfModel, b Bucket, entry string) SelfModel {
	out := s.Clone()
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return out
	}
	cur := out.Bucket(b)
	for _, e := range cur {
		if strings.EqualFold(e, entry) {
			return out
		}
	}
	cur = append(cur, entry)
	if len(cur) > MaxBucket {
		cur = cur[len(cur)-MaxBucket:]
	}
	out.set(b, cur)
	return out
}

// RemoveFrom deletes entry from bucket b.
func RemoveFrom(s SelfModel, b Bucket, entry string) SelfModel {
	out := s.Clone()
	var kept []string
	for _, e := range out.Bucket(b) {
		if !strings.EqualFold(e, entry) {
			kept = append(kept, e)
		}
	}
	out.set(b, kept)
	return out
}

// ParseBucket maps a field segment to a bucket.
func ParseBucket(name string) (Bucket, bool) {
	switch b := Bucket(strings.ToLower(name)); b {
	case Preferences, Strengths, Weaknesses, Values, Observations:
		return b, true
	}
	return "", false
}

// Normalize trims each bucket to its bound.
func (s SelfModel) Normalize() SelfModel {
	out := s.Clone()
	for _, b := range []Bucket{Preferences, Strengths, Weaknesses, Values, Observations} {
		if v := out.Bucket(b); len(v) > MaxBucket {
			out.set(b, v[len(v)-MaxBucket:])
		}
	}
	return out
}
