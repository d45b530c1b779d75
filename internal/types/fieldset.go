package types

import (
	"fmt"
	"slices"
	"sort"
)

// ScoreField is one named sub-score inside a ScoreBreakdown
type ScoreField struct {
	Key   string
	Label string
}

// FieldSet names the sub-scores a ScoreBreakdown is expected to carry.
// Deployments pick one by name through configuration.
type FieldSet struct {
	Name        string
	Fields      []ScoreField
	Explanation bool
}

const (
	FieldSetFull    = "full"
	FieldSetCompact = "compact"
)

var fieldSets = map[string]FieldSet{
	FieldSetFull: {
		Name: FieldSetFull,
		Fields: []ScoreField{
			{Key: "keyword_score", Label: "Keywords"},
			{Key: "ats_compatibility", Label: "ATS Compatibility"},
			{Key: "industry_terms", Label: "Industry Terms"},
			{Key: "skills_optimization", Label: "Skills Optimization"},
			{Key: "format_structure", Label: "Format & Structure"},
		},
		Explanation: true,
	},
	FieldSetCompact: {
		Name: FieldSetCompact,
		Fields: []ScoreField{
			{Key: "keyword_score", Label: "Keywords"},
			{Key: "ats_compatibility", Label: "ATS Compatibility"},
			{Key: "content_quality", Label: "Content Quality"},
			{Key: "format_score", Label: "Format"},
		},
	},
}

// LookupFieldSet returns the field set registered under name
func LookupFieldSet(name string) (FieldSet, error) {
	fs, ok := fieldSets[name]
	if !ok {
		return FieldSet{}, fmt.Errorf("unknown score field set '%s'. Supported field sets: %v", name, FieldSetNames())
	}
	return fs, nil
}

// MustFieldSet is LookupFieldSet for names known at compile time
func MustFieldSet(name string) FieldSet {
	fs, err := LookupFieldSet(name)
	if err != nil {
		panic(err)
	}
	return fs
}

// FieldSetNames lists the registered field set names, sorted
func FieldSetNames() []string {
	names := make([]string, 0, len(fieldSets))
	for name := range fieldSets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keys returns the sub-score keys in presentation order
func (fs FieldSet) Keys() []string {
	keys := make([]string, len(fs.Fields))
	for i, f := range fs.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Score bounds shared by the overall score and every sub-score
const (
	MinScore = 1
	MaxScore = 10
)

// ScoreViolation is one problem with a breakdown, at its JSON path
type ScoreViolation struct {
	Path    string
	Message string
}

// Violations lists the field set keys the breakdown is missing or scores
// out of range. Keys outside the field set are ignored.
func (fs FieldSet) Violations(b ScoreBreakdown) []ScoreViolation {
	var out []ScoreViolation
	for _, key := range fs.Keys() {
		path := "score_breakdown." + key
		score, ok := b.Scores[key]
		switch {
		case !ok:
			out = append(out, ScoreViolation{path, fmt.Sprintf("is required for field set '%s'", fs.Name)})
		case score < MinScore || score > MaxScore:
			out = append(out, ScoreViolation{path, fmt.Sprintf("must be between %d and %d, got %d", MinScore, MaxScore, score)})
		}
	}
	return out
}

// Check reports the first problem Violations finds
func (fs FieldSet) Check(b ScoreBreakdown) error {
	if v := fs.Violations(b); len(v) > 0 {
		return fmt.Errorf("%s %s", v[0].Path, v[0].Message)
	}
	return nil
}

// Has reports whether key belongs to this field set
func (fs FieldSet) Has(key string) bool {
	return slices.Contains(fs.Keys(), key)
}
