package types

import (
	"encoding/json"
	"fmt"
	"math"
)

// Priority is the urgency of a single recommendation
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists the accepted priority values in presentation order
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// SEORecommendation is one actionable suggestion returned by the model
type SEORecommendation struct {
	Category       string   `json:"category"`
	Recommendation string   `json:"recommendation"`
	Priority       Priority `json:"priority" validate:"required,oneof=High Medium Low"`
	Implementation string   `json:"implementation"`
}

// ScoreBreakdown holds the named sub-scores of an analysis. Which keys are
// expected depends on the FieldSet in use; see FieldSet.Check.
type ScoreBreakdown struct {
	Scores      map[string]int `validate:"required"`
	Explanation string
}

// Get returns the score stored under key, or zero when absent
func (b ScoreBreakdown) Get(key string) int {
	return b.Scores[key]
}

// MarshalJSON flattens the scores and the optional explanation into one object
func (b ScoreBreakdown) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Scores)+1)
	for k, v := range b.Scores {
		out[k] = v
	}
	if b.Explanation != "" {
		out[explanationKey] = b.Explanation
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads integer sub-scores and the optional explanation.
// Whole-valued floats such as 7.0 are accepted; other non-numeric keys are ignored.
func (b *ScoreBreakdown) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	b.Scores = make(map[string]int, len(raw))
	b.Explanation = ""
	for key, value := range raw {
		if key == explanationKey {
			if err := json.Unmarshal(value, &b.Explanation); err != nil {
				return fmt.Errorf("score_breakdown.explanation: %w", err)
			}
			continue
		}

		var n float64
		if err := json.Unmarshal(value, &n); err != nil {
			continue
		}
		if n != math.Trunc(n) {
			return fmt.Errorf("score_breakdown.%s: %v is not an integer", key, n)
		}
		b.Scores[key] = int(n)
	}
	return nil
}

const explanationKey = "explanation"

// ResumeAnalysis is the validated report produced for one resume
type ResumeAnalysis struct {
	CurrentRole        string              `json:"current_role,omitempty"`
	TargetIndustry     string              `json:"target_industry"`
	MissingKeywords    []string            `json:"missing_keywords" validate:"required"`
	SEORecommendations []SEORecommendation `json:"seo_recommendations" validate:"required,dive"`
	OverallScore       int                 `json:"overall_score" validate:"min=1,max=10"`
	ScoreBreakdown     ScoreBreakdown      `json:"score_breakdown"`
	Summary            string              `json:"summary"`
}

// AnalysisRequest is the body accepted by the analyze endpoint
type AnalysisRequest struct {
	ResumeText string `json:"resume_text"`
	UserEmail  string `json:"user_email,omitempty"`
}

// AnalysisEnvelope is the wrapped response shape used by serverless deployments
type AnalysisEnvelope struct {
	Analysis     *ResumeAnalysis `json:"analysis"`
	ResumeLength int             `json:"resume_length"`
	WordCount    int             `json:"word_count"`
	Timestamp    string          `json:"timestamp"`
}
