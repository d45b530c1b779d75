package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeseo/internal/errors"
	"resumeseo/internal/types"
)

const compactReply = `{"target_industry":"Technology","missing_keywords":["Python"],"seo_recommendations":[{"category":"Keywords","recommendation":"Add Python","priority":"High","implementation":"Add to skills section"}],"overall_score":6,"score_breakdown":{"keyword_score":5,"ats_compatibility":7,"content_quality":6,"format_score":6},"summary":"Needs more keywords."}`

func compact() types.FieldSet { return types.MustFieldSet(types.FieldSetCompact) }

func TestValidateAcceptsConformingPayload(t *testing.T) {
	analysis, err := Validate([]byte(compactReply), compact())
	require.NoError(t, err)

	assert.Equal(t, "Technology", analysis.TargetIndustry)
	assert.Equal(t, []string{"Python"}, analysis.MissingKeywords)
	require.Len(t, analysis.SEORecommendations, 1)
	assert.Equal(t, types.PriorityHigh, analysis.SEORecommendations[0].Priority)
	assert.Equal(t, 6, analysis.OverallScore)
	assert.Equal(t, 7, analysis.ScoreBreakdown.Get("ats_compatibility"))
	assert.Empty(t, analysis.CurrentRole)
}

func TestValidateAcceptsEmptySequences(t *testing.T) {
	payload := mutate(t, compactReply, func(m map[string]any) {
		m["missing_keywords"] = []any{}
		m["seo_recommendations"] = []any{}
	})

	analysis, err := Validate(payload, compact())
	require.NoError(t, err)
	assert.NotNil(t, analysis.MissingKeywords)
	assert.NotNil(t, analysis.SEORecommendations)
	assert.Empty(t, analysis.SEORecommendations)
}

func TestValidateAcceptsEmptyStrings(t *testing.T) {
	payload := mutate(t, compactReply, func(m map[string]any) {
		m["target_industry"] = ""
		m["summary"] = ""
		rec := m["seo_recommendations"].([]any)[0].(map[string]any)
		rec["category"] = ""
		rec["recommendation"] = ""
		rec["implementation"] = ""
	})

	analysis, err := Validate(payload, compact())
	require.NoError(t, err)
	assert.Empty(t, analysis.TargetIndustry)
	assert.Empty(t, analysis.Summary)
	assert.Empty(t, analysis.SEORecommendations[0].Category)
}

func TestValidateIgnoresScoresOutsideFieldSet(t *testing.T) {
	payload := mutate(t, compactReply, func(m map[string]any) {
		m["score_breakdown"].(map[string]any)["total"] = 42
	})

	analysis, err := Validate(payload, compact())
	require.NoError(t, err)
	assert.Equal(t, 6, analysis.ScoreBreakdown.Get("format_score"))
}

func TestCheckReportsBreakdownJSONPaths(t *testing.T) {
	fs := compact()
	analysis := types.SampleAnalysis(fs)
	analysis.ScoreBreakdown.Scores["format_score"] = 12
	delete(analysis.ScoreBreakdown.Scores, "content_quality")

	err := Check(analysis, fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "score_breakdown.format_score: must be between 1 and 10, got 12")
	assert.Contains(t, err.Error(), "score_breakdown.content_quality: is required")
	assert.NotContains(t, err.Error(), "Scores[")
}

func TestValidateRejectsViolations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m map[string]any)
		wantMsg string
	}{
		{
			name:    "missing required field",
			mutate:  func(m map[string]any) { delete(m, "summary") },
			wantMsg: "summary",
		},
		{
			name:    "missing keywords absent",
			mutate:  func(m map[string]any) { delete(m, "missing_keywords") },
			wantMsg: "missing_keywords",
		},
		{
			name:    "overall score above range",
			mutate:  func(m map[string]any) { m["overall_score"] = 11 },
			wantMsg: "overall_score",
		},
		{
			name:    "overall score below range",
			mutate:  func(m map[string]any) { m["overall_score"] = 0 },
			wantMsg: "overall_score",
		},
		{
			name: "sub-score out of range",
			mutate: func(m map[string]any) {
				m["score_breakdown"].(map[string]any)["format_score"] = 12
			},
			wantMsg: "format_score",
		},
		{
			name: "sub-score missing for field set",
			mutate: func(m map[string]any) {
				delete(m["score_breakdown"].(map[string]any), "content_quality")
			},
			wantMsg: "content_quality",
		},
		{
			name: "priority outside enum",
			mutate: func(m map[string]any) {
				m["seo_recommendations"].([]any)[0].(map[string]any)["priority"] = "Urgent"
			},
			wantMsg: "priority",
		},
		{
			name:    "keywords of wrong shape",
			mutate:  func(m map[string]any) { m["missing_keywords"] = "Python, AWS" },
			wantMsg: "missing_keywords",
		},
		{
			name:    "keywords holding non-strings",
			mutate:  func(m map[string]any) { m["missing_keywords"] = []any{"Python", 3} },
			wantMsg: "missing_keywords",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(mutate(t, compactReply, tt.mutate), compact())
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeSchema), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateRejectsTopLevelArray(t *testing.T) {
	_, err := Validate([]byte(`[`+compactReply+`]`), compact())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestValidateFullFieldSet(t *testing.T) {
	full := types.MustFieldSet(types.FieldSetFull)

	_, err := Validate([]byte(compactReply), full)
	require.Error(t, err, "compact breakdown must not satisfy the full field set")
	assert.Contains(t, err.Error(), "industry_terms")

	payload, err := json.Marshal(types.SampleAnalysis(full))
	require.NoError(t, err)
	analysis, err := Validate(payload, full)
	require.NoError(t, err)
	assert.Equal(t, "Software Developer", analysis.CurrentRole)
	assert.NotEmpty(t, analysis.ScoreBreakdown.Explanation)
}

func TestCheckSampleAnalyses(t *testing.T) {
	for _, name := range types.FieldSetNames() {
		fs := types.MustFieldSet(name)
		assert.NoError(t, Check(types.SampleAnalysis(fs), fs), name)
	}
}

func TestCheckRejectsNilSequences(t *testing.T) {
	fs := compact()
	analysis := types.SampleAnalysis(fs)
	analysis.MissingKeywords = nil

	err := Check(analysis, fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_keywords: is required")
}

func TestDescribeMentionsEveryField(t *testing.T) {
	for _, name := range types.FieldSetNames() {
		fs := types.MustFieldSet(name)
		desc := Describe(fs)

		for _, key := range append(fs.Keys(), "target_industry", "missing_keywords", "seo_recommendations", "overall_score", "summary") {
			assert.Contains(t, desc, `"`+key+`"`, "%s description should mention %s", name, key)
		}
		assert.Contains(t, desc, `"High", "Medium", "Low"`)
		assert.Equal(t, fs.Explanation, strings.Contains(desc, `"explanation"`))
		assert.Equal(t, desc, Describe(fs))
	}
}

func TestJSONSchemaIsValidJSON(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(JSONSchema(compact())), &doc))
	assert.Equal(t, "object", doc["type"])
}

func mutate(t *testing.T, payload string, fn func(m map[string]any)) []byte {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &m))
	fn(m)
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return out
}
