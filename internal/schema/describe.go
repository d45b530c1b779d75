// Package schema describes and enforces the shape of a ResumeAnalysis.
//
// The same field set drives three views of the schema: a prose description
// embedded in prompts, a JSON Schema document used to check raw model
// payloads, and struct-level rules applied to the decoded record.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"resumeseo/internal/types"
)

const (
	MinScore = types.MinScore
	MaxScore = types.MaxScore
)

// Describe renders the expected output shape as prompt text
func Describe(fs types.FieldSet) string {
	var b strings.Builder

	b.WriteString("Respond with a single JSON object using exactly these fields:\n")
	b.WriteString(`- "current_role" (string, optional): the candidate's current or most recent job title` + "\n")
	b.WriteString(`- "target_industry" (string, required): the industry this resume should target` + "\n")
	b.WriteString(`- "missing_keywords" (array of strings, required, may be empty): important keywords absent from the resume` + "\n")
	b.WriteString(`- "seo_recommendations" (array of objects, required, may be empty), most important first, each with:` + "\n")
	b.WriteString(`    - "category" (string): area of the resume the recommendation targets` + "\n")
	b.WriteString(`    - "recommendation" (string): what to change` + "\n")
	fmt.Fprintf(&b, `    - "priority" (string): one of %s`+"\n", quotedPriorities())
	b.WriteString(`    - "implementation" (string): how to apply the change` + "\n")
	fmt.Fprintf(&b, `- "overall_score" (integer %d-%d, required): overall SEO score`+"\n", MinScore, MaxScore)
	fmt.Fprintf(&b, `- "score_breakdown" (object, required) with these integer fields, each %d-%d:`+"\n", MinScore, MaxScore)
	for _, f := range fs.Fields {
		fmt.Fprintf(&b, `    - "%s": %s`+"\n", f.Key, f.Label)
	}
	if fs.Explanation {
		b.WriteString(`    - "explanation" (string): a short justification of the scores` + "\n")
	}
	b.WriteString(`- "summary" (string, required): a brief overall assessment` + "\n")
	b.WriteString("Return only the JSON object, without markdown fences or commentary.")

	return b.String()
}

func quotedPriorities() string {
	quoted := make([]string, len(types.Priorities))
	for i, p := range types.Priorities {
		quoted[i] = fmt.Sprintf("%q", string(p))
	}
	return strings.Join(quoted, ", ")
}

// JSONSchema returns the JSON Schema document for analyses using fs
func JSONSchema(fs types.FieldSet) string {
	doc, err := json.Marshal(jsonSchemaDocument(fs))
	if err != nil {
		// only static maps of strings, ints and slices are marshalled here
		panic(fmt.Sprintf("schema: marshal JSON schema: %v", err))
	}
	return string(doc)
}

func jsonSchemaDocument(fs types.FieldSet) map[string]any {
	score := map[string]any{"type": "integer", "minimum": MinScore, "maximum": MaxScore}
	str := map[string]any{"type": "string"}

	priorities := make([]string, len(types.Priorities))
	for i, p := range types.Priorities {
		priorities[i] = string(p)
	}

	breakdownProps := map[string]any{}
	for _, key := range fs.Keys() {
		breakdownProps[key] = score
	}
	if fs.Explanation {
		breakdownProps["explanation"] = str
	}

	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"title":   "ResumeAnalysis",
		"type":    "object",
		"properties": map[string]any{
			"current_role":    str,
			"target_industry": str,
			"missing_keywords": map[string]any{
				"type":  "array",
				"items": str,
			},
			"seo_recommendations": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"category":       str,
						"recommendation": str,
						"priority":       map[string]any{"type": "string", "enum": priorities},
						"implementation": str,
					},
					"required": []string{"category", "recommendation", "priority", "implementation"},
				},
			},
			"overall_score": score,
			"score_breakdown": map[string]any{
				"type":       "object",
				"properties": breakdownProps,
				"required":   fs.Keys(),
			},
			"summary": str,
		},
		"required": []string{
			"target_industry",
			"missing_keywords",
			"seo_recommendations",
			"overall_score",
			"score_breakdown",
			"summary",
		},
	}
}
