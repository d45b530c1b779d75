package ai

import (
	"strings"

	"resumeseo/internal/config"
)

// DefaultSystemPrompt is the analyst instruction. Its single placeholder
// receives the output schema description.
const DefaultSystemPrompt = `You are an expert resume SEO analyst. Analyze the provided resume and provide specific search engine optimization recommendations.

Focus on:
1. ATS (Applicant Tracking System) optimization
2. Industry-specific keywords
3. Skills and technologies that should be highlighted
4. Format and structure improvements for better scanning
5. Missing keywords that recruiters commonly search for

SCORING SYSTEM (1-10):
- 1-3: Poor - Major SEO issues, missing critical keywords, poor ATS compatibility
- 4-5: Below Average - Some keywords present but lacks optimization, formatting issues
- 6-7: Good - Decent keyword usage, mostly ATS-friendly, room for improvement
- 8-9: Excellent - Well-optimized, strong keyword presence, ATS-friendly format
- 10: Perfect - Exceptional SEO optimization, comprehensive keywords, ideal ATS format

Consider these scoring factors:
• Keyword density and relevance (25%)
• ATS compatibility (25%)
• Industry-specific terminology (20%)
• Skills section optimization (15%)
• Format and structure (15%)

Provide actionable, specific recommendations with priority levels.

%s`

// DefaultUserPrompt carries the resume text through its single placeholder
const DefaultUserPrompt = `Please analyze this resume for SEO optimization:

%s`

const placeholder = "%s"

// PromptBuilder renders the system and user templates into one prompt
type PromptBuilder struct {
	system string
	user   string
}

// NewPromptBuilder returns a builder using cfg overrides where present
func NewPromptBuilder(cfg config.PromptConfig) *PromptBuilder {
	return &PromptBuilder{
		system: resolvePrompt(cfg.System, DefaultSystemPrompt),
		user:   resolvePrompt(cfg.User, DefaultUserPrompt),
	}
}

// Build is deterministic: the same inputs always yield the same prompt.
// Placeholders are substituted literally, so percent signs in the rubric or
// the resume are never interpreted as format verbs.
func (b *PromptBuilder) Build(resumeText, schemaDescription string) string {
	system := strings.Replace(b.system, placeholder, schemaDescription, 1)
	user := strings.Replace(b.user, placeholder, resumeText, 1)
	return system + "\n\n" + user
}

// resolvePrompt prefers the configured template, which config loading has
// already populated from a prompt file when one was given.
func resolvePrompt(fromConfig, fromDefault string) string {
	if strings.TrimSpace(fromConfig) != "" {
		return fromConfig
	}
	return fromDefault
}
