package types

// SampleResumeText is the demo resume offered by the CLI
const SampleResumeText = `
John Smith
Software Developer
Email: john.smith@email.com
Phone: (555) 123-4567

Experience:
- Worked at Tech Company for 2 years
- Built websites using JavaScript
- Fixed bugs and wrote code

Education:
- Computer Science Degree from University

Skills:
- Programming
- Problem solving
`

// Envelope values reported alongside the sample analysis
const (
	SampleResumeLength = 850
	SampleWordCount    = 127
	SampleTimestamp    = "sample"
)

// SampleAnalysis returns the canned analysis for the given field set. Every
// call builds a fresh value so callers may modify the result.
func SampleAnalysis(fs FieldSet) *ResumeAnalysis {
	analysis := &ResumeAnalysis{
		TargetIndustry:  "Technology",
		MissingKeywords: []string{"Python", "Machine Learning", "AWS", "Docker"},
		SEORecommendations: []SEORecommendation{
			{
				Category:       "Keywords",
				Recommendation: `Add "Python programming" and "data analysis" keywords`,
				Priority:       PriorityHigh,
				Implementation: "Include these terms in your skills section and project descriptions",
			},
			{
				Category:       "ATS Optimization",
				Recommendation: `Use standard section headers like "Work Experience" and "Education"`,
				Priority:       PriorityHigh,
				Implementation: "Replace creative headers with ATS-friendly standard ones",
			},
			{
				Category:       "Technical Skills",
				Recommendation: "Create a dedicated technical skills section",
				Priority:       PriorityMedium,
				Implementation: "List programming languages, frameworks, and tools separately",
			},
		},
		OverallScore: 7,
		Summary:      "Good foundation but needs more industry-specific keywords and technical skills highlighted. Consider adding quantified achievements and ensuring ATS compatibility.",
	}

	switch fs.Name {
	case FieldSetFull:
		analysis.CurrentRole = "Software Developer"
		analysis.ScoreBreakdown = ScoreBreakdown{
			Scores: map[string]int{
				"keyword_score":       6,
				"ats_compatibility":   8,
				"industry_terms":      5,
				"skills_optimization": 6,
				"format_structure":    7,
			},
			Explanation: "Clear structure, but the skills section is generic and lacks the technical terms recruiters search for.",
		}
	default:
		analysis.ScoreBreakdown = ScoreBreakdown{
			Scores: map[string]int{
				"keyword_score":     6,
				"ats_compatibility": 8,
				"content_quality":   7,
				"format_score":      7,
			},
		}
	}

	return analysis
}
