package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"resumeseo/internal/types"
)

// Formatter renders one kind of value in one output format
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

const (
	typeAnalysis = "ResumeAnalysis"
	typeAny      = "any"
)

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", typeAny, &JSONFormatter{})
	registry.RegisterFormatter("text", typeAnalysis, &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", typeAnalysis, &AnalysisMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[typeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *types.ResumeAnalysis, types.ResumeAnalysis:
		return typeAnalysis
	default:
		return typeAny
	}
}

func asAnalysis(data any) (*types.ResumeAnalysis, error) {
	switch v := data.(type) {
	case *types.ResumeAnalysis:
		if v == nil {
			return nil, fmt.Errorf("analysis is nil")
		}
		return v, nil
	case types.ResumeAnalysis:
		return &v, nil
	default:
		return nil, fmt.Errorf("expected ResumeAnalysis, got %T", data)
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return typeAny
}

// PriorityMarker returns the colored marker shown next to a recommendation
func PriorityMarker(p types.Priority) string {
	switch p {
	case types.PriorityHigh:
		return "🔴"
	case types.PriorityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}

var scoreIcons = map[string]string{
	"keyword_score":       "🔤",
	"ats_compatibility":   "🤖",
	"industry_terms":      "🏭",
	"skills_optimization": "💪",
	"format_structure":    "📄",
	"content_quality":     "✍️",
	"format_score":        "📄",
}

type scoreLine struct {
	key   string
	label string
	value int
}

// orderedScores lists known sub-scores in field set order, then any others by key
func orderedScores(b types.ScoreBreakdown) []scoreLine {
	var lines []scoreLine
	seen := map[string]bool{}

	for _, name := range []string{types.FieldSetFull, types.FieldSetCompact} {
		for _, f := range types.MustFieldSet(name).Fields {
			if v, ok := b.Scores[f.Key]; ok && !seen[f.Key] {
				lines = append(lines, scoreLine{key: f.Key, label: f.Label, value: v})
				seen[f.Key] = true
			}
		}
	}

	var rest []string
	for key := range b.Scores {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	slices.Sort(rest)
	for _, key := range rest {
		lines = append(lines, scoreLine{key: key, label: key, value: b.Scores[key]})
	}
	return lines
}

// AnalysisTextFormatter renders an analysis for a terminal
type AnalysisTextFormatter struct{}

func (f *AnalysisTextFormatter) Format(data any) (string, error) {
	a, err := asAnalysis(data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	rule := strings.Repeat("=", 50)

	out.WriteString("✅ Analysis Complete!\n")
	out.WriteString(rule + "\n")
	if a.CurrentRole != "" {
		fmt.Fprintf(&out, "📋 Current Role: %s\n", a.CurrentRole)
	}
	fmt.Fprintf(&out, "🎯 Target Industry: %s\n", a.TargetIndustry)
	fmt.Fprintf(&out, "⭐ Overall SEO Score: %d/10\n", a.OverallScore)

	out.WriteString("\n📊 Score Breakdown:\n")
	for _, line := range orderedScores(a.ScoreBreakdown) {
		icon := scoreIcons[line.key]
		if icon == "" {
			icon = "•"
		}
		fmt.Fprintf(&out, "   %s %s: %d/10\n", icon, line.label, line.value)
	}
	if a.ScoreBreakdown.Explanation != "" {
		fmt.Fprintf(&out, "   💡 Explanation: %s\n", a.ScoreBreakdown.Explanation)
	}

	fmt.Fprintf(&out, "\n📝 Summary: %s\n", a.Summary)

	if len(a.MissingKeywords) > 0 {
		fmt.Fprintf(&out, "\n🔍 Missing Keywords: %s\n", strings.Join(a.MissingKeywords, ", "))
	}

	fmt.Fprintf(&out, "\n💡 SEO Recommendations (%d total):\n", len(a.SEORecommendations))
	out.WriteString(rule + "\n")
	for i, rec := range a.SEORecommendations {
		fmt.Fprintf(&out, "\n%d. %s %s [%s Priority]\n", i+1, PriorityMarker(rec.Priority), rec.Category, rec.Priority)
		fmt.Fprintf(&out, "   💡 %s\n", rec.Recommendation)
		if rec.Implementation != "" {
			fmt.Fprintf(&out, "   🛠️  How to implement: %s\n", rec.Implementation)
		}
	}

	return out.String(), nil
}

func (f *AnalysisTextFormatter) SupportedType() string {
	return typeAnalysis
}

// AnalysisMarkdownFormatter renders an analysis as a Markdown report
type AnalysisMarkdownFormatter struct{}

func (f *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	a, err := asAnalysis(data)
	if err != nil {
		return "", err
	}

	var out strings.Builder

	out.WriteString("# Resume SEO Analysis\n\n")
	if a.CurrentRole != "" {
		fmt.Fprintf(&out, "**Current Role:** %s  \n", a.CurrentRole)
	}
	fmt.Fprintf(&out, "**Target Industry:** %s  \n", a.TargetIndustry)
	fmt.Fprintf(&out, "**Overall SEO Score:** %d/10\n\n", a.OverallScore)

	out.WriteString("## Score Breakdown\n\n")
	out.WriteString("| Area | Score |\n|---|---|\n")
	for _, line := range orderedScores(a.ScoreBreakdown) {
		fmt.Fprintf(&out, "| %s | %d/10 |\n", line.label, line.value)
	}
	if a.ScoreBreakdown.Explanation != "" {
		fmt.Fprintf(&out, "\n%s\n", a.ScoreBreakdown.Explanation)
	}

	fmt.Fprintf(&out, "\n## Summary\n\n%s\n", a.Summary)

	out.WriteString("\n## Missing Keywords\n\n")
	if len(a.MissingKeywords) == 0 {
		out.WriteString("_None_\n")
	}
	for _, kw := range a.MissingKeywords {
		fmt.Fprintf(&out, "- %s\n", kw)
	}

	out.WriteString("\n## SEO Recommendations\n")
	for i, rec := range a.SEORecommendations {
		fmt.Fprintf(&out, "\n### %d. %s %s (%s)\n\n", i+1, PriorityMarker(rec.Priority), rec.Category, rec.Priority)
		fmt.Fprintf(&out, "%s\n", rec.Recommendation)
		if rec.Implementation != "" {
			fmt.Fprintf(&out, "\n**How to implement:** %s\n", rec.Implementation)
		}
	}

	return out.String(), nil
}

func (f *AnalysisMarkdownFormatter) SupportedType() string {
	return typeAnalysis
}
