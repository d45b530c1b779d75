package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeseo/internal/errors"
	"resumeseo/internal/types"
)

func TestInteractiveSample(t *testing.T) {
	var out bytes.Buffer
	src := InteractiveSource(strings.NewReader("1\n"), &out, NewFileProcessor(nil, 0))

	text, err := src()
	require.NoError(t, err)
	assert.Equal(t, types.SampleResumeText, text)
	assert.Contains(t, out.String(), "Enter choice (1-3)")
	assert.Contains(t, out.String(), "Using sample resume...")
}

func TestInteractiveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte("Jane Doe\nGo developer"), 0600))

	var out bytes.Buffer
	src := InteractiveSource(strings.NewReader("2\n  "+path+"  \n"), &out, NewFileProcessor(nil, 0))

	text, err := src()
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo developer", text)
}

func TestInteractivePasteStopsAtEmptyLine(t *testing.T) {
	input := "3\nJane Doe\nGo developer\n\nignored after blank\n"
	src := InteractiveSource(strings.NewReader(input), &bytes.Buffer{}, NewFileProcessor(nil, 0))

	text, err := src()
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo developer", text)
}

func TestInteractivePasteAtEOF(t *testing.T) {
	src := InteractiveSource(strings.NewReader("3\nonly line"), &bytes.Buffer{}, NewFileProcessor(nil, 0))

	text, err := src()
	require.NoError(t, err)
	assert.Equal(t, "only line", text)
}

func TestInteractiveInvalidChoice(t *testing.T) {
	for _, input := range []string{"4\n", "abc\n", ""} {
		src := InteractiveSource(strings.NewReader(input), &bytes.Buffer{}, NewFileProcessor(nil, 0))
		_, err := src()
		require.Error(t, err, "input %q", input)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	}
}

func TestReaderSource(t *testing.T) {
	text, err := ReaderSource(strings.NewReader("from stdin"))()
	require.NoError(t, err)
	assert.Equal(t, "from stdin", text)
}

func TestRunAnalysisWritesFormattedOutput(t *testing.T) {
	var stdout bytes.Buffer
	out := NewOutputHandlerWithWriter(errors.NewNopLogger(), &stdout)

	var received string
	analyze := func(_ context.Context, text string) (*types.ResumeAnalysis, error) {
		received = text
		return types.SampleAnalysis(types.MustFieldSet(types.FieldSetCompact)), nil
	}

	err := RunAnalysis(context.Background(), errors.NewNopLogger(),
		CommandConfig{OutputFormat: "text"}, SampleSource(), analyze, out)
	require.NoError(t, err)
	assert.Equal(t, types.SampleResumeText, received)
	assert.Contains(t, stdout.String(), "⭐ Overall SEO Score: 7/10")
}

func TestRunAnalysisToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "reports", "analysis.json")
	out := NewOutputHandlerWithWriter(errors.NewNopLogger(), &bytes.Buffer{})

	analyze := func(context.Context, string) (*types.ResumeAnalysis, error) {
		return types.SampleAnalysis(types.MustFieldSet(types.FieldSetCompact)), nil
	}

	err := RunAnalysis(context.Background(), errors.NewNopLogger(),
		CommandConfig{OutputFormat: "json", OutputFile: target}, SampleSource(), analyze, out)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"overall_score": 7`)
}

func TestRunAnalysisStopsOnInputError(t *testing.T) {
	called := false
	analyze := func(context.Context, string) (*types.ResumeAnalysis, error) {
		called = true
		return nil, nil
	}
	failing := func() (string, error) {
		return "", errors.NewIOError(errors.ErrCodeFileNotFound, "missing", nil)
	}

	err := RunAnalysis(context.Background(), errors.NewNopLogger(), CommandConfig{OutputFormat: "json"},
		failing, analyze, NewOutputHandlerWithWriter(errors.NewNopLogger(), &bytes.Buffer{}))
	require.Error(t, err)
	assert.False(t, called)
}
