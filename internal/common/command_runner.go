package common

import (
	"context"

	"resumeseo/internal/errors"
	"resumeseo/internal/types"
	"resumeseo/internal/utils"
)

// AnalyzeFunc runs one analysis, typically ai.Service.Analyze
type AnalyzeFunc func(ctx context.Context, resumeText string) (*types.ResumeAnalysis, error)

// RunAnalysis resolves the input, analyzes it and hands the result to out
func RunAnalysis(
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	input InputSource,
	analyze AnalyzeFunc,
	out *OutputHandler,
) error {
	text, err := input()
	if err != nil {
		return err
	}

	logger.Info("Analyzing resume",
		"characters", len(text),
		"words", utils.CountWords(text),
		"format", cmdConfig.OutputFormat,
		"output_file", cmdConfig.OutputFile)

	analysis, err := analyze(ctx, text)
	if err != nil {
		return err
	}

	return out.HandleOutput(analysis, cmdConfig)
}
