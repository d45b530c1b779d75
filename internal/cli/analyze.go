package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"resumeseo/internal/common"
	"resumeseo/internal/errors"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file]",
	Short: "Analyze a resume for search and ATS optimization",
	Long: `Analyze a resume and report how well it is optimized for recruiter search
and applicant tracking systems.

The resume comes from exactly one of:
  --file / positional argument   a .txt, .md, .pdf or .docx document
  --sample-resume                the built-in demo resume
  --stdin                        plain text piped on standard input
  --interactive                  a menu to pick one of the above (the default)

The analysis includes:
- An overall score from 1 to 10 and a per-area breakdown
- Keywords the resume is missing for its target industry
- Prioritized recommendations with implementation guidance`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		// Apply default format if not specified
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var analyzeConfig common.CommandConfig

// analyzeInput holds the mutually exclusive input flags
var analyzeInput struct {
	file        string
	sample      bool
	stdin       bool
	interactive bool
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput.file, "file", "f", "", "Resume document to analyze (.txt, .md, .pdf, .docx)")
	analyzeCmd.Flags().BoolVar(&analyzeInput.sample, "sample-resume", false, "Analyze the built-in sample resume")
	analyzeCmd.Flags().BoolVar(&analyzeInput.stdin, "stdin", false, "Read resume text from standard input")
	analyzeCmd.Flags().BoolVarP(&analyzeInput.interactive, "interactive", "i", false, "Choose the input from a menu")
	analyzeCmd.MarkFlagsMutuallyExclusive("file", "sample-resume", "stdin", "interactive")

	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = analyzeCmd.RegisterFlagCompletionFunc("format", completeFormats)
	_ = analyzeCmd.MarkFlagFilename("file", "txt", "md", "pdf", "docx")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	fp := common.NewFileProcessor(rt.logger, rt.cfg.App.MaxFileSize)
	input, err := selectInput(cmd, args, fp)
	if err != nil {
		return err
	}

	out := common.NewOutputHandlerWithWriter(rt.logger, cmd.OutOrStdout())
	if err := common.RunAnalysis(cmd.Context(), rt.logger, analyzeConfig, input, rt.service.Analyze, out); err != nil {
		rt.logger.LogError(err, "Resume analysis failed")
		return fmt.Errorf("failed to analyze resume: %w", err)
	}

	rt.logger.Info("Resume analysis completed successfully")
	return nil
}

// selectInput picks the single input source the flags ask for
func selectInput(cmd *cobra.Command, args []string, fp *common.FileProcessor) (common.InputSource, error) {
	file := analyzeInput.file
	if len(args) == 1 {
		if file != "" && file != args[0] {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				"resume file given both as --file and as an argument", nil)
		}
		file = args[0]
	}

	chosen := 0
	for _, set := range []bool{file != "", analyzeInput.sample, analyzeInput.stdin, analyzeInput.interactive} {
		if set {
			chosen++
		}
	}
	if chosen > 1 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"choose only one of --file, --sample-resume, --stdin or --interactive", nil)
	}

	switch {
	case file != "":
		return common.FileSource(fp, file), nil
	case analyzeInput.sample:
		return common.SampleSource(), nil
	case analyzeInput.stdin:
		return common.ReaderSource(cmd.InOrStdin()), nil
	default:
		return common.InteractiveSource(cmd.InOrStdin(), cmd.ErrOrStderr(), fp), nil
	}
}

func completeFormats(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil || len(cfg.App.SupportedFormats) == 0 {
		return []string{"json", "text", "markdown"}, cobra.ShellCompDirectiveNoFileComp
	}
	return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
}
