package cli

import (
	"github.com/spf13/cobra"

	"resumeseo/internal/common"
	"resumeseo/internal/types"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Print the canned analysis of the sample resume",
	Long: `Print a fixed example analysis without calling the model. Useful to see
the output shape, or to check a formatter.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if sampleConfig.OutputFormat == "" {
			sampleConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(sampleConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runSample,
}

var sampleConfig common.CommandConfig

func init() {
	sampleCmd.Flags().StringVarP(&sampleConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	sampleCmd.Flags().StringVar(&sampleConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	_ = sampleCmd.RegisterFlagCompletionFunc("format", completeFormats)
}

func runSample(cmd *cobra.Command, _ []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	out := common.NewOutputHandlerWithWriter(logger, cmd.OutOrStdout())
	return out.HandleOutput(types.SampleAnalysis(cfg.FieldSet()), sampleConfig)
}
