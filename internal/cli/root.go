package cli

import (
	"context"
	"fmt"

	"interviewer/internal/config"
	"interviewer/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "interviewer",
	Short: "An AI interviewer that screens candidates against a job description",
	Long: `Interviewer reads a job description and a candidate's resume, generates
tailored interview questions, conducts the interview one question at a time
and, once the interview is over, produces a suitability analysis.

Run it interactively in the terminal with "interview", or serve the web UI
and REST API with "serve".`,
	SilenceUsage: true,
}

// Execute runs the root command with cfg and logger available to every subcommand
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg, nil
	}
	return nil, fmt.Errorf("config not found in context")
}

func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger, nil
	}
	return nil, fmt.Errorf("logger not found in context")
}

func init() {
	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(transcriptsCmd)
	rootCmd.AddCommand(versionCmd)
}
