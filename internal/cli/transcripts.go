package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"interviewer/internal/archive"
	"interviewer/internal/common"
	"interviewer/internal/errors"

	"github.com/spf13/cobra"
)

var transcriptsCmd = &cobra.Command{
	Use:   "transcripts",
	Short: "Browse archived interviews",
	Long: `Browse the interviews recorded in the local archive.

Finished sessions are archived when archive.enabled is set. Archived
interviews are read-only and are never resumed.`,
}

var transcriptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent interviews",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArchive(cmd, func(store *archive.Store) error {
			return listTranscripts(cmd.Context(), store, cmd.OutOrStdout(), listLimit)
		})
	},
}

var transcriptsShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Print one archived interview",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if showConfig.OutputFormat == "" {
			showConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(showConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := getLoggerFromContext(cmd.Context())
		if err != nil {
			return err
		}
		return withArchive(cmd, func(store *archive.Store) error {
			record, err := findTranscript(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			return common.NewOutputHandlerTo(cmd.OutOrStdout(), logger).HandleOutput(record.Transcript(), showConfig)
		})
	},
}

var (
	listLimit  int
	showConfig common.CommandConfig
)

func init() {
	transcriptsListCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Maximum number of interviews to list (0 for all)")
	transcriptsShowCmd.Flags().StringVarP(&showConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	transcriptsShowCmd.Flags().StringVar(&showConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	transcriptsCmd.AddCommand(transcriptsListCmd)
	transcriptsCmd.AddCommand(transcriptsShowCmd)
}

func withArchive(cmd *cobra.Command, fn func(*archive.Store) error) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	store, err := archive.Open(cfg.Archive.Path, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.LogError(err, "Failed to close archive")
		}
	}()
	return fn(store)
}

func listTranscripts(ctx context.Context, store *archive.Store, w io.Writer, limit int) error {
	records, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No archived interviews.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTATE\tTURNS\tFIT\tENDED")
	for _, r := range records {
		fit := "-"
		if r.Report != nil {
			fit = fmt.Sprintf("%d", r.Report.FitScore)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			r.SessionID, r.State, len(r.Messages), fit, r.EndedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func findTranscript(ctx context.Context, store *archive.Store, sessionID string) (*archive.Record, error) {
	record, err := store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.NewValidationError(errors.ErrCodeSessionNotFound,
			fmt.Sprintf("no archived interview with id %q", sessionID), nil)
	}
	return record, nil
}
