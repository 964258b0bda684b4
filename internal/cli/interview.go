package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"interviewer/internal/common"
	"interviewer/internal/errors"
	"interviewer/internal/session"
	"interviewer/internal/types"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

const (
	quitCommand          = "/quit"
	promptGenerateReport = "Generate analysis"
	promptExit           = "Exit"

	maxAutoAnalysisAttempts = 3
)

var errQuit = stderrors.New("interview abandoned")

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Conduct an interview in the terminal",
	Long: `Conduct an interview in the terminal.

The job description (.txt) and the resume (.pdf) are read from disk, the
interviewer generates its questions and then asks them one at a time. Type
your answer and press ENTER; type /quit to stop early.

When the interviewer has finished, the suitability analysis can be generated
and written to stdout or to a file in any supported format.`,
	Example: `  interviewer interview --job job.txt --resume resume.pdf
  interviewer interview -j job.txt -r resume.pdf --format markdown -o report.md -y`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if interviewConfig.OutputFormat == "" {
			interviewConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(interviewConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runInterview,
}

var (
	interviewConfig common.CommandConfig
	jobFile         string
	resumeFile      string
	transcriptFile  string
	autoAnalyze     bool
)

func init() {
	interviewCmd.Flags().StringVarP(&jobFile, "job", "j", "", "Job description file (.txt)")
	interviewCmd.Flags().StringVarP(&resumeFile, "resume", "r", "", "Resume file (.pdf)")
	interviewCmd.Flags().StringVarP(&interviewConfig.OutputFile, "output", "o", "", "Analysis output file path (default: stdout)")
	interviewCmd.Flags().StringVar(&interviewConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	interviewCmd.Flags().StringVar(&transcriptFile, "transcript", "", "Also write the interview transcript to this file")
	interviewCmd.Flags().BoolVarP(&autoAnalyze, "yes", "y", false, "Generate the analysis without asking once the interview is over")

	_ = interviewCmd.MarkFlagRequired("job")
	_ = interviewCmd.MarkFlagRequired("resume")

	_ = interviewCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

// answerSource supplies the candidate's answers
type answerSource interface {
	Next() (string, error)
}

type promptAnswers struct {
	prompt promptui.Prompt
}

func newPromptAnswers() *promptAnswers {
	return &promptAnswers{prompt: promptui.Prompt{Label: "You"}}
}

func (p *promptAnswers) Next() (string, error) {
	answer, err := p.prompt.Run()
	if stderrors.Is(err, promptui.ErrInterrupt) || stderrors.Is(err, promptui.ErrEOF) {
		return "", io.EOF
	}
	return answer, err
}

func runInterview(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	// a terminal interview is too short-lived to be scraped
	cfg.Observability.Prometheus.Enabled = false

	fp := common.NewFileProcessor(logger)
	jd, resume, closeDocs, err := fp.OpenDocuments(jobFile, resumeFile)
	if err != nil {
		return err
	}
	defer closeDocs()

	rt, err := common.NewRuntime(cmd.Context(), cfg, Version, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize interviewer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		rt.Close(ctx)
	}()

	sess, err := rt.Sessions.Create()
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Sessions.End(context.Background(), sess.ID()); err != nil {
			logger.Debug("Session already ended", "session_id", sess.ID(), "error", err)
		}
	}()

	if err := sess.IngestDocuments(rt.Ingestor, jd, resume); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Preparing your interview questions...")
	questions, err := sess.Start(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to start the interview: %w", err)
	}
	logger.Info("Interview started", "session_id", sess.ID(), "questions", questions.Len())

	fmt.Fprintln(out, "The interview has started. Introduce yourself to begin, or type /quit to stop.")
	finished, err := conductInterview(cmd.Context(), sess, newPromptAnswers(), out)
	if err != nil && !stderrors.Is(err, errQuit) {
		return err
	}

	output := common.NewOutputHandler(logger)
	if finished {
		confirm := confirmAnalysis
		if autoAnalyze {
			confirm = limitedConfirm(maxAutoAnalysisAttempts)
		}
		report, err := analyzeInterview(cmd.Context(), sess, confirm, out)
		if err != nil {
			return err
		}
		if report != nil {
			if err := output.HandleOutput(*report, interviewConfig); err != nil {
				return err
			}
		}
	}

	if transcriptFile != "" {
		transcriptConfig := common.CommandConfig{OutputFile: transcriptFile, OutputFormat: interviewConfig.OutputFormat}
		if err := output.HandleOutput(sess.Snapshot().Transcript(), transcriptConfig); err != nil {
			return err
		}
	}
	return nil
}

// conductInterview relays answers until the interviewer closes the
// interview, the answers run out or the candidate quits. It reports whether
// the analysis was unlocked.
func conductInterview(ctx context.Context, sess *session.Session, answers answerSource, out io.Writer) (bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		answer, err := answers.Next()
		if stderrors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		answer = strings.TrimSpace(answer)
		if answer == "" {
			continue
		}
		if answer == quitCommand {
			return false, errQuit
		}

		result, err := sess.Send(ctx, answer)
		if err != nil {
			if errors.IsRecoverable(err) {
				fmt.Fprintf(out, "Something went wrong: %v. Please try again.\n", err)
				continue
			}
			return false, err
		}

		fmt.Fprintf(out, "Interviewer: %s\n", result.Reply)
		if result.AnalysisUnlocked {
			return true, nil
		}
	}
}

// analyzeInterview generates the analysis each time confirm agrees. A
// recoverable failure is reported and the choice offered again; declining
// after a failure returns that failure.
func analyzeInterview(ctx context.Context, sess *session.Session, confirm func() bool, out io.Writer) (*types.AnalysisReport, error) {
	var lastErr error
	for confirm() {
		fmt.Fprintln(out, "Generating analysis...")
		report, err := sess.GenerateAnalysis(ctx)
		if err == nil {
			return &report, nil
		}
		lastErr = fmt.Errorf("failed to generate analysis: %w", err)
		if !errors.IsRecoverable(err) || ctx.Err() != nil {
			return nil, lastErr
		}
		fmt.Fprintf(out, "Something went wrong: %v.\n", err)
	}
	return nil, lastErr
}

// limitedConfirm agrees n times without asking
func limitedConfirm(n int) func() bool {
	return func() bool {
		n--
		return n >= 0
	}
}

func confirmAnalysis() bool {
	if fi, err := os.Stdin.Stat(); err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		return false
	}
	prompt := promptui.Select{
		Label: "The interview is over",
		Items: []string{promptGenerateReport, promptExit},
	}
	_, selected, err := prompt.Run()
	return err == nil && selected == promptGenerateReport
}
