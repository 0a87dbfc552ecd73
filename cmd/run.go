package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spigell/recruiter-agency/internal/document"
	"github.com/spigell/recruiter-agency/internal/logger"
	"github.com/spigell/recruiter-agency/internal/profile"
	"github.com/spigell/recruiter-agency/internal/results"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptMatches        = "Show matched jobs"
	PromptRoles          = "Show jobs by recommended role"
	PromptDomains        = "Show jobs by domain"
	PromptScreening      = "Show screening report"
	PromptRecommendation = "Show final recommendation"
	PromptSummary        = "Show profile summary"
	PromptResultsFile    = "Show results file"
	PromptExit           = "Exit"
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a resume through the whole pipeline",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("file", "f", "", "resume file (pdf, docx or txt)")
	runCmd.Flags().StringP("text", "t", "", "resume text, used when no file is given")
	runCmd.Flags().StringP("university-context", "u", "", "free-text university or curriculum context")
	runCmd.Flags().StringP("curriculum-file", "c", "", "curriculum file analyzed first and passed as university context")
	runCmd.Flags().Bool("summary", false, "also write a short professional summary")
	runCmd.Flags().BoolP("yes", "y", false, "do not show the interactive menu after the run")
	runCmd.Flags().StringP("output-format", "o", "", "results format: json or yaml (default from config)")
	runCmd.Flags().String("output-dir", "", "results directory (default from config)")

	viper.BindPFlag("results.format", runCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("results.dir", runCmd.Flags().Lookup("output-dir"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the recruiter", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	format, err := results.ParseFormat(config.Results.Format)
	if err != nil {
		logger.Fatal("parsing results format", zap.Error(err))
	}

	input := profile.ResumeInput{
		FilePath: flagString(cmd, "file"),
		Text:     flagString(cmd, "text"),
	}
	if input.Empty() {
		logger.Fatal("resume is required", zap.String("hint", "use --file or --text"))
	}

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("building services", zap.Error(err))
	}

	universityContext, err := buildUniversityContext(ctx, cmd, svc, logger)
	if err != nil {
		logger.Fatal("preparing university context", zap.Error(err))
	}

	wc, runErr := svc.orchestrator.ProcessApplication(ctx, input, universityContext)
	if runErr != nil {
		logger.Error("pipeline failed",
			zap.String("run_id", wc.ID),
			zap.String("stage", string(wc.CurrentStage)),
			zap.Error(runErr),
		)
	} else {
		logger.Info("pipeline completed",
			zap.String("run_id", wc.ID),
			zap.Int("matches", wc.JobMatches.NumberOfMatches),
		)
	}

	report := results.Report{Run: wc}

	if flagBool(cmd, "summary") && wc.ExtractedData != nil {
		summary, err := svc.enhancer.Summarize(ctx, wc.ExtractedData)
		if err != nil {
			logger.Warn("skipping profile summary", zap.Error(err))
		} else {
			report.Summary = &summary
		}
	}

	path, err := results.Save(config.Results.Dir, format, report)
	if err != nil {
		logger.Fatal("saving results", zap.Error(err))
	}
	logger.Info("results saved", zap.String("filename", path))

	if flagBool(cmd, "yes") {
		if runErr != nil {
			os.Exit(1)
		}
		return
	}

	prompt := promptui.Select{
		Label: "What next?",
		Items: menuItems(report),
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(os.Stdout, action, report, format, path); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// buildUniversityContext joins the free-text context with the analysis of
// an optional curriculum file. A failed analysis only drops the file part.
func buildUniversityContext(ctx context.Context, cmd *cobra.Command, svc *services, logger *zap.Logger) (string, error) {
	parts := []string{flagString(cmd, "university-context")}

	file := flagString(cmd, "curriculum-file")
	if file == "" {
		return strings.TrimSpace(parts[0]), nil
	}

	text, err := document.FileExtractor{}.ExtractFile(ctx, file)
	if err != nil {
		return "", fmt.Errorf("reading curriculum file: %w", err)
	}

	analysis, err := svc.university.Analyze(ctx, text)
	if err != nil {
		logger.Warn("curriculum analysis failed, continuing without it", zap.Error(err))
	} else {
		parts = append(parts, analysis.FormattedOutput)
	}

	return strings.TrimSpace(strings.Join(parts, "\n\n")), nil
}

func menuItems(report results.Report) []string {
	items := []string{PromptMatches, PromptRoles, PromptDomains, PromptScreening, PromptRecommendation}
	if report.Summary != nil {
		items = append(items, PromptSummary)
	}
	return append(items, PromptResultsFile, PromptExit)
}

func handleAction(w io.Writer, action string, report results.Report, format results.Format, path string) error {
	wc := report.Run

	switch action {
	case PromptMatches:
		if wc.JobMatches == nil {
			return printMissing(w, "job matches")
		}
		return results.Encode(w, format, wc.JobMatches.MatchedJobs)
	case PromptRoles:
		if wc.JobMatches == nil {
			return printMissing(w, "job matches")
		}
		return results.Encode(w, format, wc.JobMatches.RecommendedRoles)
	case PromptDomains:
		if wc.JobMatches == nil {
			return printMissing(w, "job matches")
		}
		return results.Encode(w, format, wc.JobMatches.DomainJobs)
	case PromptScreening:
		if wc.ScreeningResults == nil {
			return printMissing(w, "screening results")
		}
		_, err := fmt.Fprintf(w, "Score: %d\n\n%s\n", wc.ScreeningResults.ScreeningScore, wc.ScreeningResults.ScreeningReport)
		return err
	case PromptRecommendation:
		if wc.FinalRecommendation == nil {
			return printMissing(w, "final recommendation")
		}
		_, err := fmt.Fprintf(w, "Confidence: %s\n\n%s\n", wc.FinalRecommendation.ConfidenceLevel, wc.FinalRecommendation.FinalRecommendation)
		return err
	case PromptSummary:
		if report.Summary == nil {
			return printMissing(w, "profile summary")
		}
		_, err := fmt.Fprintln(w, report.Summary.Summary)
		return err
	case PromptResultsFile:
		_, err := fmt.Fprintln(w, path)
		return err
	case PromptExit:
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printMissing(w io.Writer, what string) error {
	_, err := fmt.Fprintf(w, "no %s: the run stopped before this stage\n", what)
	return err
}

func flagString(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

func flagBool(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}
	return value
}
