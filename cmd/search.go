package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/recruiter-agency/internal/adzuna"
	"github.com/spigell/recruiter-agency/internal/logger"
	"github.com/spigell/recruiter-agency/internal/results"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var searchCmd = &cobra.Command{
	Use:   "search [keywords...]",
	Short: "Search jobs on Adzuna by keywords and location",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		search(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("where", "w", "", "location (default from config)")
	searchCmd.Flags().IntP("results", "n", 10, "number of results, up to 50")
	searchCmd.Flags().IntP("page", "p", 1, "results page")
	searchCmd.Flags().StringSliceP("exclude", "x", nil, "skip jobs mentioning these words")
	searchCmd.Flags().StringP("output-format", "o", "yaml", "output format: json or yaml")
}

func search(cmd *cobra.Command, keywords []string) {
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

	format, err := results.ParseFormat(flagString(cmd, "output-format"))
	if err != nil {
		logger.Fatal("parsing output format", zap.Error(err))
	}

	jobs, err := newJobSearch(config.Adzuna, logger)
	if err != nil {
		logger.Fatal("building job search client", zap.Error(err))
	}

	pageSize, _ := cmd.Flags().GetInt("results")
	page, _ := cmd.Flags().GetInt("page")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")

	postings, err := jobs.Search(ctx, adzuna.SearchParams{
		Keywords: keywords,
		Location: flagString(cmd, "where"),
		PageSize: pageSize,
		Page:     page,
		Exclude:  exclude,
	})
	if err != nil {
		logger.Fatal("searching jobs", zap.Error(err))
	}

	logger.Info("getting jobs", zap.Int("count", len(postings)))

	if err := results.Encode(os.Stdout, format, postings); err != nil {
		logger.Fatal("printing jobs", zap.Error(err))
	}
}
