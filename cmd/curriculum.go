package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/recruiter-agency/internal/document"
	"github.com/spigell/recruiter-agency/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var curriculumCmd = &cobra.Command{
	Use:   "curriculum",
	Short: "Analyze university curriculum content",
	Run: func(cmd *cobra.Command, _ []string) {
		curriculum(cmd)
	},
}

func init() {
	rootCmd.AddCommand(curriculumCmd)

	curriculumCmd.Flags().StringP("file", "f", "", "curriculum file (pdf, docx or txt)")
	curriculumCmd.Flags().StringP("text", "t", "", "curriculum text, used when no file is given")
}

func curriculum(cmd *cobra.Command) {
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

	text := flagString(cmd, "text")
	if file := flagString(cmd, "file"); file != "" {
		text, err = document.FileExtractor{}.ExtractFile(ctx, file)
		if err != nil {
			logger.Fatal("reading curriculum file", zap.String("file", file), zap.Error(err))
		}
	}

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("building services", zap.Error(err))
	}

	analysis, err := svc.university.Analyze(ctx, text)
	if err != nil {
		logger.Fatal("analyzing curriculum", zap.Error(err), zap.String("hint", "use --file or --text"))
	}

	fmt.Println(analysis.FormattedOutput)
}
