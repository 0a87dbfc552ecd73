package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/recruiter-agency/internal/logger"
	"github.com/spigell/recruiter-agency/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("port", "p", "", "listen port (default from config)")
	serveCmd.Flags().String("upload-dir", "", "directory for uploaded resumes (default is the system temp dir)")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.upload-dir", serveCmd.Flags().Lookup("upload-dir"))
}

func serve() {
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

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("building services", zap.Error(err))
	}

	router := server.NewRouter(server.Deps{
		Pipeline:   svc.orchestrator,
		Curriculum: svc.university,
		Jobs:       svc.jobs,
		Logger:     logger,
		UploadDir:  config.Server.UploadDir,
	})

	logger.Info("starting the recruiter api", zap.String("version", version))

	if err := server.Serve(ctx, server.Addr(config.Server.Port), router, logger); err != nil {
		logger.Fatal("serving http", zap.Error(err))
	}
}
