// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/recruiter-agency/internal/adzuna"
	"github.com/spigell/recruiter-agency/internal/logger"
	"github.com/spigell/recruiter-agency/internal/profile"
	"github.com/spigell/recruiter-agency/internal/workflow"
)

const (
	maxUploadSize     = 10 << 20 // 10MB
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

type Pipeline interface {
	ProcessApplication(ctx context.Context, input profile.ResumeInput, universityContext string) (*workflow.Context, error)
}

type CurriculumAnalyzer interface {
	Analyze(ctx context.Context, curriculum string) (profile.CurriculumAnalysis, error)
}

type JobSearcher interface {
	Search(ctx context.Context, params adzuna.SearchParams) ([]adzuna.Posting, error)
}

// Deps are the services behind the HTTP handlers.
type Deps struct {
	Pipeline   Pipeline
	Curriculum CurriculumAnalyzer
	Jobs       JobSearcher
	Logger     *zap.Logger
	// UploadDir holds uploaded resumes while they are processed. Empty means
	// the system temporary directory.
	UploadDir string
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	log := logger.OrNop(deps.Logger)
	r.Use(
		requestID(),
		logging(log),
		recovery(log),
	)

	h := &handler{deps: deps, logger: log}

	api := r.Group("/v1")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	api.POST("/applications", h.processApplication)
	api.POST("/curriculum", h.analyzeCurriculum)
	api.GET("/jobs", h.searchJobs)

	return r
}

// Serve runs the HTTP server until ctx is done.
func Serve(ctx context.Context, addr string, router http.Handler, log *zap.Logger) error {
	log = logger.OrNop(log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
