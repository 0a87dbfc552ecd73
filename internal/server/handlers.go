package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/recruiter-agency/internal/adzuna"
	"github.com/spigell/recruiter-agency/internal/agents"
	"github.com/spigell/recruiter-agency/internal/ai"
	"github.com/spigell/recruiter-agency/internal/document"
	"github.com/spigell/recruiter-agency/internal/profile"
	"github.com/spigell/recruiter-agency/internal/workflow"
)

const (
	defaultJobsPageSize = 10
	maxJobsPageSize     = 50
	maxFormMemory       = 8 << 20
)

type handler struct {
	deps   Deps
	logger *zap.Logger
}

// processApplication accepts a multipart "resume" file or a "text" field
// and an optional "university_context" field.
func (h *handler) processApplication(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	if err := parseForm(c); err != nil {
		respondFormError(c, err)
		return
	}

	input := profile.ResumeInput{Text: strings.TrimSpace(c.PostForm("text"))}
	universityContext := strings.TrimSpace(c.PostForm("university_context"))

	fileHeader, err := c.FormFile("resume")
	switch {
	case err == nil:
		path, err := h.storeUpload(fileHeader)
		if err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", "unable to read resume file", nil)
			return
		}
		defer os.Remove(path)
		input = profile.ResumeInput{FilePath: path}
	case !noFile(err):
		respondFormError(c, err)
		return
	}

	if input.Empty() {
		respondError(c, http.StatusBadRequest, "validation_error", "resume file or text is required", nil)
		return
	}

	run, err := h.deps.Pipeline.ProcessApplication(c.Request.Context(), input, universityContext)
	if err != nil {
		h.logger.Warn("application processing failed", zap.Error(err))
		respondError(c, http.StatusBadGateway, "pipeline_failed", err.Error(), run)
		return
	}

	c.JSON(http.StatusOK, run)
}

// storeUpload copies the upload to disk keeping its extension, so the
// document type can be detected from the name.
func (h *handler) storeUpload(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp(h.deps.UploadDir, "resume_*"+strings.ToLower(filepath.Ext(fileHeader.Filename)))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}

	return dst.Name(), nil
}

type curriculumRequest struct {
	Curriculum string `json:"curriculum" form:"curriculum"`
}

// analyzeCurriculum accepts JSON {"curriculum": "..."}, a form field or a
// multipart "file" (text or pdf).
func (h *handler) analyzeCurriculum(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	if err := parseForm(c); err != nil {
		respondFormError(c, err)
		return
	}

	var curriculum string
	if fileHeader, err := c.FormFile("file"); err == nil {
		text, err := readUpload(c, fileHeader)
		if err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		curriculum = text
	} else if !noFile(err) {
		respondFormError(c, err)
		return
	} else {
		var req curriculumRequest
		if err := c.ShouldBind(&req); err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
		curriculum = req.Curriculum
	}

	analysis, err := h.deps.Curriculum.Analyze(c.Request.Context(), curriculum)
	if err != nil {
		switch {
		case errors.Is(err, agents.ErrEmptyCurriculum):
			respondError(c, http.StatusBadRequest, "validation_error", "curriculum is required", nil)
		case ai.IsGenerationError(err):
			h.logger.Warn("curriculum analysis failed", zap.Error(err))
			respondError(c, http.StatusBadGateway, "generation_failed", err.Error(), nil)
		default:
			h.logger.Error("curriculum analysis failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "internal_error", "curriculum analysis failed", nil)
		}
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// parseForm reads the whole form up front so an oversized body is reported
// as such and not as a missing field.
func parseForm(c *gin.Context) error {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return c.Request.ParseMultipartForm(maxFormMemory)
	}
	return c.Request.ParseForm()
}

func noFile(err error) bool {
	return errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart)
}

func respondFormError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, http.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), nil)
		return
	}
	respondError(c, http.StatusBadRequest, "validation_error", "invalid form data", nil)
}

func readUpload(c *gin.Context, fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", errors.New("unable to read file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", errors.New("unable to read file")
	}

	return document.ExtractBytes(c.Request.Context(), data, fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
}

// searchJobs runs a manual search: ?what=go,sql&where=Pune&results=10&page=1.
func (h *handler) searchJobs(c *gin.Context) {
	var keywords []string
	for _, value := range c.QueryArray("what") {
		for _, kw := range strings.Split(value, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
	}
	if len(keywords) == 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "what is required", nil)
		return
	}

	pageSize, err := intQuery(c, "results", defaultJobsPageSize)
	if err != nil || pageSize < 1 || pageSize > maxJobsPageSize {
		respondError(c, http.StatusBadRequest, "validation_error", "results must be between 1 and 50", nil)
		return
	}
	page, err := intQuery(c, "page", 1)
	if err != nil || page < 1 {
		respondError(c, http.StatusBadRequest, "validation_error", "page must be positive", nil)
		return
	}

	postings, err := h.deps.Jobs.Search(c.Request.Context(), adzuna.SearchParams{
		Keywords: keywords,
		Location: c.Query("where"),
		PageSize: pageSize,
		Page:     page,
	})
	if err != nil {
		var searchErr *adzuna.SearchError
		if errors.As(err, &searchErr) {
			respondError(c, http.StatusBadGateway, "search_failed", searchErr.Error(), nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "internal_error", "job search failed", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(postings), "results": postings})
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

var _ Pipeline = (*workflow.Orchestrator)(nil)
