package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/itamaramsalem1/hppdauto-web/internal/common"
	"github.com/itamaramsalem1/hppdauto-web/internal/job"
)

// submitJob accepts a multipart form: templates (archive), actuals
// (archive), date (YYYY-MM-DD), job_id. Validation failures come back
// synchronously; on success the job runs off this request path.
func (s *Server) submitJob(c *gin.Context) {
	jobID := strings.TrimSpace(c.PostForm("job_id"))
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id is required"})
		return
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(c.PostForm("date")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	templateName, templateData, err := formFile(c, "templates")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "templates archive is required"})
		return
	}
	actualName, actualData, err := formFile(c, "actuals")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actuals archive is required"})
		return
	}

	err = s.manager.Submit(c.Request.Context(), job.SubmitRequest{
		JobID:        jobID,
		TargetDate:   date.UTC(),
		TemplateName: templateName,
		TemplateData: templateData,
		ActualName:   actualName,
		ActualData:   actualData,
	})
	if err != nil {
		s.logger.Warn("http.submit.rejected", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "status_url": "/api/jobs/" + jobID})
}

func (s *Server) jobStatus(c *gin.Context) {
	progress, err := s.manager.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (s *Server) jobResult(c *gin.Context) {
	path, err := s.manager.Artifact(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

func formFile(c *gin.Context, field string) (string, []byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	f, err := header.Open()
	if err != nil {
		return "", nil, err
	}
	defer func(f multipart.File) { _ = f.Close() }(f)
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, common.ErrInvalidArchive), errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
