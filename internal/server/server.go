// Package server is the thin HTTP layer over the job manager: submit a
// comparison, poll its progress, download the workbook.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/itamaramsalem1/hppdauto-web/internal/job"
)

type Server struct {
	manager        *job.Manager
	logger         *zap.Logger
	maxUploadBytes int64
}

func New(manager *job.Manager, logger *zap.Logger, maxUploadBytes int64) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 64 << 20
	}
	return &Server{manager: manager, logger: logger, maxUploadBytes: maxUploadBytes}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = s.maxUploadBytes

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/jobs", s.submitJob)
		api.GET("/jobs/:id", s.jobStatus)
		api.GET("/jobs/:id/result", s.jobResult)
	}
	return r
}
