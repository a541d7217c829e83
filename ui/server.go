package ui

import (
	"context"
	"net/http"
	"time"

	"biasaudit/app"
	"biasaudit/domain/audit"
	"biasaudit/domain/core"
	"biasaudit/internal/compliance"
	"biasaudit/internal/config"
	"biasaudit/internal/logging"
	"biasaudit/ports"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuditRunner is the slice of the audit service the HTTP layer calls
type AuditRunner interface {
	Audit(ctx context.Context, req app.AuditRequest) (*audit.AuditReport, error)
	Explain(ctx context.Context, req app.AuditRequest) (*audit.ExplainReport, error)
	Mitigate(ctx context.Context, req app.AuditRequest) (*audit.MitigationReport, error)
	Counterfactual(ctx context.Context, req app.CounterfactualRequest) (*audit.CounterfactualResult, error)
	Compliance(ctx context.Context, in compliance.Input) (audit.ComplianceReport, error)
	Report(ctx context.Context, id core.AuditID) (*audit.StoredReport, error)
	Reports(ctx context.Context, limit int) ([]audit.StoredReport, error)
}

var _ AuditRunner = (*app.AuditService)(nil)

// Server represents the audit HTTP API
type Server struct {
	router  *gin.Engine
	service AuditRunner
	reader  ports.DatasetReader
	cfg     config.ServerConfig
	logger  *zap.Logger
	httpSrv *http.Server
}

// NewServer creates the API server and registers its routes
func NewServer(cfg config.ServerConfig, service AuditRunner, reader ports.DatasetReader, logger *zap.Logger) *Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	s := &Server{
		router:  gin.New(),
		service: service,
		reader:  reader,
		cfg:     cfg,
		logger:  logging.OrNop(logger).Named("http"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.httpSrv = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// setupRoutes registers all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)

	s.router.POST("/process_csv", s.handleAudit)
	s.router.POST("/explain", s.handleExplain)
	s.router.POST("/mitigate", s.handleMitigate)
	s.router.POST("/counterfactual_check", s.handleCounterfactual)
	s.router.POST("/check_rbi_compliance", s.handleCompliance)

	s.router.GET("/reports", s.handleReports)
	s.router.GET("/reports/:id", s.handleReport)

	s.router.NoRoute(s.handleNoRoute)
}

// Handler exposes the router for tests and custom listeners
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("api listening", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
