package ui

import (
	"bytes"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"biasaudit/app"
	"biasaudit/domain/core"
	"biasaudit/domain/dataset"
	"biasaudit/internal/compliance"
	apperrors "biasaudit/internal/errors"
	"biasaudit/internal/roles"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// complianceForm mirrors compliance.Input with presence checks; zero metrics are legal values
type complianceForm struct {
	DisparateImpact             *float64 `form:"disparate_impact" json:"disparate_impact" binding:"required"`
	DemographicParityDifference *float64 `form:"demographic_parity_difference" json:"demographic_parity_difference" binding:"required"`
	ProtectedAttribute          string   `form:"protected_attribute" json:"protected_attribute" binding:"required"`
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Bias audit backend is running"})
}

func (s *Server) handleNoRoute(c *gin.Context) {
	s.respondError(c, apperrors.NotFound(c.Request.Method+" "+c.Request.URL.Path))
}

func (s *Server) handleAudit(c *gin.Context) {
	req, ok := s.auditRequest(c)
	if !ok {
		return
	}
	report, err := s.service.Audit(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleExplain(c *gin.Context) {
	req, ok := s.auditRequest(c)
	if !ok {
		return
	}
	report, err := s.service.Explain(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleMitigate(c *gin.Context) {
	req, ok := s.auditRequest(c)
	if !ok {
		return
	}
	report, err := s.service.Mitigate(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleCounterfactual(c *gin.Context) {
	ds, _, ok := s.upload(c)
	if !ok {
		return
	}
	row := 0
	if raw := c.PostForm("row_index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(c, apperrors.InvalidInput("row_index must be an integer"))
			return
		}
		row = n
	}

	result, err := s.service.Counterfactual(c.Request.Context(), app.CounterfactualRequest{
		Dataset:  ds,
		Hints:    hintsFrom(c),
		RowIndex: row,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCompliance(c *gin.Context) {
	var form complianceForm
	if err := c.ShouldBind(&form); err != nil {
		s.respondError(c, apperrors.InvalidInput("disparate_impact, demographic_parity_difference and protected_attribute are required"))
		return
	}
	report, err := s.service.Compliance(c.Request.Context(), compliance.Input{
		DisparateImpact:             *form.DisparateImpact,
		DemographicParityDifference: *form.DemographicParityDifference,
		ProtectedAttribute:          form.ProtectedAttribute,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleReport(c *gin.Context) {
	id, err := core.ParseAuditID(c.Param("id"))
	if err != nil {
		s.respondError(c, apperrors.InvalidInput(err.Error()))
		return
	}
	report, err := s.service.Report(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleReports(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.respondError(c, apperrors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}
	reports, err := s.service.Reports(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

func (s *Server) auditRequest(c *gin.Context) (app.AuditRequest, bool) {
	ds, hash, ok := s.upload(c)
	if !ok {
		return app.AuditRequest{}, false
	}
	return app.AuditRequest{Dataset: ds, Hints: hintsFrom(c), DatasetHash: hash}, true
}

// upload reads the multipart "file" field and decodes it by extension
func (s *Server) upload(c *gin.Context) (*dataset.Dataset, core.Hash, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			abortTooLarge(c)
			return nil, "", false
		}
		s.respondError(c, apperrors.InvalidInput("multipart field \"file\" is required"))
		return nil, "", false
	}
	f, err := fh.Open()
	if err != nil {
		s.respondError(c, apperrors.Wrap(err, "failed to open upload"))
		return nil, "", false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.respondError(c, apperrors.Wrap(err, "failed to read upload"))
		return nil, "", false
	}

	ds, err := s.reader.Read(c.Request.Context(), fh.Filename, bytes.NewReader(data))
	if err != nil {
		s.respondError(c, err)
		return nil, "", false
	}
	return ds, core.NewHash(data), true
}

func hintsFrom(c *gin.Context) roles.Hints {
	return roles.Hints{
		Target:    c.PostForm("target_column"),
		Protected: c.PostForm("protected_attribute"),
	}
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return stderrors.As(err, &maxErr)
}

func abortTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
		"error":   apperrors.CodeInvalidInput,
		"message": "upload exceeds the configured size limit",
	})
}

// respondError maps pipeline errors to a status and a client-safe body
func (s *Server) respondError(c *gin.Context, err error) {
	appErr := apperrors.FromDomain(err)
	status := apperrors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":   appErr.Code,
		"message": appErr.PublicMessage(),
	})
}
