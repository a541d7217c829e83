package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"biasaudit/adapters/excel"
	"biasaudit/app"
	"biasaudit/domain/audit"
	"biasaudit/domain/core"
	"biasaudit/internal/compliance"
	"biasaudit/internal/config"
	"biasaudit/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Audit(ctx context.Context, req app.AuditRequest) (*audit.AuditReport, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*audit.AuditReport)
	return r, args.Error(1)
}

func (m *mockRunner) Explain(ctx context.Context, req app.AuditRequest) (*audit.ExplainReport, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*audit.ExplainReport)
	return r, args.Error(1)
}

func (m *mockRunner) Mitigate(ctx context.Context, req app.AuditRequest) (*audit.MitigationReport, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*audit.MitigationReport)
	return r, args.Error(1)
}

func (m *mockRunner) Counterfactual(ctx context.Context, req app.CounterfactualRequest) (*audit.CounterfactualResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*audit.CounterfactualResult)
	return r, args.Error(1)
}

func (m *mockRunner) Compliance(ctx context.Context, in compliance.Input) (audit.ComplianceReport, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(audit.ComplianceReport), args.Error(1)
}

func (m *mockRunner) Report(ctx context.Context, id core.AuditID) (*audit.StoredReport, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*audit.StoredReport)
	return r, args.Error(1)
}

func (m *mockRunner) Reports(ctx context.Context, limit int) ([]audit.StoredReport, error) {
	args := m.Called(ctx, limit)
	r, _ := args.Get(0).([]audit.StoredReport)
	return r, args.Error(1)
}

const sampleCSV = "Name,Gender,Income,Loan_Approved\nA,Female,100,1\nB,Male,200,0\nC,Female,300,1\n"

func newTestServer(t *testing.T, runner AuditRunner) http.Handler {
	t.Helper()
	cfg := config.Default().Server
	cfg.GinMode = "test"
	cfg.MaxUploadMB = 1
	return NewServer(cfg, runner, excel.NewDataReader(nil), nil).Handler()
}

func multipartRequest(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, &mockRunner{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["message"], "running")
}

func TestProcessCSV_PassesDatasetAndHints(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Audit", mock.Anything, mock.MatchedBy(func(req app.AuditRequest) bool {
		return req.Dataset.Len() == 3 &&
			req.Hints.Target == "Loan_Approved" &&
			req.Hints.Protected == "Gender" &&
			req.DatasetHash == core.NewHash([]byte(sampleCSV))
	})).Return(&audit.AuditReport{FairnessScore: 60, Accuracy: 0.9}, nil)

	rec := httptest.NewRecorder()
	newTestServer(t, runner).ServeHTTP(rec, multipartRequest(t, "/process_csv", "loans.csv", sampleCSV, map[string]string{
		"target_column":       "Loan_Approved",
		"protected_attribute": "Gender",
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 60.0, decodeBody(t, rec)["fairness_score"])
	runner.AssertExpectations(t)
}

func TestProcessCSV_MissingFile(t *testing.T) {
	runner := &mockRunner{}
	rec := httptest.NewRecorder()
	newTestServer(t, runner).ServeHTTP(rec, multipartRequest(t, "/process_csv", "", "", map[string]string{"target_column": "x"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeBody(t, rec)["error"])
	runner.AssertNotCalled(t, "Audit", mock.Anything, mock.Anything)
}

func TestProcessCSV_UnsupportedExtension(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, &mockRunner{}).ServeHTTP(rec, multipartRequest(t, "/process_csv", "loans.parquet", "x", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessCSV_ClientErrorKeepsMessage(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Audit", mock.Anything, mock.Anything).
		Return(nil, core.NewRoleDetectionError("target", "pass target_column explicitly"))

	rec := httptest.NewRecorder()
	newTestServer(t, runner).ServeHTTP(rec, multipartRequest(t, "/process_csv", "loans.csv", sampleCSV, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ROLE_DETECTION_FAILED", body["error"])
	assert.Contains(t, body["message"], "target_column")
}

func TestExplain_ComputationFailureIsOpaque(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Explain", mock.Anything, mock.Anything).
		Return(nil, core.NewComputationError("explain", assert.AnError))

	rec := httptest.NewRecorder()
	newTestServer(t, runner).ServeHTTP(rec, multipartRequest(t, "/explain", "loans.csv", sampleCSV, nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "COMPUTATION_FAILURE", body["error"])
	assert.NotContains(t, body["message"], assert.AnError.Error())
}

func TestMitigate(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Mitigate", mock.Anything, mock.Anything).
		Return(&audit.MitigationReport{OriginalScore: 50, MitigatedScore: 80, Improvement: 30}, nil)

	rec := httptest.NewRecorder()
	newTestServer(t, runner).ServeHTTP(rec, multipartRequest(t, "/mitigate", "loans.csv", sampleCSV, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30.0, decodeBody(t, rec)["improvement"])
}

func TestCounterfactual_ParsesRowIndex(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Counterfactual", mock.Anything, mock.MatchedBy(func(req app.CounterfactualRequest) bool {
		return req.RowIndex == 2 && req.Hints.Protected == "Gender"
	})).Return(&audit.CounterfactualResult{BiasConfirmed: false}, nil)

	rec := httptest.NewRecorder()
	newTestServer(t, runner).ServeHTTP(rec, multipartRequest(t, "/counterfactual_check", "loans.csv", sampleCSV, map[string]string{
		"row_index":           "2",
		"protected_attribute": "Gender",
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	runner.AssertExpectations(t)
}

func TestCounterfactual_BadRowIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, &mockRunner{}).ServeHTTP(rec, multipartRequest(t, "/counterfactual_check", "loans.csv", sampleCSV, map[string]string{
		"row_index": "first",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompliance_FormBinding(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Compliance", mock.Anything, compliance.Input{
		DisparateImpact:             0,
		DemographicParityDifference: 0.2,
		ProtectedAttribute:          "Gender",
	}).Return(audit.ComplianceReport{Overall: audit.SeverityNonCompliant, RiskLevel: "HIGH"}, nil)

	form := url.Values{
		"disparate_impact":              {"0"},
		"demographic_parity_difference": {"0.2"},
		"protected_attribute":           {"Gender"},
	}
	req := httptest.NewRequest(http.MethodPost, "/check_rbi_compliance", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	newTestServer(t, runner).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "NON_COMPLIANT", body["overall_status"])
	assert.Equal(t, "HIGH", body["risk_level"])
}

func TestCompliance_MissingField(t *testing.T) {
	form := url.Values{"disparate_impact": {"0.9"}}
	req := httptest.NewRequest(http.MethodPost, "/check_rbi_compliance", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	newTestServer(t, &mockRunner{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReport(t *testing.T) {
	id := core.NewAuditID()
	runner := &mockRunner{}
	runner.On("Report", mock.Anything, id).Return(&audit.StoredReport{ID: id, Operation: app.OpAudit}, nil)

	rec := httptest.NewRecorder()
	newTestServer(t, runner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/"+id.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id.String(), decodeBody(t, rec)["id"])
}

func TestUnknownRoute_ReturnsErrorBody(t *testing.T) {
	h := newTestServer(t, &mockRunner{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "NOT_FOUND", body["error"])
	assert.Equal(t, "GET /nope not found", body["message"])
}

func TestReport_NotFoundAndBadID(t *testing.T) {
	id := core.NewAuditID()
	runner := &mockRunner{}
	runner.On("Report", mock.Anything, id).Return(nil, core.ErrReportNotFound)
	h := newTestServer(t, runner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/"+id.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReports_List(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Reports", mock.Anything, 5).Return([]audit.StoredReport{{ID: core.NewAuditID()}, {ID: core.NewAuditID()}}, nil)
	h := newTestServer(t, runner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, decodeBody(t, rec)["count"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/process_csv", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	rec := httptest.NewRecorder()
	newTestServer(t, &mockRunner{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUploadLimit(t *testing.T) {
	big := "Gender,Loan_Approved\n" + strings.Repeat("Female,1\n", (1<<20)/9+10)
	rec := httptest.NewRecorder()
	newTestServer(t, &mockRunner{}).ServeHTTP(rec, multipartRequest(t, "/process_csv", "big.csv", big, nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAdminRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg).ObserveOperation(app.OpAudit, time.Now(), nil)
	h := NewAdminRouter(reg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "biasaudit_operations_total")
}
