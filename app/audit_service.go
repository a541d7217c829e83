package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"biasaudit/domain/audit"
	"biasaudit/domain/core"
	"biasaudit/domain/dataset"
	"biasaudit/internal/attribution"
	"biasaudit/internal/compliance"
	"biasaudit/internal/config"
	"biasaudit/internal/counterfactual"
	"biasaudit/internal/fairness"
	"biasaudit/internal/logging"
	"biasaudit/internal/metrics"
	"biasaudit/internal/mitigation"
	"biasaudit/internal/prep"
	"biasaudit/internal/roles"
	"biasaudit/ports"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Operation names used for metrics, logs and the report ledger
const (
	OpAudit          = "audit"
	OpExplain        = "explain"
	OpMitigate       = "mitigate"
	OpCounterfactual = "counterfactual"
	OpCompliance     = "compliance"
)

// AuditService runs the bias-audit pipeline behind the five boundary operations.
// Every call is self-contained; nothing computed for one request is shared.
type AuditService struct {
	cfg         config.AuditConfig
	detector    *roles.Detector
	preparer    *prep.Preparer
	forest      ports.Trainer
	logistic    ports.Trainer
	explainer   ports.Explainer
	analyzer    *counterfactual.Analyzer
	oversampler *mitigation.Oversampler
	reports     ports.ReportRepository
	metrics     *metrics.Recorder
	logger      *zap.Logger
}

// Dependencies are the collaborators of AuditService. Reports and Metrics may be nil.
type Dependencies struct {
	Forest    ports.Trainer
	Logistic  ports.Trainer
	Explainer ports.Explainer
	Reports   ports.ReportRepository
	Metrics   *metrics.Recorder
	Logger    *zap.Logger
}

// AuditRequest is the input of the dataset-driven operations
type AuditRequest struct {
	Dataset     *dataset.Dataset
	Hints       roles.Hints
	DatasetHash core.Hash
}

// CounterfactualRequest selects the row to test
type CounterfactualRequest struct {
	Dataset  *dataset.Dataset
	Hints    roles.Hints
	RowIndex int
}

// NewAuditService creates the service
func NewAuditService(cfg config.AuditConfig, deps Dependencies) *AuditService {
	logger := logging.OrNop(deps.Logger)
	return &AuditService{
		cfg:         cfg,
		detector:    roles.NewDetector(logger),
		preparer:    prep.NewPreparer(logger),
		forest:      deps.Forest,
		logistic:    deps.Logistic,
		explainer:   deps.Explainer,
		analyzer:    counterfactual.NewAnalyzer(logger),
		oversampler: mitigation.NewOversampler(cfg.Seed, logger),
		reports:     deps.Reports,
		metrics:     deps.Metrics,
		logger:      logger.Named("service"),
	}
}

// prepare drops incomplete rows, detects roles and builds the feature matrix
func (s *AuditService) prepare(ds *dataset.Dataset, hints roles.Hints) (*prep.Prepared, error) {
	if ds == nil {
		return nil, core.ErrEmptyDataset
	}
	clean, err := ds.DropIncomplete()
	if err != nil {
		return nil, err
	}
	if dropped := ds.Len() - clean.Len(); dropped > 0 {
		s.logger.Info("dropped incomplete rows", zap.Int("dropped", dropped), zap.Int("remaining", clean.Len()))
	}

	detected, err := s.detector.Detect(clean.Schema(), hints)
	if err != nil {
		return nil, err
	}
	return s.preparer.Prepare(clean, detected)
}

// evaluate splits, trains and scores fairness on the held-out rows
func (s *AuditService) evaluate(ctx context.Context, p *prep.Prepared, trainer ports.Trainer) (*prep.Split, ports.Classifier, []float64, error) {
	split, err := prep.TrainTestSplit(p.X, p.Y, s.cfg.TestRatio, s.cfg.Seed)
	if err != nil {
		return nil, nil, nil, err
	}
	model, err := trainer.Train(ctx, split.XTrain, split.YTrain)
	if err != nil {
		return nil, nil, nil, err
	}
	return split, model, model.Predict(split.XTest), nil
}

func (s *AuditService) fairnessOf(p *prep.Prepared, split *prep.Split, yPred []float64) audit.FairnessMetrics {
	return fairness.Compute(fairness.Input{
		YTrue:     split.YTest,
		YPred:     yPred,
		Protected: prep.Column(split.XTest, p.ProtectedIndex()),
		Label:     p.LabelName,
		Group:     p.GroupName,
	})
}

// attribute explains a seeded subsample of rows and reduces the result to one value
// per feature. Shape anomalies are absorbed by the normalizer and only reported.
func (s *AuditService) attribute(ctx context.Context, model ports.Classifier, X [][]float64, features []string) (attribution.Result, int, error) {
	rows := prep.Subsample(X, s.cfg.MaxExplainRows, s.cfg.Seed)
	raw, err := s.explainer.Explain(ctx, model, rows)
	if err != nil {
		return attribution.Result{}, 0, err
	}

	res := attribution.Normalize(raw, len(features))
	if !res.Ok() {
		s.logger.Warn("attribution shape anomaly",
			zap.String("reason", string(res.Fallback)),
			zap.Int("attribution_len", res.Size),
			zap.Int("features", len(features)))
		s.metrics.AttributionFallback(string(res.Fallback))
	}
	return res, len(rows), nil
}

// Audit trains the forest, then computes fairness metrics and feature importance
// concurrently from the held-out split.
func (s *AuditService) Audit(ctx context.Context, req AuditRequest) (report *audit.AuditReport, err error) {
	started := time.Now()
	id := core.NewAuditID()
	logger := s.logger.With(zap.String("audit_id", id.String()), zap.String("operation", OpAudit))
	defer func() {
		s.metrics.ObserveOperation(OpAudit, started, err)
		s.finish(logger, started, err)
	}()

	p, err := s.prepare(req.Dataset, req.Hints)
	if err != nil {
		return nil, err
	}
	if _, _, err := counterfactual.Domain(p); err != nil {
		return nil, err
	}

	split, model, yPred, err := s.evaluate(ctx, p, s.forest)
	if err != nil {
		return nil, err
	}

	var fm audit.FairnessMetrics
	var attr attribution.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fm = s.fairnessOf(p, split, yPred)
		return nil
	})
	g.Go(func() error {
		res, _, err := s.attribute(gctx, model, split.XTest, p.Features)
		attr = res
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cm, labels := fairness.ConfusionMatrix(split.YTest, yPred)
	confusionLabels := make([]string, len(labels))
	for i, l := range labels {
		confusionLabels[i] = p.LabelName(l)
	}

	report = &audit.AuditReport{
		ID:                  id,
		DatasetHash:         req.DatasetHash,
		CreatedAt:           started.UTC(),
		FairnessScore:       fm.FairnessScore,
		Accuracy:            audit.Round4(fairness.Accuracy(split.YTest, yPred)),
		TopFeatures:         attribution.TopK(p.Features, attr.Values, s.cfg.TopK),
		AttributionFallback: string(attr.Fallback),
		Details: audit.AuditDetails{
			FairnessMetrics: fm,
			ConfusionMatrix: cm,
			ConfusionLabels: confusionLabels,
			TargetColumn:    p.Roles.Target,
			ProtectedColumn: p.Roles.Protected,
			Features:        p.Features,
		},
		RepresentativeProfile: RepresentativeProfile(p.Source, p.Roles, s.cfg.Seed),
	}

	s.store(ctx, logger, OpAudit, id, req.DatasetHash, p.Roles, fm, report)
	return report, nil
}

// Explain reports feature importance of a logistic model without fairness metrics
func (s *AuditService) Explain(ctx context.Context, req AuditRequest) (report *audit.ExplainReport, err error) {
	started := time.Now()
	logger := s.logger.With(zap.String("operation", OpExplain))
	defer func() {
		s.metrics.ObserveOperation(OpExplain, started, err)
		s.finish(logger, started, err)
	}()

	p, err := s.prepare(req.Dataset, req.Hints)
	if err != nil {
		return nil, err
	}
	split, model, _, err := s.evaluate(ctx, p, s.logistic)
	if err != nil {
		return nil, err
	}

	attr, explained, err := s.attribute(ctx, model, split.XTest, p.Features)
	if err != nil {
		return nil, err
	}

	return &audit.ExplainReport{
		TopFeatures: attribution.TopK(p.Features, attr.Values, s.cfg.TopK),
		Message:     "Attribution analysis complete",
		Debug: audit.ExplainDebug{
			FeatureNames:    p.Features,
			FeatureCount:    len(p.Features),
			AttributionSize: len(attr.Values),
			Fallback:        string(attr.Fallback),
			ExplainedRows:   explained,
		},
	}, nil
}

// Mitigate compares fairness before and after oversampling the under-favored group
func (s *AuditService) Mitigate(ctx context.Context, req AuditRequest) (report *audit.MitigationReport, err error) {
	started := time.Now()
	id := core.NewAuditID()
	logger := s.logger.With(zap.String("audit_id", id.String()), zap.String("operation", OpMitigate))
	defer func() {
		s.metrics.ObserveOperation(OpMitigate, started, err)
		s.finish(logger, started, err)
	}()

	p, err := s.prepare(req.Dataset, req.Hints)
	if err != nil {
		return nil, err
	}
	plan, err := s.oversampler.Plan(p)
	if err != nil {
		return nil, err
	}

	split, _, yPred, err := s.evaluate(ctx, p, s.logistic)
	if err != nil {
		return nil, err
	}
	before := s.fairnessOf(p, split, yPred)

	balanced, err := s.preparer.Prepare(plan.Apply(p.Source), p.Roles)
	if err != nil {
		return nil, err
	}
	balancedSplit, _, balancedPred, err := s.evaluate(ctx, balanced, s.logistic)
	if err != nil {
		return nil, err
	}
	after := s.fairnessOf(balanced, balancedSplit, balancedPred)

	report = &audit.MitigationReport{
		OriginalScore:  before.FairnessScore,
		MitigatedScore: after.FairnessScore,
		Improvement:    audit.Round2(after.FairnessScore - before.FairnessScore),
		Details: audit.MitigationDetails{
			OriginalDisparateImpact:    before.DisparateImpact,
			MitigatedDisparateImpact:   after.DisparateImpact,
			OriginalDemographicParity:  before.DemographicParityDifference,
			MitigatedDemographicParity: after.DemographicParityDifference,
			SamplesAdded:               balanced.Rows() - p.Rows(),
			OversampledGroup:           plan.Group,
		},
	}

	s.store(ctx, logger, OpMitigate, id, req.DatasetHash, p.Roles, after, report)
	return report, nil
}

// Counterfactual trains on the full dataset and flips the protected value of one row
func (s *AuditService) Counterfactual(ctx context.Context, req CounterfactualRequest) (result *audit.CounterfactualResult, err error) {
	started := time.Now()
	logger := s.logger.With(zap.String("operation", OpCounterfactual))
	defer func() {
		s.metrics.ObserveOperation(OpCounterfactual, started, err)
		s.finish(logger, started, err)
	}()

	p, err := s.prepare(req.Dataset, req.Hints)
	if err != nil {
		return nil, err
	}
	if _, _, err := counterfactual.Domain(p); err != nil {
		return nil, err
	}
	model, err := s.logistic.Train(ctx, p.X, p.Y)
	if err != nil {
		return nil, err
	}
	return s.analyzer.Analyze(p, model, req.RowIndex)
}

// Compliance evaluates the regulatory rules for a pair of metrics
func (s *AuditService) Compliance(ctx context.Context, in compliance.Input) (audit.ComplianceReport, error) {
	started := time.Now()
	report := compliance.Evaluate(in)
	s.metrics.ObserveOperation(OpCompliance, started, nil)
	s.logger.Info("compliance evaluated",
		zap.String("protected_attribute", in.ProtectedAttribute),
		zap.String("overall", report.Overall.String()),
		zap.String("risk_level", report.RiskLevel))
	return report, nil
}

// Report loads a stored report from the ledger
func (s *AuditService) Report(ctx context.Context, id core.AuditID) (*audit.StoredReport, error) {
	if s.reports == nil {
		return nil, fmt.Errorf("%w: report ledger is not configured", core.ErrReportNotFound)
	}
	return s.reports.Get(ctx, id)
}

// Reports lists the most recent stored reports, newest first
func (s *AuditService) Reports(ctx context.Context, limit int) ([]audit.StoredReport, error) {
	if s.reports == nil {
		return nil, fmt.Errorf("%w: report ledger is not configured", core.ErrReportNotFound)
	}
	return s.reports.List(ctx, limit)
}

// store appends a summary to the ledger. Failures are logged and never fail the request.
func (s *AuditService) store(ctx context.Context, logger *zap.Logger, op string, id core.AuditID, hash core.Hash,
	r audit.ColumnRoles, m audit.FairnessMetrics, payload interface{}) {
	if s.reports == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("failed to encode report", zap.Error(err))
		return
	}
	stored := &audit.StoredReport{
		ID:                 id,
		Operation:          op,
		DatasetHash:        hash.String(),
		TargetColumn:       r.Target,
		ProtectedAttribute: r.Protected,
		FairnessScore:      m.FairnessScore,
		DisparateImpact:    m.DisparateImpact,
		Payload:            body,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.reports.Save(ctx, stored); err != nil {
		logger.Warn("failed to persist report", zap.Error(err))
	}
}

func (s *AuditService) finish(logger *zap.Logger, started time.Time, err error) {
	if err != nil {
		if core.IsClientError(err) {
			logger.Info("operation rejected", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
			return
		}
		logger.Error("operation failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
		return
	}
	logger.Info("operation complete", zap.Duration("elapsed", time.Since(started)))
}
