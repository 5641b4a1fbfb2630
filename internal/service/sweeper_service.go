package service

import (
	"context"
	"time"

	"contract-review-be/internal/pkg/logger"
)

type SweepResult struct {
	ExpiredDocuments  int
	RecoveredAnalyses int
}

// ISweeperService runs the time-driven transitions nobody asks for: document
// expiry and recovery of analyses abandoned mid-run.
type ISweeperService interface {
	Run(ctx context.Context)
	SweepOnce(ctx context.Context) SweepResult
}

type sweeperService struct {
	lifecycle ILifecycleService
	analysis  IAnalysisService
	interval  time.Duration
	logger    logger.ILogger
}

func NewSweeperService(lifecycle ILifecycleService, analysis IAnalysisService, interval time.Duration, log logger.ILogger) ISweeperService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &sweeperService{
		lifecycle: lifecycle,
		analysis:  analysis,
		interval:  interval,
		logger:    log,
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *sweeperService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("SWEEPER", "Sweeper stopped", nil)
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *sweeperService) SweepOnce(ctx context.Context) SweepResult {
	var res SweepResult

	expired, err := s.lifecycle.ExpireDue(ctx)
	if err != nil {
		s.logger.Error("SWEEPER", "Document expiry sweep failed", map[string]interface{}{"error": err.Error()})
	}
	res.ExpiredDocuments = expired

	recovered, err := s.analysis.RecoverStale(ctx)
	if err != nil {
		s.logger.Error("SWEEPER", "Stale analysis recovery failed", map[string]interface{}{"error": err.Error()})
	}
	res.RecoveredAnalyses = recovered

	if res.ExpiredDocuments > 0 || res.RecoveredAnalyses > 0 {
		s.logger.Info("SWEEPER", "Sweep finished", map[string]interface{}{
			"expired_documents":  res.ExpiredDocuments,
			"recovered_analyses": res.RecoveredAnalyses,
		})
	}
	return res
}
