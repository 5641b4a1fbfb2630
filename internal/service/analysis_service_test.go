package service

import (
	"context"
	"testing"
	"time"

	"contract-review-be/internal/dto"
	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/apperror"
	"contract-review-be/internal/pkg/logger"
	"contract-review-be/internal/repository/memory"
	"contract-review-be/pkg/analysis"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const msa = `1. Liability
The Supplier's liability is unlimited.

2. Termination
Either party may terminate with 90 days notice.
`

func finding(category entity.RiskCategory, original, suggested, section string) analysis.Finding {
	return analysis.Finding{
		Category:       category,
		Description:    "risk in " + section,
		Recommendation: "change " + section,
		OriginalText:   original,
		Location:       entity.Location{Section: section, Page: 1},
		Suggestions:    []analysis.Suggestion{{SuggestedText: suggested, SectionRef: section}},
	}
}

func (h *harness) contract(t *testing.T) *entity.Contract {
	t.Helper()
	c, err := h.contracts.Create(context.Background(), h.owner, &dto.CreateContractRequest{
		Title:    "MSA",
		Content:  msa,
		Language: "en",
	})
	require.NoError(t, err)
	return c
}

func TestAnalysis_RerunReplacesAssessments(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.contract(t)

	h.analyzer.set(&analysis.Result{
		Summary: "first",
		Findings: []analysis.Finding{
			finding(entity.RiskCategoryHigh, "The Supplier's liability is unlimited.", "Liability is capped.", "1. Liability"),
			finding(entity.RiskCategoryLow, "90 days", "30 days", "2. Termination"),
		},
	}, nil)
	first, err := h.analysis.Analyze(ctx, h.owner, c.Id)
	require.NoError(t, err)
	require.Len(t, first.RiskAssessments, 2)

	h.analyzer.set(&analysis.Result{
		Summary:  "second",
		Findings: []analysis.Finding{finding(entity.RiskCategoryMedium, "90 days", "60 days", "2. Termination")},
	}, nil)
	_, err = h.analysis.Analyze(ctx, h.owner, c.Id)
	require.NoError(t, err)

	detail, err := h.contracts.Get(ctx, h.owner, c.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.AnalysisStatusCompleted, detail.Contract.AnalysisStatus)
	assert.Equal(t, "second", detail.Contract.Summary)
	require.Len(t, detail.RiskAssessments, 1)
	assert.Equal(t, *detail.Contract.AnalysisRunId, detail.RiskAssessments[0].RunId)
	for _, old := range first.RiskAssessments {
		assert.NotEqual(t, old.Id, detail.RiskAssessments[0].Id)
	}
	require.Len(t, detail.Recommendations, 1)
	assert.Equal(t, detail.RiskAssessments[0].Id, detail.Recommendations[0].RiskAssessmentId)
}

func TestAnalysis_FailureClassification(t *testing.T) {
	ctx := context.Background()

	t.Run("transient failure is retryable", func(t *testing.T) {
		h := newHarness(t)
		c := h.contract(t)
		h.analyzer.set(nil, analysis.ErrUnavailable)

		_, err := h.analysis.Analyze(ctx, h.owner, c.Id)
		assert.ErrorIs(t, err, ErrAnalysisUnavailable)
		assert.Equal(t, apperror.KindCollaborator, apperror.KindOf(err))

		detail, err := h.contracts.Get(ctx, h.owner, c.Id)
		require.NoError(t, err)
		assert.Equal(t, entity.AnalysisStatusError, detail.Contract.AnalysisStatus)
		assert.True(t, detail.Contract.AnalysisRetryable)
		assert.Equal(t, msa, detail.Contract.Content, "failure leaves content untouched")

		h.analyzer.set(&analysis.Result{Summary: "ok"}, nil)
		_, err = h.analysis.Analyze(ctx, h.owner, c.Id)
		require.NoError(t, err)
	})

	t.Run("invalid input is not retryable until content changes", func(t *testing.T) {
		h := newHarness(t)
		c := h.contract(t)
		h.analyzer.set(nil, analysis.ErrInvalidInput)

		_, err := h.analysis.Analyze(ctx, h.owner, c.Id)
		assert.ErrorIs(t, err, ErrAnalysisInvalidInput)

		_, err = h.analysis.Analyze(ctx, h.owner, c.Id)
		assert.ErrorIs(t, err, ErrAnalysisNotRetryable)

		_, err = h.contracts.UpdateContent(ctx, h.owner, c.Id, &dto.UpdateContractContentRequest{Content: msa + "\n3. Governing law\nEngland.\n"})
		require.NoError(t, err)
		h.analyzer.set(&analysis.Result{Summary: "ok"}, nil)
		_, err = h.analysis.Analyze(ctx, h.owner, c.Id)
		require.NoError(t, err)
	})
}

func TestAnalysis_SingleRunAtATime(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.contract(t)

	h.analyzer.gate = make(chan struct{})
	h.analyzer.started = make(chan struct{}, 1)
	h.analyzer.set(&analysis.Result{Summary: "done"}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := h.analysis.Analyze(ctx, h.owner, c.Id)
		done <- err
	}()
	<-h.analyzer.started

	_, err := h.analysis.Analyze(ctx, h.owner, c.Id)
	assert.ErrorIs(t, err, ErrAnalysisInProgress)
	_, err = h.contracts.UpdateContent(ctx, h.owner, c.Id, &dto.UpdateContractContentRequest{Content: "new"})
	assert.ErrorIs(t, err, ErrContractBusy)

	close(h.analyzer.gate)
	require.NoError(t, <-done)

	trail, err := h.contracts.AuditTrail(ctx, h.owner, c.Id)
	require.NoError(t, err)
	assert.Equal(t, []entity.AuditAction{
		entity.AuditContractCreated,
		entity.AuditContractAnalysisStarted,
		entity.AuditContractAnalysisCompleted,
	}, actions(trail))
}

func TestAnalysis_RecoverStaleRun(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.contract(t)

	h.analyzer.gate = make(chan struct{})
	h.analyzer.started = make(chan struct{}, 1)
	h.analyzer.set(&analysis.Result{Summary: "late"}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := h.analysis.Analyze(ctx, h.owner, c.Id)
		done <- err
	}()
	<-h.analyzer.started

	n, err := h.analysis.RecoverStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a fresh run is not stale")

	h.clock.Advance(11 * time.Minute)
	n, err = h.analysis.RecoverStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	close(h.analyzer.gate)
	assert.ErrorIs(t, <-done, ErrAnalysisSuperseded, "the abandoned run cannot overwrite the recovered state")

	detail, err := h.contracts.Get(ctx, h.owner, c.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.AnalysisStatusError, detail.Contract.AnalysisStatus)
	assert.True(t, detail.Contract.AnalysisRetryable)
}

func TestAnalysis_InterruptedRunSettles(t *testing.T) {
	assertSettled := func(t *testing.T, h *harness, id uuid.UUID) {
		t.Helper()
		detail, err := h.contracts.Get(context.Background(), h.owner, id)
		require.NoError(t, err)
		assert.Equal(t, entity.AnalysisStatusError, detail.Contract.AnalysisStatus)
		assert.True(t, detail.Contract.AnalysisRetryable)
		assert.Equal(t, msa, detail.Contract.Content)

		trail, err := h.contracts.AuditTrail(context.Background(), h.owner, id)
		require.NoError(t, err)
		assert.Equal(t, []entity.AuditAction{
			entity.AuditContractCreated,
			entity.AuditContractAnalysisStarted,
			entity.AuditContractAnalysisFailed,
		}, actions(trail))
	}

	t.Run("caller cancels", func(t *testing.T) {
		h := newHarness(t)
		c := h.contract(t)
		h.analyzer.gate = make(chan struct{})
		h.analyzer.started = make(chan struct{}, 1)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			_, err := h.analysis.Analyze(ctx, h.owner, c.Id)
			done <- err
		}()
		<-h.analyzer.started
		cancel()

		err := <-done
		assert.ErrorIs(t, err, ErrAnalysisUnavailable)
		assertSettled(t, h, c.Id)
	})

	t.Run("analyzer exceeds the timeout", func(t *testing.T) {
		h := newHarness(t)
		c := h.contract(t)
		h.analyzer.gate = make(chan struct{})

		impatient := NewAnalysisService(memory.NewRepositoryFactory(h.store), h.locker, h.clock, h.audit, h.analyzer, logger.NewNopLogger(), AnalysisOptions{
			Timeout: 20 * time.Millisecond,
		})
		_, err := impatient.Analyze(context.Background(), h.owner, c.Id)
		assert.ErrorIs(t, err, ErrAnalysisUnavailable)
		assertSettled(t, h, c.Id)

		close(h.analyzer.gate)
		_, err = h.analysis.Analyze(context.Background(), h.owner, c.Id)
		require.NoError(t, err, "a timed out run can be retried")
	})
}
