package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/logger"
	"contract-review-be/internal/repository/memory"
	"contract-review-be/pkg/analysis"
	"contract-review-be/pkg/lock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) analyzed(t *testing.T) (*entity.Contract, *entity.Recommendation) {
	t.Helper()
	c := h.contract(t)
	h.analyzer.set(&analysis.Result{
		Findings: []analysis.Finding{
			finding(entity.RiskCategoryHigh, "The Supplier's liability is unlimited.", "Liability is capped at the fees paid.", "1. Liability"),
		},
	}, nil)
	outcome, err := h.analysis.Analyze(context.Background(), h.owner, c.Id)
	require.NoError(t, err)
	require.Len(t, outcome.Recommendations, 1)
	return c, outcome.Recommendations[0]
}

func TestRecommendation_ApplyTrackedChanges(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c, rec := h.analyzed(t)

	applied, err := h.recs.Apply(ctx, h.owner, rec.Id, entity.ModificationTrackedChanges, "")
	require.NoError(t, err)
	assert.Equal(t, rec.Id, applied.RecommendationId)
	assert.Equal(t, c.Id, applied.ContractId)
	assert.Equal(t, h.owner.Id, applied.AppliedBy)
	assert.Empty(t, applied.HighlightColor)

	detail, err := h.contracts.Get(ctx, h.owner, c.Id)
	require.NoError(t, err)
	id := rec.Id.String()
	assert.Contains(t, detail.Contract.Content, `<del data-recommendation-id="`+id+`">The Supplier's liability is unlimited.</del>`)
	assert.Contains(t, detail.Contract.Content, `<ins data-recommendation-id="`+id+`">Liability is capped at the fees paid.</ins>`)
	assert.Contains(t, detail.Contract.Content, "2. Termination", "the rest of the contract is untouched")
	assert.Equal(t, entity.RecommendationStatusAccepted, detail.Recommendations[0].Status)
	require.Len(t, detail.Applied, 1)

	_, err = h.recs.Apply(ctx, h.owner, rec.Id, entity.ModificationTrackedChanges, "")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.ErrorIs(t, h.recs.Reject(ctx, h.owner, rec.Id), ErrAlreadyProcessed)
}

func TestRecommendation_ApplyDirectHighlight(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c, rec := h.analyzed(t)

	_, err := h.recs.Apply(ctx, h.owner, rec.Id, entity.ModificationDirectHighlight, "yellow")
	assert.ErrorIs(t, err, ErrInvalidModification)
	_, err = h.recs.Apply(ctx, h.owner, rec.Id, entity.ModificationType("rewrite"), "")
	assert.ErrorIs(t, err, ErrInvalidModification)

	applied, err := h.recs.Apply(ctx, h.owner, rec.Id, entity.ModificationDirectHighlight, "#a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, "#A1B2C3", applied.HighlightColor)

	detail, err := h.contracts.Get(ctx, h.owner, c.Id)
	require.NoError(t, err)
	assert.NotContains(t, detail.Contract.Content, "unlimited")
	assert.Contains(t, detail.Contract.Content, `data-color="#A1B2C3"`)
}

func TestRecommendation_ConcurrentApplyWinsOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c, rec := h.analyzed(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.recs.Apply(ctx, h.owner, rec.Id, entity.ModificationTrackedChanges, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrAlreadyProcessed), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	detail, err := h.contracts.Get(ctx, h.owner, c.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(detail.Contract.Content, "<ins "))
	assert.Len(t, detail.Applied, 1)
}

func TestRecommendation_RejectAndProvenance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c, rec := h.analyzed(t)

	require.NoError(t, h.recs.Reject(ctx, h.owner, rec.Id))
	_, err := h.recs.Apply(ctx, h.owner, rec.Id, entity.ModificationTrackedChanges, "")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	assert.ErrorIs(t, h.recs.Reject(ctx, h.owner, uuid.New()), ErrRecommendationNotFound)

	stranger := entity.UserActor(uuid.New(), entity.Origin{})
	h.analyzer.set(&analysis.Result{Findings: []analysis.Finding{
		finding(entity.RiskCategoryLow, "90 days", "30 days", "2. Termination"),
	}}, nil)
	outcome, err := h.analysis.Analyze(ctx, h.owner, c.Id)
	require.NoError(t, err)
	_, err = h.recs.Apply(ctx, stranger, outcome.Recommendations[0].Id, entity.ModificationTrackedChanges, "")
	assert.Error(t, err)

	applied, err := h.recs.Apply(ctx, h.owner, outcome.Recommendations[0].Id, entity.ModificationTrackedChanges, "")
	require.NoError(t, err)

	h.analyzer.set(&analysis.Result{}, nil)
	_, err = h.analysis.Analyze(ctx, h.owner, c.Id)
	require.NoError(t, err)

	detail, err := h.contracts.Get(ctx, h.owner, c.Id)
	require.NoError(t, err)
	assert.Empty(t, detail.Recommendations)
	require.Len(t, detail.Applied, 1, "provenance outlives the recommendation")
	assert.Equal(t, applied.Id, detail.Applied[0].Id)
	assert.Equal(t, "30 days", detail.Applied[0].SuggestedText)
}

func TestRecommendation_ApplyWhileAnalyzing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c, rec := h.analyzed(t)

	h.analyzer.gate = make(chan struct{})
	h.analyzer.started = make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		_, err := h.analysis.Analyze(ctx, h.owner, c.Id)
		done <- err
	}()
	<-h.analyzer.started

	_, err := h.recs.Apply(ctx, h.owner, rec.Id, entity.ModificationTrackedChanges, "")
	assert.ErrorIs(t, err, ErrContractBusy)
	assert.ErrorIs(t, h.recs.Reject(ctx, h.owner, rec.Id), ErrContractBusy)

	close(h.analyzer.gate)
	require.NoError(t, <-done)

	detail, err := h.contracts.Get(ctx, h.owner, c.Id)
	require.NoError(t, err)
	assert.Equal(t, msa, detail.Contract.Content, "a rejected apply leaves content alone")
	assert.Empty(t, detail.Applied)
}

func TestRecommendation_ApplyTimesOutOnBusyContract(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c, rec := h.analyzed(t)

	unlock, err := h.locker.Lock(ctx, lock.EntityKey(c.Id))
	require.NoError(t, err)

	recs := NewRecommendationService(memory.NewRepositoryFactory(h.store), h.locker, h.clock, h.audit, logger.NewNopLogger(), 20*time.Millisecond)
	_, err = recs.Apply(ctx, h.owner, rec.Id, entity.ModificationTrackedChanges, "")
	assert.ErrorIs(t, err, ErrApplyTimeout)
	unlock()

	detail, err := h.contracts.Get(ctx, h.owner, c.Id)
	require.NoError(t, err)
	require.Len(t, detail.Recommendations, 1)
	assert.Equal(t, entity.RecommendationStatusPending, detail.Recommendations[0].Status)
	assert.Empty(t, detail.Applied)

	_, err = recs.Apply(ctx, h.owner, rec.Id, entity.ModificationTrackedChanges, "")
	require.NoError(t, err)
}
