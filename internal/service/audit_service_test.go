package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudit_ConcurrentAppendsStayContiguous(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	subject := uuid.New()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.audit.Append(ctx, subject, h.owner, AuditEntry{
				Action:  entity.AuditRecommendationIgnored,
				Details: map[entity.DetailKey]string{entity.DetailRecommendationId: uuid.NewString()},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	events, err := h.audit.Read(ctx, subject)
	require.NoError(t, err)
	require.Len(t, events, writers)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Sequence)
		require.NotNil(t, e.ActorId)
		assert.Equal(t, h.owner.Id, *e.ActorId)
		assert.Equal(t, "203.0.113.7", e.Origin.IPAddress)
	}
}

func TestAudit_RejectsUnknownActionsAndKeys(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	subject := uuid.New()

	_, err := h.audit.Append(ctx, subject, h.owner, AuditEntry{Action: "contract.deleted"})
	assert.ErrorIs(t, err, ErrUnknownAuditAction)

	_, err = h.audit.Append(ctx, subject, h.owner, AuditEntry{
		Action:  entity.AuditDocumentSent,
		Details: map[entity.DetailKey]string{entity.DetailFieldId: "x"},
	})
	assert.ErrorIs(t, err, ErrUnrecognizedDetailKey)

	events, err := h.audit.Read(ctx, subject)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAudit_TimestampsNeverGoBackwards(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	subject := uuid.New()
	entry := AuditEntry{Action: entity.AuditRecommendationIgnored}

	_, err := h.audit.Append(ctx, subject, h.owner, entry)
	require.NoError(t, err)
	h.clock.Advance(-time.Hour)
	_, err = h.audit.Append(ctx, subject, entity.SystemActor(), entry)
	require.NoError(t, err)

	events, err := h.audit.Read(ctx, subject)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.False(t, events[1].Timestamp.Before(events[0].Timestamp))
	assert.Nil(t, events[1].ActorId)
	assert.Equal(t, entity.ActorSystem, events[1].ActorKind)
}

func TestAudit_ReadDetectsForgedEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	subject := uuid.New()

	_, err := h.audit.Append(ctx, subject, h.owner, AuditEntry{Action: entity.AuditRecommendationIgnored})
	require.NoError(t, err)
	events, err := h.audit.Read(ctx, subject)
	require.NoError(t, err)

	repo := memory.NewRepositoryFactory(h.store).NewUnitOfWork(ctx).AuditEventRepository()
	require.NoError(t, repo.Append(ctx, &entity.AuditEvent{
		Id:        uuid.New(),
		SubjectId: subject,
		Sequence:  2,
		Timestamp: events[0].Timestamp,
		Action:    entity.AuditRecommendationIgnored,
		ActorKind: entity.ActorSystem,
		Details:   map[entity.DetailKey]string{},
		PrevHash:  events[0].Hash,
		Hash:      "0000",
	}))

	_, err = h.audit.Read(ctx, subject)
	assert.ErrorIs(t, err, ErrAuditIntegrity)
}
