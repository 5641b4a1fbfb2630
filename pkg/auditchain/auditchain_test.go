package auditchain

import (
	"testing"
	"time"

	"contract-review-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildChain(t *testing.T, n int) []entity.AuditEvent {
	t.Helper()
	subject := uuid.New()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var events []entity.AuditEvent
	for i := 0; i < n; i++ {
		e := entity.AuditEvent{
			Id:        uuid.New(),
			SubjectId: subject,
			Sequence:  int64(i + 1),
			Timestamp: start.Add(time.Duration(i) * time.Second),
			Action:    entity.AuditRecipientViewed,
			ActorKind: entity.ActorRecipient,
			Details:   map[entity.DetailKey]string{entity.DetailRecipientId: uuid.NewString()},
		}
		var prev *entity.AuditEvent
		if i > 0 {
			prev = &events[i-1]
		}
		require.NoError(t, Seal(&e, prev))
		events = append(events, e)
	}
	return events
}

func TestVerify_ValidChain(t *testing.T) {
	assert.NoError(t, Verify(buildChain(t, 5)))
	assert.NoError(t, Verify(nil))
}

func TestVerify_DetectsTampering(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func([]entity.AuditEvent) []entity.AuditEvent
		wantErr error
	}{
		{
			name: "edited details",
			mutate: func(ev []entity.AuditEvent) []entity.AuditEvent {
				ev[2].Details = map[entity.DetailKey]string{entity.DetailRecipientId: "someone-else"}
				return ev
			},
			wantErr: ErrHashMismatch,
		},
		{
			name: "removed event",
			mutate: func(ev []entity.AuditEvent) []entity.AuditEvent {
				return append(ev[:1], ev[2:]...)
			},
			wantErr: ErrSequenceGap,
		},
		{
			name: "reordered events",
			mutate: func(ev []entity.AuditEvent) []entity.AuditEvent {
				ev[1].Sequence, ev[2].Sequence = ev[2].Sequence, ev[1].Sequence
				ev[1], ev[2] = ev[2], ev[1]
				return ev
			},
			wantErr: ErrChainBroken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.mutate(buildChain(t, 4)))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHash_StableAcrossTimezoneAndSubMicrosecond(t *testing.T) {
	e := buildChain(t, 1)[0]
	h1, err := Hash(e)
	require.NoError(t, err)

	loc := time.FixedZone("UTC+7", 7*3600)
	e.Timestamp = e.Timestamp.In(loc).Add(300 * time.Nanosecond)
	h2, err := Hash(e)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
}
