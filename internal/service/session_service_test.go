package service

import (
	"context"
	"testing"
	"time"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) issue(t *testing.T, doc *entity.SignatureDocument, r entity.SignatureRecipient, ttl time.Duration) *IssuedSession {
	t.Helper()
	ctx := context.Background()
	uow := memory.NewRepositoryFactory(h.store).NewUnitOfWork(ctx)
	require.NoError(t, uow.Begin(ctx))
	issued, err := h.sessions.Issue(ctx, uow, doc, r.Id, ttl, h.owner)
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	return issued
}

func TestSession_ZeroTTLExpiresOnFirstValidate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	doc := h.sent(t, entity.RoutingParallel, signer("a@example.com", 1))
	a := recipientByEmail(t, doc, "a@example.com")

	issued := h.issue(t, doc, a, 0)
	assert.Equal(t, HashToken(issued.Token), issued.Session.TokenHash)
	assert.NotContains(t, issued.Session.TokenHash, issued.Token)

	_, err := h.sessions.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = h.sessions.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)

	stored, err := h.sessions.Lookup(ctx, memory.NewRepositoryFactory(h.store).NewUnitOfWork(ctx), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusExpired, stored.Status)
	assert.Equal(t, entity.SessionEndTimeout, stored.EndReason)

	trail, err := h.audit.Read(ctx, doc.Id)
	require.NoError(t, err)
	timeouts := 0
	for _, e := range trail {
		if e.Action == entity.AuditSessionExpired && e.Details[entity.DetailSessionId] == issued.Session.Id.String() {
			assert.Equal(t, entity.SessionEndTimeout, e.Details[entity.DetailReason])
			assert.Nil(t, e.ActorId, "expiry is a system action")
			timeouts++
		}
	}
	assert.Equal(t, 1, timeouts)
}

func TestSession_ValidateActiveAndUnknown(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	doc := h.sent(t, entity.RoutingParallel, signer("a@example.com", 1))
	a := recipientByEmail(t, doc, "a@example.com")

	issued := h.issue(t, doc, a, time.Hour)
	session, err := h.sessions.Validate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, issued.Session.Id, session.Id)

	h.clock.Advance(time.Hour)
	_, err = h.sessions.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrSessionExpired, "expiry is inclusive of the deadline")

	_, err = h.sessions.Validate(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrSessionUnknown)
	_, err = h.sessions.Validate(ctx, "")
	assert.ErrorIs(t, err, ErrSessionUnknown)
}

func TestSession_TokensAreUnique(t *testing.T) {
	h := newHarness(t)
	doc := h.sent(t, entity.RoutingParallel, signer("a@example.com", 1))
	a := recipientByEmail(t, doc, "a@example.com")

	seen := map[string]bool{h.notifier.tokenFor(t, a.Id): true}
	for i := 0; i < 20; i++ {
		issued := h.issue(t, doc, a, time.Hour)
		assert.Len(t, issued.Token, 43)
		assert.False(t, seen[issued.Token])
		seen[issued.Token] = true
	}
}

func TestValidateFieldValue(t *testing.T) {
	checkbox := &entity.SignatureField{Type: entity.FieldTypeCheckbox}
	radio := &entity.SignatureField{Type: entity.FieldTypeRadio, Options: []string{"yes", "no"}}
	text := &entity.SignatureField{Type: entity.FieldTypeTextbox}

	assert.NoError(t, validateFieldValue(checkbox, "true"))
	assert.ErrorIs(t, validateFieldValue(checkbox, "maybe"), ErrInvalidFieldValue)
	assert.NoError(t, validateFieldValue(radio, "no"))
	assert.ErrorIs(t, validateFieldValue(radio, "perhaps"), ErrInvalidFieldValue)
	assert.NoError(t, validateFieldValue(text, "Chief Counsel"))
	assert.ErrorIs(t, validateFieldValue(text, "  "), ErrInvalidFieldValue)
}
