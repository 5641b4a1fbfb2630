package service

import (
	"context"
	"testing"
	"time"

	"contract-review-be/internal/dto"
	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/apperror"
	"contract-review-be/pkg/signature"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var browser = entity.Actor{Origin: entity.Origin{IPAddress: "198.51.100.4", Client: "Mozilla/5.0"}}

func withFields(r dto.RecipientInput, fields ...dto.FieldInput) dto.RecipientInput {
	r.Fields = fields
	return r
}

func TestLifecycle_SequentialSignThenDecline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	doc := h.sent(t, entity.RoutingSequential,
		withFields(signer("r1@example.com", 1), signatureField(1, true)),
		withFields(signer("r2@example.com", 2), signatureField(2, true)),
	)
	r1 := recipientByEmail(t, doc, "r1@example.com")
	r2 := recipientByEmail(t, doc, "r2@example.com")
	assert.Equal(t, entity.DocumentStatusSent, doc.Status)
	assert.Equal(t, []uuid.UUID{r1.Id}, h.notifier.eligibleIds(), "only the first signer is invited")

	token1 := h.notifier.tokenFor(t, r1.Id)
	view, err := h.lifecycle.OpenSession(ctx, browser, token1, "")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusInProgress, view.Document.Status)

	field := doc.FieldsFor(r1.Id)[0]
	view, err = h.lifecycle.CompleteField(ctx, browser, token1, "", field.Id, "R1")
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusCompleted, view.Session.Status)
	assert.Equal(t, entity.RecipientStatusCompleted, view.Document.Recipient(r1.Id).Status)
	assert.Equal(t, entity.DocumentStatusInProgress, view.Document.Status)
	assert.Equal(t, []uuid.UUID{r1.Id, r2.Id}, h.notifier.eligibleIds())

	token2 := h.notifier.tokenFor(t, r2.Id)
	view, err = h.lifecycle.DeclineWithSession(ctx, browser, token2, "", "terms not acceptable")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusDeclined, view.Document.Status)
	assert.Equal(t, "terms not acceptable", view.Document.Recipient(r2.Id).DeclineReason)
	assert.Equal(t, 1, h.notifier.terminalCount())

	_, err = h.lifecycle.RecipientAct(ctx, h.owner, doc.Id, r1.Id, ActionSign, "")
	assert.ErrorIs(t, err, signature.ErrTerminalDocument)
	_, err = h.lifecycle.RecipientAct(ctx, entity.RecipientActor(r2.Id, browser.Origin), doc.Id, r2.Id, ActionSign, "")
	assert.ErrorIs(t, err, signature.ErrTerminalDocument)

	_, err = h.lifecycle.OpenSession(ctx, browser, token2, "")
	assert.ErrorIs(t, err, ErrSessionClosed)

	trail, err := h.lifecycle.AuditTrail(ctx, h.owner, doc.Id)
	require.NoError(t, err)
	for i, e := range trail {
		assert.Equal(t, int64(i+1), e.Sequence)
	}
	got := actions(trail)
	assert.Equal(t, entity.AuditDocumentCreated, got[0])
	assert.Contains(t, got, entity.AuditDocumentSent)
	assert.Contains(t, got, entity.AuditFieldCompleted)
	assert.Contains(t, got, entity.AuditRecipientDeclined)
}

func TestLifecycle_ParallelCompletesWhenAllActingRecipientsComplete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	approver := signer("approver@example.com", 2)
	approver.Role = string(entity.RoleApprover)
	viewer := signer("cc@example.com", 3)
	viewer.Role = string(entity.RoleViewer)

	doc := h.sent(t, entity.RoutingParallel, signer("signer@example.com", 1), approver, viewer)
	s := recipientByEmail(t, doc, "signer@example.com")
	a := recipientByEmail(t, doc, "approver@example.com")
	cc := recipientByEmail(t, doc, "cc@example.com")
	assert.ElementsMatch(t, []uuid.UUID{s.Id, a.Id, cc.Id}, h.notifier.eligibleIds())

	doc, err := h.lifecycle.RecipientAct(ctx, h.owner, doc.Id, s.Id, ActionSign, "")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusInProgress, doc.Status)
	assert.Nil(t, doc.CompletedAt)

	_, err = h.lifecycle.RecipientAct(ctx, h.owner, doc.Id, cc.Id, ActionView, "")
	require.NoError(t, err)

	_, err = h.lifecycle.RecipientAct(ctx, h.owner, doc.Id, a.Id, ActionSign, "")
	assert.ErrorIs(t, err, ErrActionNotAllowed)

	doc, err = h.lifecycle.RecipientAct(ctx, entity.RecipientActor(a.Id, browser.Origin), doc.Id, a.Id, ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusCompleted, doc.Status)
	require.NotNil(t, doc.CompletedAt)
	assert.Equal(t, entity.RecipientStatusViewed, doc.Recipient(cc.Id).Status, "observers do not gate completion")
	assert.Equal(t, 1, h.notifier.terminalCount())

	_, err = h.lifecycle.OpenSession(ctx, browser, h.notifier.tokenFor(t, cc.Id), "")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestLifecycle_SequentialRecipientCannotJumpTheQueue(t *testing.T) {
	h := newHarness(t)
	doc := h.sent(t, entity.RoutingSequential, signer("r1@example.com", 1), signer("r2@example.com", 2))
	r2 := recipientByEmail(t, doc, "r2@example.com")

	_, err := h.lifecycle.RecipientAct(context.Background(), h.owner, doc.Id, r2.Id, ActionSign, "")
	assert.ErrorIs(t, err, signature.ErrNotEligible)

	err = h.lifecycle.ReissueSession(context.Background(), h.owner, doc.Id, r2.Id)
	assert.ErrorIs(t, err, ErrRecipientNotActive)
}

func TestLifecycle_SendValidation(t *testing.T) {
	ctx := context.Background()
	viewer := signer("cc@example.com", 1)
	viewer.Role = string(entity.RoleViewer)

	tests := []struct {
		name       string
		recipients []dto.RecipientInput
		wantErr    error
	}{
		{"no acting recipient", []dto.RecipientInput{viewer}, ErrNoActingRecipient},
		{"duplicate order", []dto.RecipientInput{signer("a@example.com", 1), signer("b@example.com", 1)}, ErrDuplicateOrder},
		{"no recipients", nil, ErrNoActingRecipient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			doc := h.draft(t, entity.RoutingSequential, tt.recipients...)
			_, err := h.lifecycle.Send(ctx, h.owner, doc.Id)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, entity.DocumentStatusDraft, h.document(t, doc.Id).Status)
		})
	}

	t.Run("send twice", func(t *testing.T) {
		h := newHarness(t)
		doc := h.sent(t, entity.RoutingParallel, signer("a@example.com", 1))
		_, err := h.lifecycle.Send(ctx, h.owner, doc.Id)
		assert.ErrorIs(t, err, ErrDocumentNotDraft)

		_, err = h.lifecycle.UpdateDraft(ctx, h.owner, doc.Id, &dto.UpdateDraftRequest{
			Title: "x", ContentRef: "y", PageCount: 1, Routing: string(entity.RoutingParallel),
		})
		assert.ErrorIs(t, err, ErrDocumentNotDraft)
	})
}

func TestLifecycle_CreateDocumentRejectsBadFields(t *testing.T) {
	h := newHarness(t)
	_, err := h.lifecycle.CreateDocument(context.Background(), h.owner, &dto.CreateDocumentRequest{
		Title:      "NDA",
		ContentRef: "s3://nda.pdf",
		PageCount:  1,
		Routing:    string(entity.RoutingParallel),
		Recipients: []dto.RecipientInput{withFields(signer("a@example.com", 1), signatureField(4, true))},
	})
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestLifecycle_SignRequiresFilledFields(t *testing.T) {
	h := newHarness(t)
	doc := h.sent(t, entity.RoutingParallel, withFields(signer("a@example.com", 1), signatureField(1, true)))
	a := recipientByEmail(t, doc, "a@example.com")

	_, err := h.lifecycle.SignWithSession(context.Background(), browser, h.notifier.tokenFor(t, a.Id), "")
	assert.ErrorIs(t, err, signature.ErrRequiredFieldsOpen)
	assert.Equal(t, entity.RecipientStatusPending, h.document(t, doc.Id).Recipient(a.Id).Status, "failed action leaves no partial view")
}

func TestLifecycle_FieldsAreWriteOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	doc := h.sent(t, entity.RoutingParallel,
		withFields(signer("a@example.com", 1), signatureField(1, true), signatureField(2, true)),
		signer("b@example.com", 2),
	)
	a := recipientByEmail(t, doc, "a@example.com")
	b := recipientByEmail(t, doc, "b@example.com")
	token := h.notifier.tokenFor(t, a.Id)
	first := doc.FieldsFor(a.Id)[0]

	_, err := h.lifecycle.CompleteField(ctx, browser, token, "", first.Id, "A")
	require.NoError(t, err)

	_, err = h.lifecycle.CompleteField(ctx, browser, token, "", first.Id, "A again")
	assert.ErrorIs(t, err, ErrFieldAlreadySet)

	_, err = h.lifecycle.CompleteField(ctx, browser, token, "", uuid.New(), "A")
	assert.ErrorIs(t, err, ErrUnknownField)

	bToken := h.notifier.tokenFor(t, b.Id)
	_, err = h.lifecycle.CompleteField(ctx, browser, bToken, "", doc.FieldsFor(a.Id)[1].Id, "B")
	assert.ErrorIs(t, err, ErrFieldNotAssignedToRecipient)

	stored := h.document(t, doc.Id).Field(first.Id)
	require.NotNil(t, stored.Value)
	assert.Equal(t, "A", *stored.Value)
}

func TestLifecycle_AccessCodeGate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	r := signer("guarded@example.com", 1)
	r.AuthMethod = string(entity.AuthAccessCode)
	r.AccessCode = "4711"

	doc := h.sent(t, entity.RoutingParallel, r)
	rec := recipientByEmail(t, doc, "guarded@example.com")
	assert.NotEqual(t, "4711", rec.AccessCodeHash)
	token := h.notifier.tokenFor(t, rec.Id)

	_, err := h.lifecycle.OpenSession(ctx, browser, token, "")
	assert.ErrorIs(t, err, ErrAccessCodeInvalid)
	_, err = h.lifecycle.OpenSession(ctx, browser, token, "0000")
	assert.ErrorIs(t, err, ErrAccessCodeInvalid)

	view, err := h.lifecycle.OpenSession(ctx, browser, token, "4711")
	require.NoError(t, err)
	assert.Equal(t, entity.RecipientStatusViewed, view.Document.Recipient(rec.Id).Status)
}

func TestLifecycle_CursorStaysInsideDocument(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	doc := h.sent(t, entity.RoutingParallel, signer("a@example.com", 1))
	token := h.notifier.tokenFor(t, recipientByEmail(t, doc, "a@example.com").Id)

	view, err := h.lifecycle.UpdateCursor(ctx, browser, token, "", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Session.CurrentPage)

	_, err = h.lifecycle.UpdateCursor(ctx, browser, token, "", 4)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestLifecycle_ExpiryBySweepAndOnAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("sweep", func(t *testing.T) {
		h := newHarness(t)
		doc := h.sent(t, entity.RoutingParallel, signer("a@example.com", 1))
		a := recipientByEmail(t, doc, "a@example.com")

		n, err := h.lifecycle.ExpireDue(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		h.clock.Advance(31 * 24 * time.Hour)
		n, err = h.lifecycle.ExpireDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, entity.DocumentStatusExpired, h.document(t, doc.Id).Status)
		assert.Equal(t, 1, h.notifier.terminalCount())

		_, err = h.lifecycle.OpenSession(ctx, browser, h.notifier.tokenFor(t, a.Id), "")
		assert.ErrorIs(t, err, ErrSessionExpired)

		expired, err := h.lifecycle.ExpireCheck(ctx, doc.Id)
		require.NoError(t, err)
		assert.False(t, expired, "expiry happens once")
	})

	t.Run("on access", func(t *testing.T) {
		h := newHarness(t)
		doc := h.sent(t, entity.RoutingParallel, signer("a@example.com", 1))
		a := recipientByEmail(t, doc, "a@example.com")

		h.clock.Advance(31 * 24 * time.Hour)
		_, err := h.lifecycle.RecipientAct(ctx, h.owner, doc.Id, a.Id, ActionSign, "")
		assert.ErrorIs(t, err, ErrDocumentExpired)
		assert.Equal(t, entity.DocumentStatusExpired, h.document(t, doc.Id).Status, "expiry persists even though the action failed")
	})
}

func TestLifecycle_ReissueSupersedesOldLink(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	doc := h.sent(t, entity.RoutingParallel, signer("a@example.com", 1))
	a := recipientByEmail(t, doc, "a@example.com")
	old := h.notifier.tokenFor(t, a.Id)

	require.NoError(t, h.lifecycle.ReissueSession(ctx, h.owner, doc.Id, a.Id))
	fresh := h.notifier.tokenFor(t, a.Id)
	require.NotEqual(t, old, fresh)

	_, err := h.lifecycle.OpenSession(ctx, browser, old, "")
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = h.lifecycle.SignWithSession(ctx, browser, fresh, "")
	require.NoError(t, err)

	err = h.lifecycle.ReissueSession(ctx, h.owner, doc.Id, a.Id)
	assert.ErrorIs(t, err, signature.ErrTerminalDocument)
}

func TestLifecycle_OnlyOwnerManagesDocument(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	doc := h.draft(t, entity.RoutingParallel, signer("a@example.com", 1))
	stranger := entity.UserActor(uuid.New(), entity.Origin{})

	_, err := h.lifecycle.GetDocument(ctx, stranger, doc.Id)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = h.lifecycle.Send(ctx, stranger, doc.Id)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = h.lifecycle.GetDocument(ctx, h.owner, uuid.New())
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	other := recipientByEmail(t, doc, "a@example.com")
	_, err = h.lifecycle.RecipientAct(ctx, entity.RecipientActor(uuid.New(), entity.Origin{}), doc.Id, other.Id, ActionView, "")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestLifecycle_Templates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	tmpl, err := h.lifecycle.CreateTemplate(ctx, h.owner, &dto.CreateTemplateRequest{
		Name:      "Two-party NDA",
		Routing:   string(entity.RoutingSequential),
		PageCount: 2,
		Roster: []dto.TemplateSlotInput{
			{Slot: "discloser", Role: string(entity.RoleSigner), AuthMethod: string(entity.AuthEmail), Order: 1},
			{Slot: "recipient", Role: string(entity.RoleSigner), AuthMethod: string(entity.AuthAccessCode), Order: 2},
		},
		Fields: []dto.TemplateFieldInput{
			{Slot: "discloser", FieldInput: signatureField(2, true)},
			{Slot: "recipient", FieldInput: signatureField(2, true)},
		},
	})
	require.NoError(t, err)

	list, err := h.lifecycle.ListTemplates(ctx, h.owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = h.lifecycle.CreateFromTemplate(ctx, h.owner, tmpl.Id, &dto.CreateFromTemplateRequest{
		Title:      "NDA with Acme",
		ContentRef: "s3://nda-acme.pdf",
		Recipients: map[string]dto.SlotIdentity{"discloser": {Email: "d@example.com", Name: "D"}},
	})
	assert.ErrorIs(t, err, ErrTemplateSlotMismatch)

	doc, err := h.lifecycle.CreateFromTemplate(ctx, h.owner, tmpl.Id, &dto.CreateFromTemplateRequest{
		Title:      "NDA with Acme",
		ContentRef: "s3://nda-acme.pdf",
		Recipients: map[string]dto.SlotIdentity{
			"discloser": {Email: "d@example.com", Name: "D"},
			"recipient": {Email: "r@example.com", Name: "R", AccessCode: "2468"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusDraft, doc.Status)
	assert.Equal(t, entity.RoutingSequential, doc.Routing)
	require.Len(t, doc.Recipients, 2)
	assert.Len(t, doc.Fields, 2)
	r := recipientByEmail(t, doc, "r@example.com")
	assert.Equal(t, 2, r.Order)
	assert.Equal(t, entity.AuthAccessCode, r.AuthMethod)
	assert.Len(t, doc.FieldsFor(r.Id), 1)

	trail, err := h.lifecycle.AuditTrail(ctx, h.owner, doc.Id)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, tmpl.Id.String(), trail[0].Details[entity.DetailTemplateId])
}
