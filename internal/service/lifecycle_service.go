package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"contract-review-be/internal/dto"
	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/apperror"
	"contract-review-be/internal/pkg/logger"
	"contract-review-be/internal/repository/unitofwork"
	"contract-review-be/pkg/clock"
	"contract-review-be/pkg/lock"
	"contract-review-be/pkg/signature"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type RecipientAction string

const (
	ActionView    RecipientAction = "view"
	ActionSign    RecipientAction = "sign"
	ActionApprove RecipientAction = "approve"
	ActionDecline RecipientAction = "decline"
)

type LifecycleOptions struct {
	SessionTTL     time.Duration
	DocumentTTL    time.Duration
	AccessLinkBase string
	SweepBatchSize int
}

// SessionView is what a recipient sees through their session.
type SessionView struct {
	Session  *entity.SigningSession
	Document *entity.SignatureDocument
}

type ILifecycleService interface {
	CreateDocument(ctx context.Context, actor entity.Actor, req *dto.CreateDocumentRequest) (*entity.SignatureDocument, error)
	UpdateDraft(ctx context.Context, actor entity.Actor, docId uuid.UUID, req *dto.UpdateDraftRequest) (*entity.SignatureDocument, error)
	GetDocument(ctx context.Context, actor entity.Actor, docId uuid.UUID) (*entity.SignatureDocument, error)
	ListDocuments(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.SignatureDocument, error)
	CreateTemplate(ctx context.Context, actor entity.Actor, req *dto.CreateTemplateRequest) (*entity.SignatureTemplate, error)
	ListTemplates(ctx context.Context, actor entity.Actor) ([]*entity.SignatureTemplate, error)
	CreateFromTemplate(ctx context.Context, actor entity.Actor, templateId uuid.UUID, req *dto.CreateFromTemplateRequest) (*entity.SignatureDocument, error)

	Send(ctx context.Context, actor entity.Actor, docId uuid.UUID) (*entity.SignatureDocument, error)
	RecipientAct(ctx context.Context, actor entity.Actor, docId, recipientId uuid.UUID, action RecipientAction, reason string) (*entity.SignatureDocument, error)
	ReissueSession(ctx context.Context, actor entity.Actor, docId, recipientId uuid.UUID) error
	ExpireCheck(ctx context.Context, docId uuid.UUID) (bool, error)
	ExpireDue(ctx context.Context) (int, error)
	AuditTrail(ctx context.Context, actor entity.Actor, docId uuid.UUID) ([]entity.AuditEvent, error)

	OpenSession(ctx context.Context, actor entity.Actor, token, accessCode string) (*SessionView, error)
	CompleteField(ctx context.Context, actor entity.Actor, token, accessCode string, fieldId uuid.UUID, value string) (*SessionView, error)
	SignWithSession(ctx context.Context, actor entity.Actor, token, accessCode string) (*SessionView, error)
	DeclineWithSession(ctx context.Context, actor entity.Actor, token, accessCode, reason string) (*SessionView, error)
	UpdateCursor(ctx context.Context, actor entity.Actor, token, accessCode string, page int) (*SessionView, error)
}

type lifecycleService struct {
	uowFactory unitofwork.RepositoryFactory
	locker     lock.Locker
	clock      clock.Clock
	audit      IAuditService
	sessions   ISessionService
	notifier   INotifier
	logger     logger.ILogger
	opts       LifecycleOptions
	tracer     trace.Tracer
}

func NewLifecycleService(
	uowFactory unitofwork.RepositoryFactory,
	locker lock.Locker,
	clk clock.Clock,
	audit IAuditService,
	sessions ISessionService,
	notifier INotifier,
	log logger.ILogger,
	opts LifecycleOptions,
) ILifecycleService {
	return &lifecycleService{
		uowFactory: uowFactory,
		locker:     locker,
		clock:      clk,
		audit:      audit,
		sessions:   sessions,
		notifier:   notifier,
		logger:     log,
		opts:       opts,
		tracer:     otel.Tracer("lifecycle"),
	}
}

// outbox collects what must happen after commit. dirty marks the document
// for persistence.
type outbox struct {
	dirty    bool
	eligible []RecipientEligibleNotice
	terminal *DocumentTerminalNotice
}

// commitThenFail reports an error after the transaction has been committed,
// for checks whose side effect (an expiry) must persist.
type commitThenFail struct {
	err error
}

func (c *commitThenFail) Error() string { return c.err.Error() }
func (c *commitThenFail) Unwrap() error { return c.err }

// withDocument runs fn with the document locked and loaded in a
// transaction, persists it if fn changed it, commits, and only then sends
// the notifications fn queued.
func (s *lifecycleService) withDocument(ctx context.Context, docId uuid.UUID, fn func(uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, out *outbox) error) (*entity.SignatureDocument, error) {
	unlock, err := s.locker.Lock(ctx, lock.EntityKey(docId))
	if err != nil {
		return nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	doc, err := uow.SignatureDocumentRepository().FindByIDForUpdate(ctx, docId)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	out := &outbox{}
	fnErr := fn(uow, doc, out)
	var deferred *commitThenFail
	if fnErr != nil && !errors.As(fnErr, &deferred) {
		return nil, fnErr
	}

	if out.dirty {
		if err := uow.SignatureDocumentRepository().Update(ctx, doc); err != nil {
			return nil, err
		}
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.dispatch(ctx, out)
	if deferred != nil {
		return nil, deferred.err
	}
	return doc, nil
}

func (s *lifecycleService) dispatch(ctx context.Context, out *outbox) {
	ctx = context.WithoutCancel(ctx)
	for _, n := range out.eligible {
		s.notifier.RecipientEligible(ctx, n)
	}
	if out.terminal != nil {
		s.notifier.DocumentTerminal(ctx, *out.terminal)
	}
}

func (s *lifecycleService) startSpan(ctx context.Context, name string, docId uuid.UUID) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "Lifecycle."+name)
	if docId != uuid.Nil {
		span.SetAttributes(attribute.String("document.id", docId.String()))
	}
	return ctx, span
}

// setStatus is the only place document.status is written.
func (s *lifecycleService) setStatus(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, to entity.DocumentStatus, reason string, actor entity.Actor, out *outbox) error {
	from := doc.Status
	if from == to {
		return nil
	}
	doc.Status = to
	out.dirty = true

	details := map[entity.DetailKey]string{
		entity.DetailStatusFrom: string(from),
		entity.DetailStatusTo:   string(to),
	}
	if reason != "" {
		details[entity.DetailReason] = reason
	}
	if _, err := s.audit.Record(ctx, uow, doc.Id, actor, AuditEntry{
		Action:  entity.AuditDocumentStatusChanged,
		Details: details,
	}); err != nil {
		return err
	}

	if to.IsTerminal() {
		if err := s.sessions.ExpireForDocument(ctx, uow, doc.Id, entity.SessionEndDocumentClosed, actor); err != nil {
			return err
		}
		emails := make([]string, 0, len(doc.Recipients))
		for _, r := range doc.Recipients {
			emails = append(emails, r.Email)
		}
		out.terminal = &DocumentTerminalNotice{
			DocumentId:      doc.Id,
			DocumentTitle:   doc.Title,
			OwnerId:         doc.OwnerId,
			Status:          string(to),
			RecipientEmails: emails,
			OccurredAt:      s.clock.Now(),
		}
	}
	return nil
}

func (s *lifecycleService) accessLink(token string) string {
	return strings.TrimRight(s.opts.AccessLinkBase, "/") + "/sign?token=" + url.QueryEscape(token)
}

// activate issues a fresh session for the recipient and queues the access
// link. Sessions never outlive the document.
func (s *lifecycleService) activate(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, recipientId uuid.UUID, actor entity.Actor, out *outbox) error {
	ttl := s.opts.SessionTTL
	if doc.ExpiresAt != nil {
		if remaining := doc.ExpiresAt.Sub(s.clock.Now()); remaining < ttl {
			ttl = remaining
		}
	}

	issued, err := s.sessions.Issue(ctx, uow, doc, recipientId, ttl, actor)
	if err != nil {
		return err
	}
	if _, err := s.audit.Record(ctx, uow, doc.Id, actor, AuditEntry{
		Action: entity.AuditRecipientActivated,
		Details: map[entity.DetailKey]string{
			entity.DetailRecipientId: recipientId.String(),
			entity.DetailSessionId:   issued.Session.Id.String(),
		},
	}); err != nil {
		return err
	}

	r := doc.Recipient(recipientId)
	out.eligible = append(out.eligible, RecipientEligibleNotice{
		DocumentId:    doc.Id,
		DocumentTitle: doc.Title,
		RecipientId:   recipientId,
		Email:         r.Email,
		Name:          r.Name,
		AccessLink:    s.accessLink(issued.Token),
		ExpiresAt:     issued.Session.ExpiresAt,
	})
	return nil
}

var recipientAuditAction = map[entity.RecipientStatus]entity.AuditAction{
	entity.RecipientStatusViewed:    entity.AuditRecipientViewed,
	entity.RecipientStatusSigned:    entity.AuditRecipientSigned,
	entity.RecipientStatusCompleted: entity.AuditRecipientCompleted,
	entity.RecipientStatusDeclined:  entity.AuditRecipientDeclined,
}

// advance moves one recipient through the router and records everything
// that follows from it: the recipient event, a document status change and
// activation of newly eligible recipients.
func (s *lifecycleService) advance(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, recipientId uuid.UUID, to entity.RecipientStatus, actor entity.Actor, out *outbox) error {
	delta, err := signature.Advance(doc, recipientId, to, s.clock.Now())
	if err != nil {
		return err
	}
	out.dirty = true

	details := map[entity.DetailKey]string{entity.DetailRecipientId: recipientId.String()}
	if to == entity.RecipientStatusDeclined {
		if r := doc.Recipient(recipientId); r != nil && r.DeclineReason != "" {
			details[entity.DetailReason] = r.DeclineReason
		}
	}
	if _, err := s.audit.Record(ctx, uow, doc.Id, actor, AuditEntry{
		Action:  recipientAuditAction[to],
		Details: details,
	}); err != nil {
		return err
	}

	if delta.DocumentChanged() {
		if delta.CompletedAt != nil {
			doc.CompletedAt = delta.CompletedAt
		}
		if err := s.setStatus(ctx, uow, doc, delta.DocumentTo, "", actor, out); err != nil {
			return err
		}
	}

	for _, id := range delta.NewlyEligible {
		if err := s.activate(ctx, uow, doc, id, actor, out); err != nil {
			return err
		}
	}
	return nil
}

// expireIfDue closes an open document whose deadline has passed.
func (s *lifecycleService) expireIfDue(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, out *outbox) (bool, error) {
	if !doc.Status.IsOpen() || doc.ExpiresAt == nil || s.clock.Now().Before(*doc.ExpiresAt) {
		return false, nil
	}
	if err := s.setStatus(ctx, uow, doc, entity.DocumentStatusExpired, entity.SessionEndTimeout, entity.SystemActor(), out); err != nil {
		return false, err
	}
	return true, nil
}

func checkOpen(doc *entity.SignatureDocument) error {
	if doc.Status.IsTerminal() {
		return signature.ErrTerminalDocument
	}
	if !doc.Status.IsOpen() {
		return signature.ErrDocumentNotOpen
	}
	return nil
}

func allowedAction(role entity.RecipientRole, action RecipientAction) bool {
	switch action {
	case ActionView:
		return true
	case ActionSign:
		return role == entity.RoleSigner || role == entity.RoleInPersonSigner
	case ActionApprove:
		return role == entity.RoleApprover
	case ActionDecline:
		return role.RequiresAction()
	}
	return false
}

// perform carries out one recipient action on an open document. Acting on
// a pending recipient records the implicit view first.
func (s *lifecycleService) perform(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, recipientId uuid.UUID, action RecipientAction, reason string, actor entity.Actor, out *outbox) error {
	if err := checkOpen(doc); err != nil {
		return err
	}
	r := doc.Recipient(recipientId)
	if r == nil {
		return signature.ErrUnknownRecipient
	}
	switch action {
	case ActionView, ActionSign, ActionApprove, ActionDecline:
	default:
		return apperror.Wrap(ErrUnknownAction, "%q", action)
	}
	if !allowedAction(r.Role, action) {
		return apperror.Wrap(ErrActionNotAllowed, "%s cannot %s", r.Role, action)
	}
	if (action == ActionSign || action == ActionApprove) && !doc.RequiredFieldsFilled(recipientId) {
		return signature.ErrRequiredFieldsOpen
	}

	if r.Status == entity.RecipientStatusPending {
		if err := s.advance(ctx, uow, doc, recipientId, entity.RecipientStatusViewed, actor, out); err != nil {
			return err
		}
	}

	if action == ActionView {
		return nil
	}
	if err := s.settleSession(ctx, uow, doc.Id, recipientId, actor); err != nil {
		return err
	}

	switch action {
	case ActionSign, ActionApprove:
		if err := s.advance(ctx, uow, doc, recipientId, entity.RecipientStatusSigned, actor, out); err != nil {
			return err
		}
		if err := s.advance(ctx, uow, doc, recipientId, entity.RecipientStatusCompleted, actor, out); err != nil {
			return err
		}
	case ActionDecline:
		doc.Recipient(recipientId).DeclineReason = strings.TrimSpace(reason)
		if err := s.advance(ctx, uow, doc, recipientId, entity.RecipientStatusDeclined, actor, out); err != nil {
			return err
		}
	}
	return nil
}

// settleSession closes the recipient's active session once they are done.
func (s *lifecycleService) settleSession(ctx context.Context, uow unitofwork.UnitOfWork, docId, recipientId uuid.UUID, actor entity.Actor) error {
	session, err := uow.SigningSessionRepository().FindActiveByRecipient(ctx, docId, recipientId)
	if err != nil || session == nil {
		return err
	}
	return s.sessions.Complete(ctx, uow, session, entity.SessionEndRecipientSettled, actor)
}

func (s *lifecycleService) Send(ctx context.Context, actor entity.Actor, docId uuid.UUID) (*entity.SignatureDocument, error) {
	ctx, span := s.startSpan(ctx, "Send", docId)
	defer span.End()

	return s.withDocument(ctx, docId, func(uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, out *outbox) error {
		if err := authorizeOwner(actor, doc.OwnerId); err != nil {
			return err
		}
		if doc.Status != entity.DocumentStatusDraft {
			return ErrDocumentNotDraft
		}
		if err := validateForSend(doc); err != nil {
			return err
		}

		now := s.clock.Now()
		expiresAt := now.Add(s.opts.DocumentTTL)
		doc.SentAt = &now
		doc.ExpiresAt = &expiresAt

		if err := s.setStatus(ctx, uow, doc, entity.DocumentStatusSent, "", actor, out); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, uow, doc.Id, actor, AuditEntry{
			Action:  entity.AuditDocumentSent,
			Details: map[entity.DetailKey]string{entity.DetailExpiresAt: expiresAt.Format(time.RFC3339)},
		}); err != nil {
			return err
		}

		for _, id := range signature.EligibleRecipients(doc) {
			if err := s.activate(ctx, uow, doc, id, actor, out); err != nil {
				return err
			}
		}
		return nil
	})
}

func validateForSend(doc *entity.SignatureDocument) error {
	acting := 0
	orders := make(map[int]bool, len(doc.Recipients))
	for _, r := range doc.Recipients {
		if r.Role.RequiresAction() {
			acting++
		}
		if orders[r.Order] {
			return apperror.Wrap(ErrDuplicateOrder, "order %d", r.Order)
		}
		orders[r.Order] = true
		if r.AuthMethod == entity.AuthAccessCode && r.AccessCodeHash == "" {
			return apperror.Wrap(ErrInvalidDocument, "recipient %s has no access code", r.Email)
		}
	}
	if acting == 0 {
		return ErrNoActingRecipient
	}
	for _, f := range doc.Fields {
		if doc.Recipient(f.RecipientId) == nil {
			return apperror.Wrap(ErrInvalidDocument, "field %s is not assigned to a recipient", f.Id)
		}
		if f.Page < 1 || f.Page > doc.PageCount {
			return apperror.Wrap(ErrInvalidDocument, "field %s is on page %d of %d", f.Id, f.Page, doc.PageCount)
		}
	}
	return nil
}

// authorizeRecipientAct admits the owner (hosting in-person signing), the
// recipient themselves and the system.
func authorizeRecipientAct(actor entity.Actor, doc *entity.SignatureDocument, recipientId uuid.UUID) error {
	if actor.Kind == entity.ActorRecipient {
		if actor.Id == recipientId {
			return nil
		}
		return apperror.ErrForbidden
	}
	return authorizeOwner(actor, doc.OwnerId)
}

func (s *lifecycleService) RecipientAct(ctx context.Context, actor entity.Actor, docId, recipientId uuid.UUID, action RecipientAction, reason string) (*entity.SignatureDocument, error) {
	ctx, span := s.startSpan(ctx, "RecipientAct", docId)
	defer span.End()
	span.SetAttributes(attribute.String("recipient.action", string(action)))

	return s.withDocument(ctx, docId, func(uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, out *outbox) error {
		if err := authorizeRecipientAct(actor, doc, recipientId); err != nil {
			return err
		}
		expired, err := s.expireIfDue(ctx, uow, doc, out)
		if err != nil {
			return err
		}
		if expired {
			return &commitThenFail{err: ErrDocumentExpired}
		}
		return s.perform(ctx, uow, doc, recipientId, action, reason, actor, out)
	})
}

func (s *lifecycleService) ReissueSession(ctx context.Context, actor entity.Actor, docId, recipientId uuid.UUID) error {
	_, err := s.withDocument(ctx, docId, func(uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, out *outbox) error {
		if err := authorizeOwner(actor, doc.OwnerId); err != nil {
			return err
		}
		expired, err := s.expireIfDue(ctx, uow, doc, out)
		if err != nil {
			return err
		}
		if expired {
			return &commitThenFail{err: ErrDocumentExpired}
		}
		if err := checkOpen(doc); err != nil {
			return err
		}

		r := doc.Recipient(recipientId)
		if r == nil {
			return signature.ErrUnknownRecipient
		}
		if r.Status.IsSettled() {
			return ErrRecipientSettled
		}
		if r.Status == entity.RecipientStatusPending && !signature.IsEligible(doc, recipientId) {
			return ErrRecipientNotActive
		}
		return s.activate(ctx, uow, doc, recipientId, actor, out)
	})
	return err
}

func (s *lifecycleService) ExpireCheck(ctx context.Context, docId uuid.UUID) (bool, error) {
	expired := false
	_, err := s.withDocument(ctx, docId, func(uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, out *outbox) error {
		var err error
		expired, err = s.expireIfDue(ctx, uow, doc, out)
		return err
	})
	return expired, err
}

func (s *lifecycleService) ExpireDue(ctx context.Context) (int, error) {
	ids, err := s.uowFactory.NewUnitOfWork(ctx).SignatureDocumentRepository().FindExpiring(ctx, s.clock.Now(), s.opts.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		expired, err := s.ExpireCheck(ctx, id)
		if err != nil {
			s.logger.Error("LIFECYCLE", "Failed to expire document", map[string]interface{}{
				"document_id": id.String(),
				"error":       err.Error(),
			})
			continue
		}
		if expired {
			count++
		}
	}
	return count, nil
}

func (s *lifecycleService) AuditTrail(ctx context.Context, actor entity.Actor, docId uuid.UUID) ([]entity.AuditEvent, error) {
	if _, err := s.GetDocument(ctx, actor, docId); err != nil {
		return nil, err
	}
	return s.audit.Read(ctx, docId)
}

// withSession resolves token to its document and runs fn under the document
// lock with the session re-read inside the transaction.
func (s *lifecycleService) withSession(ctx context.Context, name string, actor entity.Actor, token, accessCode string, fn func(uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, session *entity.SigningSession, actor entity.Actor, out *outbox) error) (*SessionView, error) {
	resolved, err := s.sessions.Lookup(ctx, s.uowFactory.NewUnitOfWork(ctx), token)
	if err != nil {
		return nil, err
	}

	ctx, span := s.startSpan(ctx, name, resolved.DocumentId)
	defer span.End()

	var session *entity.SigningSession
	doc, err := s.withDocument(ctx, resolved.DocumentId, func(uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, out *outbox) error {
		var err error
		session, err = uow.SigningSessionRepository().FindByID(ctx, resolved.Id)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrSessionUnknown
		}

		switch session.Status {
		case entity.SessionStatusCompleted:
			return ErrSessionClosed
		case entity.SessionStatusExpired:
			return ErrSessionExpired
		}
		if session.ExpiredAt(s.clock.Now()) {
			if err := s.sessions.Expire(ctx, uow, session, entity.SessionEndTimeout, entity.SystemActor()); err != nil {
				return err
			}
			return &commitThenFail{err: ErrSessionExpired}
		}

		expired, err := s.expireIfDue(ctx, uow, doc, out)
		if err != nil {
			return err
		}
		if expired {
			return &commitThenFail{err: ErrDocumentExpired}
		}
		if err := checkOpen(doc); err != nil {
			return err
		}

		recipient := doc.Recipient(session.RecipientId)
		if recipient == nil {
			return signature.ErrUnknownRecipient
		}
		if err := s.sessions.VerifyAccessCode(recipient, accessCode); err != nil {
			return err
		}

		return fn(uow, doc, session, entity.RecipientActor(recipient.Id, actor.Origin), out)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &SessionView{Session: session, Document: doc}, nil
}

func (s *lifecycleService) OpenSession(ctx context.Context, actor entity.Actor, token, accessCode string) (*SessionView, error) {
	return s.withSession(ctx, "OpenSession", actor, token, accessCode, func(uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, session *entity.SigningSession, actor entity.Actor, out *outbox) error {
		return s.perform(ctx, uow, doc, session.RecipientId, ActionView, "", actor, out)
	})
}

func (s *lifecycleService) CompleteField(ctx context.Context, actor entity.Actor, token, accessCode string, fieldId uuid.UUID, value string) (*SessionView, error) {
	return s.withSession(ctx, "CompleteField", actor, token, accessCode, func(uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, session *entity.SigningSession, actor entity.Actor, out *outbox) error {
		recipientId := session.RecipientId
		if err := s.perform(ctx, uow, doc, recipientId, ActionView, "", actor, out); err != nil {
			return err
		}

		completed, err := s.sessions.RecordFieldCompletion(ctx, uow, doc, session, fieldId, value, actor)
		if err != nil {
			return err
		}
		out.dirty = true
		if !completed {
			return nil
		}

		if err := s.advance(ctx, uow, doc, recipientId, entity.RecipientStatusSigned, actor, out); err != nil {
			return err
		}
		return s.advance(ctx, uow, doc, recipientId, entity.RecipientStatusCompleted, actor, out)
	})
}

func (s *lifecycleService) SignWithSession(ctx context.Context, actor entity.Actor, token, accessCode string) (*SessionView, error) {
	return s.withSession(ctx, "SignWithSession", actor, token, accessCode, func(uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, session *entity.SigningSession, actor entity.Actor, out *outbox) error {
		action := ActionSign
		if r := doc.Recipient(session.RecipientId); r.Role == entity.RoleApprover {
			action = ActionApprove
		}
		if err := s.perform(ctx, uow, doc, session.RecipientId, action, "", actor, out); err != nil {
			return err
		}
		return s.refresh(ctx, uow, session)
	})
}

func (s *lifecycleService) DeclineWithSession(ctx context.Context, actor entity.Actor, token, accessCode, reason string) (*SessionView, error) {
	return s.withSession(ctx, "DeclineWithSession", actor, token, accessCode, func(uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, session *entity.SigningSession, actor entity.Actor, out *outbox) error {
		if err := s.perform(ctx, uow, doc, session.RecipientId, ActionDecline, reason, actor, out); err != nil {
			return err
		}
		return s.refresh(ctx, uow, session)
	})
}

func (s *lifecycleService) UpdateCursor(ctx context.Context, actor entity.Actor, token, accessCode string, page int) (*SessionView, error) {
	return s.withSession(ctx, "UpdateCursor", actor, token, accessCode, func(uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, session *entity.SigningSession, actor entity.Actor, out *outbox) error {
		if err := s.perform(ctx, uow, doc, session.RecipientId, ActionView, "", actor, out); err != nil {
			return err
		}
		return s.sessions.UpdateCursor(ctx, uow, doc, session, page, actor)
	})
}

// refresh reloads a session that a nested step may have closed.
func (s *lifecycleService) refresh(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.SigningSession) error {
	latest, err := uow.SigningSessionRepository().FindByID(ctx, session.Id)
	if err != nil {
		return err
	}
	if latest != nil {
		*session = *latest
	}
	return nil
}
