package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"
	"time"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/repository/memory"
	"contract-review-be/internal/repository/unitofwork"
	"contract-review-be/pkg/clock"
	"contract-review-be/pkg/lock"
	"contract-review-be/pkg/signature"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenBytes = 32

type IssuedSession struct {
	Session *entity.SigningSession
	// Token is the raw capability. It is only available at issue time.
	Token string
}

type ISessionService interface {
	Issue(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, recipientId uuid.UUID, ttl time.Duration, actor entity.Actor) (*IssuedSession, error)
	// Lookup resolves a token without side effects. Expired-but-active
	// sessions are returned as stored.
	Lookup(ctx context.Context, uow unitofwork.UnitOfWork, token string) (*entity.SigningSession, error)
	Validate(ctx context.Context, token string) (*entity.SigningSession, error)
	Expire(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.SigningSession, reason string, actor entity.Actor) error
	ExpireForDocument(ctx context.Context, uow unitofwork.UnitOfWork, documentId uuid.UUID, reason string, actor entity.Actor) error
	Complete(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.SigningSession, reason string, actor entity.Actor) error
	RecordFieldCompletion(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, session *entity.SigningSession, fieldId uuid.UUID, value string, actor entity.Actor) (bool, error)
	UpdateCursor(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, session *entity.SigningSession, page int, actor entity.Actor) error
	VerifyAccessCode(recipient *entity.SignatureRecipient, code string) error
}

type sessionService struct {
	uowFactory unitofwork.RepositoryFactory
	locker     lock.Locker
	clock      clock.Clock
	audit      IAuditService
	index      *memory.SessionTokenIndex
}

func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	locker lock.Locker,
	clk clock.Clock,
	audit IAuditService,
	index *memory.SessionTokenIndex,
) ISessionService {
	return &sessionService{
		uowFactory: uowFactory,
		locker:     locker,
		clock:      clk,
		audit:      audit,
		index:      index,
	}
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashAccessCode prepares an access code for storage on a recipient.
func HashAccessCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *sessionService) Issue(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, recipientId uuid.UUID, ttl time.Duration, actor entity.Actor) (*IssuedSession, error) {
	if doc.Recipient(recipientId) == nil {
		return nil, signature.ErrUnknownRecipient
	}
	if ttl < 0 {
		ttl = 0
	}

	repo := uow.SigningSessionRepository()
	prior, err := repo.FindActiveByRecipient(ctx, doc.Id, recipientId)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		if err := s.Expire(ctx, uow, prior, entity.SessionEndSuperseded, actor); err != nil {
			return nil, err
		}
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &entity.SigningSession{
		Id:          uuid.New(),
		DocumentId:  doc.Id,
		RecipientId: recipientId,
		TokenHash:   HashToken(token),
		ExpiresAt:   now.Add(ttl),
		CurrentPage: 1,
		Status:      entity.SessionStatusActive,
		CreatedAt:   now,
	}
	if err := repo.Create(ctx, session); err != nil {
		return nil, err
	}

	if _, err := s.audit.Record(ctx, uow, doc.Id, actor, AuditEntry{
		Action: entity.AuditSessionIssued,
		Details: map[entity.DetailKey]string{
			entity.DetailSessionId:   session.Id.String(),
			entity.DetailRecipientId: recipientId.String(),
			entity.DetailExpiresAt:   session.ExpiresAt.Format(time.RFC3339),
		},
	}); err != nil {
		return nil, err
	}

	// A rolled back issue leaves a dangling hint; Lookup falls through to
	// storage and reports the token as unknown.
	s.index.Save(session.TokenHash, session.Id, session.ExpiresAt, now)

	return &IssuedSession{Session: session, Token: token}, nil
}

func (s *sessionService) Lookup(ctx context.Context, uow unitofwork.UnitOfWork, token string) (*entity.SigningSession, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrSessionUnknown
	}
	hash := HashToken(token)
	repo := uow.SigningSessionRepository()

	if id, ok := s.index.Get(hash); ok {
		session, err := repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if session != nil && session.TokenHash == hash {
			return session, nil
		}
		s.index.Delete(hash)
	}

	session, err := repo.FindByTokenHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionUnknown
	}
	return session, nil
}

// Validate is the standalone check. An active session past its expiry is
// moved to expired under the document lock, exactly once.
func (s *sessionService) Validate(ctx context.Context, token string) (*entity.SigningSession, error) {
	session, err := s.Lookup(ctx, s.uowFactory.NewUnitOfWork(ctx), token)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case entity.SessionStatusCompleted:
		return nil, ErrSessionClosed
	case entity.SessionStatusExpired:
		return nil, ErrSessionExpired
	}
	if !session.ExpiredAt(s.clock.Now()) {
		return session, nil
	}

	unlock, err := s.locker.Lock(ctx, lock.EntityKey(session.DocumentId))
	if err != nil {
		return nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	current, err := uow.SigningSessionRepository().FindByID(ctx, session.Id)
	if err != nil {
		return nil, err
	}
	if current != nil && current.Status == entity.SessionStatusActive {
		if err := s.Expire(ctx, uow, current, entity.SessionEndTimeout, entity.SystemActor()); err != nil {
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			return nil, err
		}
	}
	return nil, ErrSessionExpired
}

func (s *sessionService) end(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.SigningSession, status entity.SessionStatus, reason string, actor entity.Actor) error {
	if session.Status != entity.SessionStatusActive {
		return nil
	}
	now := s.clock.Now()
	session.Status = status
	session.EndReason = reason
	session.EndedAt = &now
	if err := uow.SigningSessionRepository().Update(ctx, session); err != nil {
		return err
	}
	s.index.Delete(session.TokenHash)

	entry := AuditEntry{
		Action: entity.AuditSessionCompleted,
		Details: map[entity.DetailKey]string{
			entity.DetailSessionId:   session.Id.String(),
			entity.DetailRecipientId: session.RecipientId.String(),
		},
	}
	if status == entity.SessionStatusExpired {
		entry.Action = entity.AuditSessionExpired
		entry.Details[entity.DetailReason] = reason
	}
	_, err := s.audit.Record(ctx, uow, session.DocumentId, actor, entry)
	return err
}

func (s *sessionService) Expire(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.SigningSession, reason string, actor entity.Actor) error {
	return s.end(ctx, uow, session, entity.SessionStatusExpired, reason, actor)
}

func (s *sessionService) Complete(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.SigningSession, reason string, actor entity.Actor) error {
	return s.end(ctx, uow, session, entity.SessionStatusCompleted, reason, actor)
}

func (s *sessionService) ExpireForDocument(ctx context.Context, uow unitofwork.UnitOfWork, documentId uuid.UUID, reason string, actor entity.Actor) error {
	sessions, err := uow.SigningSessionRepository().FindActiveByDocument(ctx, documentId)
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if err := s.Expire(ctx, uow, session, reason, actor); err != nil {
			return err
		}
	}
	return nil
}

// RecordFieldCompletion writes value into doc (the caller persists doc) and
// records the field on the session. It reports whether the session reached
// completed, in which case the caller must advance the recipient.
func (s *sessionService) RecordFieldCompletion(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, session *entity.SigningSession, fieldId uuid.UUID, value string, actor entity.Actor) (bool, error) {
	if session.Status != entity.SessionStatusActive {
		return false, ErrSessionClosed
	}

	field := doc.Field(fieldId)
	if field == nil {
		return false, ErrUnknownField
	}
	if field.RecipientId != session.RecipientId {
		return false, ErrFieldNotAssignedToRecipient
	}
	if field.IsSet() {
		return false, ErrFieldAlreadySet
	}
	if err := validateFieldValue(field, value); err != nil {
		return false, err
	}

	now := s.clock.Now()
	v := value
	field.Value = &v
	field.FilledAt = &now

	session.CompletedFieldIds = append(session.CompletedFieldIds, fieldId)
	completed := doc.RequiredFieldsFilled(session.RecipientId) && hasRequiredFields(doc, session.RecipientId)
	if completed {
		session.Status = entity.SessionStatusCompleted
		session.EndReason = entity.SessionEndFieldsCompleted
		session.EndedAt = &now
	}
	if err := uow.SigningSessionRepository().Update(ctx, session); err != nil {
		return false, err
	}

	if _, err := s.audit.Record(ctx, uow, doc.Id, actor, AuditEntry{
		Action: entity.AuditFieldCompleted,
		Details: map[entity.DetailKey]string{
			entity.DetailFieldId:     fieldId.String(),
			entity.DetailRecipientId: session.RecipientId.String(),
			entity.DetailSessionId:   session.Id.String(),
		},
	}); err != nil {
		return false, err
	}

	if completed {
		s.index.Delete(session.TokenHash)
		if _, err := s.audit.Record(ctx, uow, doc.Id, actor, AuditEntry{
			Action: entity.AuditSessionCompleted,
			Details: map[entity.DetailKey]string{
				entity.DetailSessionId:   session.Id.String(),
				entity.DetailRecipientId: session.RecipientId.String(),
			},
		}); err != nil {
			return false, err
		}
	}
	return completed, nil
}

func hasRequiredFields(doc *entity.SignatureDocument, recipientId uuid.UUID) bool {
	for _, f := range doc.Fields {
		if f.RecipientId == recipientId && f.Required {
			return true
		}
	}
	return false
}

func validateFieldValue(field *entity.SignatureField, value string) error {
	if strings.TrimSpace(value) == "" {
		return ErrInvalidFieldValue
	}
	if !field.Type.IsChoice() {
		return nil
	}
	if len(field.Options) == 0 {
		// Plain checkbox.
		if value == "true" || value == "false" {
			return nil
		}
		return ErrInvalidFieldValue
	}
	if !slices.Contains(field.Options, value) {
		return ErrInvalidFieldValue
	}
	return nil
}

func (s *sessionService) UpdateCursor(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, session *entity.SigningSession, page int, actor entity.Actor) error {
	if session.Status != entity.SessionStatusActive {
		return ErrSessionClosed
	}
	if page < 1 || page > doc.PageCount {
		return ErrInvalidPage
	}
	if session.CurrentPage == page {
		return nil
	}

	session.CurrentPage = page
	if err := uow.SigningSessionRepository().Update(ctx, session); err != nil {
		return err
	}
	_, err := s.audit.Record(ctx, uow, doc.Id, actor, AuditEntry{
		Action: entity.AuditSessionPageViewed,
		Details: map[entity.DetailKey]string{
			entity.DetailSessionId: session.Id.String(),
			entity.DetailPage:      strconv.Itoa(page),
		},
	})
	return err
}

// VerifyAccessCode only gates access_code recipients. sms and
// id_verification are delivered like email.
func (s *sessionService) VerifyAccessCode(recipient *entity.SignatureRecipient, code string) error {
	if recipient.AuthMethod != entity.AuthAccessCode {
		return nil
	}
	if code == "" || recipient.AccessCodeHash == "" {
		return ErrAccessCodeInvalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(recipient.AccessCodeHash), []byte(code)); err != nil {
		return ErrAccessCodeInvalid
	}
	return nil
}
