// Package signature decides which recipients of a signature document may act
// and how recipient progress rolls up into the document status. Everything
// here is a pure function of the document value; persistence, sessions and
// notifications belong to the lifecycle service.
package signature

import (
	"time"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/apperror"

	"github.com/google/uuid"
)

var (
	ErrNotEligible        = apperror.New(apperror.KindValidation, "ROUTER_NOT_ELIGIBLE", "recipient is not currently eligible to act")
	ErrTerminalDocument   = apperror.New(apperror.KindConflict, "ROUTER_TERMINAL_DOCUMENT", "document is already completed, declined or expired")
	ErrDocumentNotOpen    = apperror.New(apperror.KindValidation, "ROUTER_DOCUMENT_NOT_OPEN", "document has not been sent")
	ErrInvalidTransition  = apperror.New(apperror.KindValidation, "ROUTER_INVALID_TRANSITION", "recipient status transition is not allowed")
	ErrUnknownRecipient   = apperror.New(apperror.KindNotFound, "ROUTER_UNKNOWN_RECIPIENT", "recipient does not belong to this document")
	ErrRequiredFieldsOpen = apperror.New(apperror.KindValidation, "ROUTER_REQUIRED_FIELDS_OPEN", "recipient still has required fields without a value")
)

// StatusDelta describes the effect of one Advance call. The document status
// is reported, not written: the lifecycle service owns that field.
type StatusDelta struct {
	RecipientId   uuid.UUID
	RecipientFrom entity.RecipientStatus
	RecipientTo   entity.RecipientStatus
	DocumentFrom  entity.DocumentStatus
	DocumentTo    entity.DocumentStatus
	CompletedAt   *time.Time
	NewlyEligible []uuid.UUID
}

func (d StatusDelta) DocumentChanged() bool {
	return d.DocumentFrom != d.DocumentTo
}

// EligibleRecipients returns the recipients that may act now, in routing
// order.
func EligibleRecipients(doc *entity.SignatureDocument) []uuid.UUID {
	if doc.Status.IsTerminal() {
		return nil
	}
	return eligible(doc)
}

func eligible(doc *entity.SignatureDocument) []uuid.UUID {
	ordered := doc.RecipientsByOrder()

	for _, r := range ordered {
		if r.Status == entity.RecipientStatusDeclined {
			return nil
		}
	}

	var out []uuid.UUID
	if doc.Routing == entity.RoutingParallel {
		for _, r := range ordered {
			if r.Status == entity.RecipientStatusPending {
				out = append(out, r.Id)
			}
		}
		return out
	}

	blocked := false
	for _, r := range ordered {
		if !r.Role.RequiresAction() {
			if r.Status == entity.RecipientStatusPending {
				out = append(out, r.Id)
			}
			continue
		}
		if blocked {
			continue
		}
		switch {
		case r.Status == entity.RecipientStatusPending:
			out = append(out, r.Id)
			blocked = true
		case !r.Status.IsSettled():
			blocked = true
		}
	}
	return out
}

// IsEligible reports whether recipientId is in the current eligible set.
func IsEligible(doc *entity.SignatureDocument, recipientId uuid.UUID) bool {
	for _, id := range EligibleRecipients(doc) {
		if id == recipientId {
			return true
		}
	}
	return false
}

// ComputeStatus derives the document status from recipient statuses for an
// open document. Draft and terminal documents are returned unchanged.
func ComputeStatus(doc *entity.SignatureDocument) entity.DocumentStatus {
	if !doc.Status.IsOpen() {
		return doc.Status
	}

	acting := 0
	completed := 0
	progressed := false
	for _, r := range doc.Recipients {
		if r.Status == entity.RecipientStatusDeclined {
			return entity.DocumentStatusDeclined
		}
		if r.Status != entity.RecipientStatusPending {
			progressed = true
		}
		if r.Role.RequiresAction() {
			acting++
			if r.Status == entity.RecipientStatusCompleted {
				completed++
			}
		}
	}

	if acting > 0 && completed == acting {
		return entity.DocumentStatusCompleted
	}
	if progressed {
		return entity.DocumentStatusInProgress
	}
	return doc.Status
}

// Advance moves one recipient to newStatus on doc and reports the resulting
// document status. doc.Status itself is left untouched.
func Advance(doc *entity.SignatureDocument, recipientId uuid.UUID, newStatus entity.RecipientStatus, now time.Time) (StatusDelta, error) {
	if doc.Status.IsTerminal() {
		return StatusDelta{}, ErrTerminalDocument
	}
	if !doc.Status.IsOpen() {
		return StatusDelta{}, ErrDocumentNotOpen
	}

	r := doc.Recipient(recipientId)
	if r == nil {
		return StatusDelta{}, ErrUnknownRecipient
	}
	if r.Status == entity.RecipientStatusPending && !IsEligible(doc, recipientId) {
		return StatusDelta{}, ErrNotEligible
	}
	if !r.Status.CanTransitionTo(newStatus) {
		return StatusDelta{}, apperror.Wrap(ErrInvalidTransition, "%s -> %s", r.Status, newStatus)
	}
	if newStatus == entity.RecipientStatusCompleted && !doc.RequiredFieldsFilled(recipientId) {
		return StatusDelta{}, ErrRequiredFieldsOpen
	}

	before := make(map[uuid.UUID]bool)
	for _, id := range eligible(doc) {
		before[id] = true
	}

	delta := StatusDelta{
		RecipientId:   recipientId,
		RecipientFrom: r.Status,
		RecipientTo:   newStatus,
		DocumentFrom:  doc.Status,
	}

	t := now
	r.Status = newStatus
	switch newStatus {
	case entity.RecipientStatusViewed:
		r.ViewedAt = &t
	case entity.RecipientStatusSigned:
		r.SignedAt = &t
	case entity.RecipientStatusCompleted:
		r.CompletedAt = &t
	case entity.RecipientStatusDeclined:
		r.DeclinedAt = &t
	}

	delta.DocumentTo = ComputeStatus(doc)
	if delta.DocumentTo == entity.DocumentStatusCompleted {
		delta.CompletedAt = &t
	}
	if !delta.DocumentTo.IsTerminal() {
		for _, id := range eligible(doc) {
			if !before[id] {
				delta.NewlyEligible = append(delta.NewlyEligible, id)
			}
		}
	}
	return delta, nil
}
