package service

import "contract-review-be/internal/pkg/apperror"

var (
	ErrContractNotFound       = apperror.New(apperror.KindNotFound, "CONTRACT_NOT_FOUND", "contract not found")
	ErrEmptyContent           = apperror.New(apperror.KindValidation, "CONTRACT_EMPTY_CONTENT", "contract content is empty")
	ErrAnalysisInProgress     = apperror.New(apperror.KindConflict, "ANALYSIS_IN_PROGRESS", "contract is already being analyzed")
	ErrAnalysisNotRetryable   = apperror.New(apperror.KindValidation, "ANALYSIS_NOT_RETRYABLE", "analysis failed on this content; change the content before retrying")
	ErrAnalysisUnavailable    = apperror.New(apperror.KindCollaborator, "ANALYSIS_UNAVAILABLE", "analysis engine is unavailable, retry later")
	ErrAnalysisInvalidInput   = apperror.New(apperror.KindValidation, "ANALYSIS_INVALID_INPUT", "contract content cannot be analyzed")
	ErrAnalysisSuperseded     = apperror.New(apperror.KindConflict, "ANALYSIS_SUPERSEDED", "analysis run is no longer current")
	ErrContractSnapshot       = apperror.New(apperror.KindConflict, "CONTRACT_SNAPSHOT_CONFLICT", "contract changed while it was being read, retry")
	ErrContractBusy           = apperror.New(apperror.KindConflict, "CONTRACT_BUSY", "contract is being analyzed")
	ErrApplyTimeout           = apperror.New(apperror.KindConflict, "APPLY_TIMEOUT", "contract stayed busy past the apply timeout, retry")
	ErrRecommendationNotFound = apperror.New(apperror.KindNotFound, "RECOMMENDATION_NOT_FOUND", "recommendation not found")
	ErrAlreadyProcessed       = apperror.New(apperror.KindConflict, "RECOMMENDATION_ALREADY_PROCESSED", "recommendation was already accepted or ignored")
	ErrInvalidModification    = apperror.New(apperror.KindValidation, "INVALID_MODIFICATION", "unknown modification type or malformed highlight color")

	ErrDocumentNotFound     = apperror.New(apperror.KindNotFound, "DOCUMENT_NOT_FOUND", "signature document not found")
	ErrTemplateNotFound     = apperror.New(apperror.KindNotFound, "TEMPLATE_NOT_FOUND", "signature template not found")
	ErrDocumentNotDraft     = apperror.New(apperror.KindConflict, "DOCUMENT_NOT_DRAFT", "document is no longer a draft")
	ErrInvalidDocument      = apperror.New(apperror.KindValidation, "DOCUMENT_INVALID", "document definition is invalid")
	ErrNoActingRecipient    = apperror.New(apperror.KindValidation, "DOCUMENT_NO_ACTING_RECIPIENT", "document needs at least one signer or approver")
	ErrDuplicateOrder       = apperror.New(apperror.KindValidation, "DOCUMENT_DUPLICATE_ORDER", "recipient routing orders must be unique")
	ErrUnknownAction        = apperror.New(apperror.KindValidation, "RECIPIENT_UNKNOWN_ACTION", "unknown recipient action")
	ErrActionNotAllowed     = apperror.New(apperror.KindValidation, "RECIPIENT_ACTION_NOT_ALLOWED", "action is not allowed for this recipient role")
	ErrRecipientSettled     = apperror.New(apperror.KindConflict, "RECIPIENT_SETTLED", "recipient has already finished")
	ErrRecipientNotActive   = apperror.New(apperror.KindValidation, "RECIPIENT_NOT_ACTIVE", "recipient has not been activated")
	ErrDocumentExpired      = apperror.New(apperror.KindConflict, "DOCUMENT_EXPIRED", "document expired")
	ErrTemplateSlotMismatch = apperror.New(apperror.KindValidation, "TEMPLATE_SLOT_MISMATCH", "recipients do not match the template roster")

	ErrSessionUnknown              = apperror.New(apperror.KindNotFound, "SESSION_UNKNOWN", "signing session not recognized")
	ErrSessionExpired              = apperror.New(apperror.KindConflict, "SESSION_EXPIRED", "signing session expired")
	ErrSessionClosed               = apperror.New(apperror.KindConflict, "SESSION_CLOSED", "signing session is already completed")
	ErrUnknownField                = apperror.New(apperror.KindNotFound, "FIELD_UNKNOWN", "field does not belong to this document")
	ErrFieldNotAssignedToRecipient = apperror.New(apperror.KindValidation, "FIELD_NOT_ASSIGNED", "field is not assigned to this recipient")
	ErrFieldAlreadySet             = apperror.New(apperror.KindValidation, "FIELD_ALREADY_SET", "field already has a value")
	ErrInvalidFieldValue           = apperror.New(apperror.KindValidation, "FIELD_INVALID_VALUE", "value is not valid for this field")
	ErrInvalidPage                 = apperror.New(apperror.KindValidation, "SESSION_INVALID_PAGE", "page is outside the document")
	ErrAccessCodeInvalid           = apperror.New(apperror.KindUnauthorized, "ACCESS_CODE_INVALID", "access code is missing or wrong")

	ErrUnknownAuditAction    = apperror.New(apperror.KindValidation, "AUDIT_UNKNOWN_ACTION", "audit action is not recognized")
	ErrUnrecognizedDetailKey = apperror.New(apperror.KindValidation, "AUDIT_UNRECOGNIZED_DETAIL_KEY", "audit detail key is not allowed for this action")
	ErrAuditIntegrity        = apperror.New(apperror.KindFatal, "AUDIT_INTEGRITY", "audit trail failed verification")
)
