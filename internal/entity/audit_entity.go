package entity

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditContractCreated           AuditAction = "contract.created"
	AuditContractContentUpdated    AuditAction = "contract.content_updated"
	AuditContractAnalysisStarted   AuditAction = "contract.analysis_started"
	AuditContractAnalysisCompleted AuditAction = "contract.analysis_completed"
	AuditContractAnalysisFailed    AuditAction = "contract.analysis_failed"
	AuditContractAnalysisRecovered AuditAction = "contract.analysis_recovered"
	AuditRecommendationAccepted    AuditAction = "recommendation.accepted"
	AuditRecommendationIgnored     AuditAction = "recommendation.ignored"
	AuditDocumentCreated           AuditAction = "document.created"
	AuditDocumentUpdated           AuditAction = "document.updated"
	AuditDocumentSent              AuditAction = "document.sent"
	AuditDocumentStatusChanged     AuditAction = "document.status_changed"
	AuditRecipientActivated        AuditAction = "recipient.activated"
	AuditRecipientViewed           AuditAction = "recipient.viewed"
	AuditRecipientSigned           AuditAction = "recipient.signed"
	AuditRecipientCompleted        AuditAction = "recipient.completed"
	AuditRecipientDeclined         AuditAction = "recipient.declined"
	AuditSessionIssued             AuditAction = "session.issued"
	AuditSessionExpired            AuditAction = "session.expired"
	AuditSessionCompleted          AuditAction = "session.completed"
	AuditSessionPageViewed         AuditAction = "session.page_viewed"
	AuditFieldCompleted            AuditAction = "field.completed"
)

type DetailKey string

const (
	DetailTitle               DetailKey = "title"
	DetailContentLength       DetailKey = "content_length"
	DetailRunId               DetailKey = "run_id"
	DetailAssessmentCount     DetailKey = "assessment_count"
	DetailRecommendationCount DetailKey = "recommendation_count"
	DetailError               DetailKey = "error"
	DetailRetryable           DetailKey = "retryable"
	DetailReason              DetailKey = "reason"
	DetailRecommendationId    DetailKey = "recommendation_id"
	DetailAppliedId           DetailKey = "applied_id"
	DetailModificationType    DetailKey = "modification_type"
	DetailHighlightColor      DetailKey = "highlight_color"
	DetailTemplateId          DetailKey = "template_id"
	DetailStatusFrom          DetailKey = "status_from"
	DetailStatusTo            DetailKey = "status_to"
	DetailExpiresAt           DetailKey = "expires_at"
	DetailRecipientId         DetailKey = "recipient_id"
	DetailSessionId           DetailKey = "session_id"
	DetailFieldId             DetailKey = "field_id"
	DetailPage                DetailKey = "page"
)

// auditDetailKeys is the closed set of detail keys each action may carry.
var auditDetailKeys = map[AuditAction][]DetailKey{
	AuditContractCreated:           {DetailTitle, DetailContentLength},
	AuditContractContentUpdated:    {DetailContentLength},
	AuditContractAnalysisStarted:   {DetailRunId},
	AuditContractAnalysisCompleted: {DetailRunId, DetailAssessmentCount, DetailRecommendationCount},
	AuditContractAnalysisFailed:    {DetailRunId, DetailError, DetailRetryable},
	AuditContractAnalysisRecovered: {DetailRunId, DetailReason},
	AuditRecommendationAccepted:    {DetailRecommendationId, DetailAppliedId, DetailModificationType, DetailHighlightColor},
	AuditRecommendationIgnored:     {DetailRecommendationId},
	AuditDocumentCreated:           {DetailTitle, DetailTemplateId},
	AuditDocumentUpdated:           {DetailTitle},
	AuditDocumentSent:              {DetailExpiresAt},
	AuditDocumentStatusChanged:     {DetailStatusFrom, DetailStatusTo, DetailReason},
	AuditRecipientActivated:        {DetailRecipientId, DetailSessionId},
	AuditRecipientViewed:           {DetailRecipientId},
	AuditRecipientSigned:           {DetailRecipientId},
	AuditRecipientCompleted:        {DetailRecipientId},
	AuditRecipientDeclined:         {DetailRecipientId, DetailReason},
	AuditSessionIssued:             {DetailSessionId, DetailRecipientId, DetailExpiresAt},
	AuditSessionExpired:            {DetailSessionId, DetailRecipientId, DetailReason},
	AuditSessionCompleted:          {DetailSessionId, DetailRecipientId},
	AuditSessionPageViewed:         {DetailSessionId, DetailPage},
	AuditFieldCompleted:            {DetailFieldId, DetailRecipientId, DetailSessionId},
}

func (a AuditAction) Known() bool {
	_, ok := auditDetailKeys[a]
	return ok
}

func (a AuditAction) AllowsDetail(key DetailKey) bool {
	for _, k := range auditDetailKeys[a] {
		if k == key {
			return true
		}
	}
	return false
}

type ActorKind string

const (
	ActorUser      ActorKind = "user"
	ActorRecipient ActorKind = "recipient"
	ActorSystem    ActorKind = "system"
)

type Origin struct {
	IPAddress string
	Client    string
}

// Actor is the explicit request context every engine operation receives.
type Actor struct {
	Id     uuid.UUID
	Kind   ActorKind
	Origin Origin
}

func SystemActor() Actor {
	return Actor{Kind: ActorSystem}
}

func UserActor(id uuid.UUID, origin Origin) Actor {
	return Actor{Id: id, Kind: ActorUser, Origin: origin}
}

func RecipientActor(id uuid.UUID, origin Origin) Actor {
	return Actor{Id: id, Kind: ActorRecipient, Origin: origin}
}

type AuditEvent struct {
	Id        uuid.UUID
	SubjectId uuid.UUID
	Sequence  int64
	Timestamp time.Time
	Action    AuditAction
	ActorId   *uuid.UUID
	ActorKind ActorKind
	Origin    Origin
	Details   map[DetailKey]string
	PrevHash  string
	Hash      string
}
