package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SIGNATURE_DOCUMENT_TERMINAL").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	SignatureRecipientEligible = "SIGNATURE_RECIPIENT_ELIGIBLE"
	SignatureDocumentTerminal  = "SIGNATURE_DOCUMENT_TERMINAL"
	ContractAnalysisFinished   = "CONTRACT_ANALYSIS_FINISHED"
)

// BaseEvent is the only Event implementation; payload keys are documented
// next to the constructors that build them.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// StringField reads a string payload value, tolerating absent keys.
func StringField(e Event, key string) string {
	v, _ := e.Payload()[key].(string)
	return v
}
