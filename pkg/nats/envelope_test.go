package nats

import (
	"testing"
	"time"

	"contract-review-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	in := events.BaseEvent{
		Type: events.SignatureDocumentTerminal,
		Data: map[string]interface{}{
			"document_id":      "2f1c",
			"status":           "completed",
			"recipient_emails": []interface{}{"a@example.com"},
		},
		OccurredAt: time.Date(2026, 3, 2, 9, 0, 0, 123456789, time.FixedZone("CET", 3600)),
	}

	raw, err := encodeEnvelope(in)
	require.NoError(t, err)

	out, err := decodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, in.Type, out.EventType())
	assert.True(t, in.OccurredAt.Equal(out.Timestamp()))
	assert.Equal(t, "completed", events.StringField(out, "status"))
	assert.Equal(t, []interface{}{"a@example.com"}, out.Payload()["recipient_emails"])
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	_, err := decodeEnvelope([]byte("not json"))
	assert.Error(t, err)

	_, err = decodeEnvelope([]byte(`{"data":{}}`))
	assert.Error(t, err)
}
