// Package auditchain links audit events into a tamper-evident sequence.
// Each event's hash covers its canonical JSON form and the previous hash,
// so a gap, reorder or edit anywhere breaks verification from that point on.
package auditchain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"contract-review-be/internal/entity"
)

var (
	ErrSequenceGap  = errors.New("audit sequence is not contiguous")
	ErrChainBroken  = errors.New("audit hash chain is broken")
	ErrHashMismatch = errors.New("audit event hash does not match its content")
)

type canonicalEvent struct {
	SubjectId string            `json:"subject_id"`
	Sequence  int64             `json:"sequence"`
	Timestamp string            `json:"timestamp"`
	Action    string            `json:"action"`
	ActorId   string            `json:"actor_id"`
	ActorKind string            `json:"actor_kind"`
	IPAddress string            `json:"ip_address"`
	Client    string            `json:"client"`
	Details   map[string]string `json:"details"`
	PrevHash  string            `json:"prev_hash"`
}

// Precision is the timestamp resolution covered by the hash. It matches
// what Postgres timestamptz round-trips.
const Precision = time.Microsecond

// Hash computes the SHA-256 over the canonical encoding of e. json.Marshal
// sorts map keys, which keeps the details encoding stable.
func Hash(e entity.AuditEvent) (string, error) {
	c := canonicalEvent{
		SubjectId: e.SubjectId.String(),
		Sequence:  e.Sequence,
		Timestamp: e.Timestamp.UTC().Truncate(Precision).Format(time.RFC3339Nano),
		Action:    string(e.Action),
		ActorKind: string(e.ActorKind),
		IPAddress: e.Origin.IPAddress,
		Client:    e.Origin.Client,
		Details:   make(map[string]string, len(e.Details)),
		PrevHash:  e.PrevHash,
	}
	if e.ActorId != nil {
		c.ActorId = e.ActorId.String()
	}
	for k, v := range e.Details {
		c.Details[string(k)] = v
	}

	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Seal sets PrevHash and Hash on e as the successor of prev (nil for the
// first event of a subject).
func Seal(e *entity.AuditEvent, prev *entity.AuditEvent) error {
	e.PrevHash = ""
	if prev != nil {
		e.PrevHash = prev.Hash
	}
	h, err := Hash(*e)
	if err != nil {
		return err
	}
	e.Hash = h
	return nil
}

// Verify checks that events form the complete chain 1..n of one subject.
func Verify(events []entity.AuditEvent) error {
	prevHash := ""
	for i, e := range events {
		want := int64(i + 1)
		if e.Sequence != want {
			return fmt.Errorf("%w: expected sequence %d, found %d", ErrSequenceGap, want, e.Sequence)
		}
		if e.PrevHash != prevHash {
			return fmt.Errorf("%w at sequence %d", ErrChainBroken, e.Sequence)
		}
		h, err := Hash(e)
		if err != nil {
			return err
		}
		if h != e.Hash {
			return fmt.Errorf("%w at sequence %d", ErrHashMismatch, e.Sequence)
		}
		prevHash = e.Hash
	}
	return nil
}
