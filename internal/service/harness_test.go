package service

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"contract-review-be/internal/dto"
	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/logger"
	"contract-review-be/internal/repository/memory"
	"contract-review-be/pkg/analysis"
	"contract-review-be/pkg/clock"
	"contract-review-be/pkg/lock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu       sync.Mutex
	eligible []RecipientEligibleNotice
	terminal []DocumentTerminalNotice
}

func (n *recordingNotifier) RecipientEligible(ctx context.Context, notice RecipientEligibleNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.eligible = append(n.eligible, notice)
}

func (n *recordingNotifier) DocumentTerminal(ctx context.Context, notice DocumentTerminalNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.terminal = append(n.terminal, notice)
}

// tokenFor returns the raw token from the latest access link sent to the
// recipient.
func (n *recordingNotifier) tokenFor(t *testing.T, recipientId uuid.UUID) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.eligible) - 1; i >= 0; i-- {
		if n.eligible[i].RecipientId != recipientId {
			continue
		}
		u, err := url.Parse(n.eligible[i].AccessLink)
		require.NoError(t, err)
		return u.Query().Get("token")
	}
	t.Fatalf("no access link for recipient %s", recipientId)
	return ""
}

func (n *recordingNotifier) eligibleIds() []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []uuid.UUID
	for _, e := range n.eligible {
		out = append(out, e.RecipientId)
	}
	return out
}

func (n *recordingNotifier) terminalCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.terminal)
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	result *analysis.Result
	err    error
	calls  int
	// gate, when set, blocks Analyze until it is closed or ctx ends.
	gate    chan struct{}
	started chan struct{}
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	a.mu.Lock()
	a.calls++
	gate, started := a.gate, a.started
	res, err := a.result, a.err
	a.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, analysis.ErrUnavailable
		}
	}
	return res, err
}

func (a *fakeAnalyzer) set(res *analysis.Result, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result, a.err = res, err
}

type harness struct {
	store     *memory.Store
	locker    *lock.MemoryLocker
	clock     *clock.Fake
	notifier  *recordingNotifier
	analyzer  *fakeAnalyzer
	audit     IAuditService
	sessions  ISessionService
	lifecycle ILifecycleService
	analysis  IAnalysisService
	recs      IRecommendationService
	contracts IContractService
	owner     entity.Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	factory := memory.NewRepositoryFactory(store)
	locker := lock.NewMemoryLocker()
	clk := clock.NewFake(epoch)
	log := logger.NewNopLogger()

	h := &harness{
		store:    store,
		locker:   locker,
		clock:    clk,
		notifier: &recordingNotifier{},
		analyzer: &fakeAnalyzer{result: &analysis.Result{}},
		owner:    entity.UserActor(uuid.New(), entity.Origin{IPAddress: "203.0.113.7", Client: "test"}),
	}
	h.audit = NewAuditService(factory, locker, clk, log)
	h.sessions = NewSessionService(factory, locker, clk, h.audit, memory.NewSessionTokenIndex(time.Hour))
	h.lifecycle = NewLifecycleService(factory, locker, clk, h.audit, h.sessions, h.notifier, log, LifecycleOptions{
		SessionTTL:     72 * time.Hour,
		DocumentTTL:    30 * 24 * time.Hour,
		AccessLinkBase: "https://app.example.com",
		SweepBatchSize: 50,
	})
	h.analysis = NewAnalysisService(factory, locker, clk, h.audit, h.analyzer, log, AnalysisOptions{
		Timeout:    5 * time.Second,
		StaleAfter: 10 * time.Minute,
	})
	h.recs = NewRecommendationService(factory, locker, clk, h.audit, log, time.Second)
	h.contracts = NewContractService(factory, locker, clk, h.audit)
	return h
}

func signer(email string, order int) dto.RecipientInput {
	return dto.RecipientInput{
		Email:      email,
		Name:       email,
		Role:       string(entity.RoleSigner),
		AuthMethod: string(entity.AuthEmail),
		Order:      order,
	}
}

func signatureField(page int, required bool) dto.FieldInput {
	return dto.FieldInput{
		Type:     string(entity.FieldTypeSignature),
		X:        10,
		Y:        20,
		Width:    120,
		Height:   40,
		Page:     page,
		Required: required,
	}
}

func (h *harness) draft(t *testing.T, routing entity.RoutingMode, recipients ...dto.RecipientInput) *entity.SignatureDocument {
	t.Helper()
	doc, err := h.lifecycle.CreateDocument(context.Background(), h.owner, &dto.CreateDocumentRequest{
		Title:      "Master Services Agreement",
		ContentRef: "s3://contracts/msa.pdf",
		PageCount:  3,
		Routing:    string(routing),
		Recipients: recipients,
	})
	require.NoError(t, err)
	return doc
}

func (h *harness) sent(t *testing.T, routing entity.RoutingMode, recipients ...dto.RecipientInput) *entity.SignatureDocument {
	t.Helper()
	doc := h.draft(t, routing, recipients...)
	doc, err := h.lifecycle.Send(context.Background(), h.owner, doc.Id)
	require.NoError(t, err)
	return doc
}

func recipientByEmail(t *testing.T, doc *entity.SignatureDocument, email string) entity.SignatureRecipient {
	t.Helper()
	for _, r := range doc.Recipients {
		if r.Email == email {
			return r
		}
	}
	t.Fatalf("no recipient %s", email)
	return entity.SignatureRecipient{}
}

func (h *harness) document(t *testing.T, id uuid.UUID) *entity.SignatureDocument {
	t.Helper()
	doc, err := h.lifecycle.GetDocument(context.Background(), h.owner, id)
	require.NoError(t, err)
	return doc
}

func actions(events []entity.AuditEvent) []entity.AuditAction {
	out := make([]entity.AuditAction, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}
