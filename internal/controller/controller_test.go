package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"contract-review-be/internal/dto"
	"contract-review-be/internal/pkg/logger"
	"contract-review-be/internal/pkg/serverutils"
	"contract-review-be/internal/repository/memory"
	"contract-review-be/internal/service"
	"contract-review-be/pkg/clock"
	"contract-review-be/pkg/lock"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type linkRecorder struct {
	mu    sync.Mutex
	links map[uuid.UUID]string
}

func (r *linkRecorder) RecipientEligible(ctx context.Context, n service.RecipientEligibleNotice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[n.RecipientId] = n.AccessLink
}

func (r *linkRecorder) DocumentTerminal(ctx context.Context, n service.DocumentTerminalNotice) {}

func (r *linkRecorder) token(t *testing.T, recipientId uuid.UUID) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := url.Parse(r.links[recipientId])
	require.NoError(t, err)
	return u.Query().Get("token")
}

func newTestApp(t *testing.T) (*fiber.App, *linkRecorder) {
	t.Helper()

	factory := memory.NewRepositoryFactory(memory.NewStore())
	locker := lock.NewMemoryLocker()
	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	log := logger.NewNopLogger()
	links := &linkRecorder{links: map[uuid.UUID]string{}}

	audit := service.NewAuditService(factory, locker, clk, log)
	sessions := service.NewSessionService(factory, locker, clk, audit, memory.NewSessionTokenIndex(time.Hour))
	lifecycle := service.NewLifecycleService(factory, locker, clk, audit, sessions, links, log, service.LifecycleOptions{
		SessionTTL:     72 * time.Hour,
		DocumentTTL:    30 * 24 * time.Hour,
		AccessLinkBase: "https://app.example.com",
		SweepBatchSize: 10,
	})
	contracts := service.NewContractService(factory, locker, clk, audit)
	recs := service.NewRecommendationService(factory, locker, clk, audit, log, time.Second)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	jobs := service.NewAnalysisJobPublisher(pubSub, "analysis")

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(log))
	api := app.Group("/api")
	NewContractController(contracts, jobs, testSecret).RegisterRoutes(api)
	NewRecommendationController(recs, testSecret).RegisterRoutes(api)
	NewSignatureController(lifecycle, testSecret).RegisterRoutes(api)
	NewSigningController(lifecycle).RegisterRoutes(api)

	return app, links
}

func bearer(t *testing.T, userId uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func call(t *testing.T, app *fiber.App, method, path, auth string, body any, headers ...string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var res serverutils.Response[T]
	require.NoError(t, json.Unmarshal(raw, &res))
	require.True(t, res.Success)
	return res.Data
}

func draftBody() dto.CreateDocumentRequest {
	return dto.CreateDocumentRequest{
		Title:      "NDA",
		ContentRef: "s3://docs/nda.pdf",
		PageCount:  2,
		Routing:    "sequential",
		Recipients: []dto.RecipientInput{{
			Email:      "jane@example.com",
			Name:       "Jane",
			Role:       "signer",
			AuthMethod: "access_code",
			AccessCode: "4821",
			Order:      1,
			Fields: []dto.FieldInput{{
				Type: "signature", X: 10, Y: 10, Width: 100, Height: 30, Page: 2, Required: true,
			}},
		}},
	}
}

func TestSigningOverHTTP(t *testing.T) {
	app, links := newTestApp(t)
	owner := bearer(t, uuid.New())

	status, raw := call(t, app, http.MethodPost, "/api/signature/v1/documents", owner, draftBody())
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	doc := decode[dto.DocumentResponse](t, raw)
	assert.Equal(t, "draft", doc.Status)
	require.Len(t, doc.Recipients, 1)
	require.Len(t, doc.Fields, 1)

	status, raw = call(t, app, http.MethodPost, "/api/signature/v1/documents/"+doc.Id.String()+"/send", owner, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	assert.Equal(t, "sent", decode[dto.DocumentResponse](t, raw).Status)

	token := links.token(t, doc.Recipients[0].Id)
	require.NotEmpty(t, token)
	base := "/api/signing/v1/" + token

	status, _ = call(t, app, http.MethodPost, base+"/open", "", nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, raw = call(t, app, http.MethodPost, base+"/open", "", dto.OpenSessionRequest{AccessCode: "4821"})
	require.Equal(t, fiber.StatusOK, status, string(raw))
	session := decode[dto.SigningSessionResponse](t, raw)
	assert.Equal(t, "viewed", session.Recipient.Status)

	status, raw = call(t, app, http.MethodPost, base+"/sign", "", nil, accessCodeHeader, "4821")
	assert.Equal(t, fiber.StatusBadRequest, status, string(raw))

	fieldPath := base + "/fields/" + doc.Fields[0].Id.String()
	status, raw = call(t, app, http.MethodPut, fieldPath, "", dto.CompleteFieldRequest{Value: "Jane"}, accessCodeHeader, "4821")
	require.Equal(t, fiber.StatusOK, status, string(raw))
	// Filling the last required field signs for the recipient.
	session = decode[dto.SigningSessionResponse](t, raw)
	assert.Equal(t, []uuid.UUID{doc.Fields[0].Id}, session.CompletedFieldIds)
	assert.Equal(t, "completed", session.Status)
	assert.Equal(t, "completed", session.Recipient.Status)
	assert.Equal(t, "completed", session.Document.Status)

	status, raw = call(t, app, http.MethodPost, base+"/sign", "", nil, accessCodeHeader, "4821")
	assert.Equal(t, fiber.StatusConflict, status)
	var closed serverutils.ErrorBody
	require.NoError(t, json.Unmarshal(raw, &closed))
	assert.Equal(t, "SESSION_CLOSED", closed.ErrorCode)

	status, raw = call(t, app, http.MethodGet, "/api/signature/v1/documents/"+doc.Id.String()+"/audit", owner, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	trail := decode[[]dto.AuditEventResponse](t, raw)
	require.NotEmpty(t, trail)
	assert.Equal(t, "document.created", trail[0].Action)
	var actions []string
	for _, e := range trail {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, "recipient.signed")
}

func TestOwnerRoutes(t *testing.T) {
	app, _ := newTestApp(t)
	owner := bearer(t, uuid.New())

	status, _ := call(t, app, http.MethodGet, "/api/signature/v1/documents", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	bad := draftBody()
	bad.Title = ""
	status, raw := call(t, app, http.MethodPost, "/api/signature/v1/documents", owner, bad)
	assert.Equal(t, fiber.StatusBadRequest, status)
	var body serverutils.ErrorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "VALIDATION_FAILED", body.ErrorCode)

	status, raw = call(t, app, http.MethodPost, "/api/signature/v1/documents", owner, draftBody())
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	doc := decode[dto.DocumentResponse](t, raw)

	status, _ = call(t, app, http.MethodGet, "/api/signature/v1/documents/"+doc.Id.String(), bearer(t, uuid.New()), nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = call(t, app, http.MethodGet, "/api/signature/v1/documents/not-a-uuid", owner, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodGet, "/api/signature/v1/documents/"+uuid.NewString(), owner, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = call(t, app, http.MethodPost, "/api/signing/v1/unknown-token/open", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestContractRoutes(t *testing.T) {
	app, _ := newTestApp(t)
	owner := bearer(t, uuid.New())

	status, raw := call(t, app, http.MethodPost, "/api/contract/v1", owner, dto.CreateContractRequest{
		Title:   "Supply Agreement",
		Content: "1. Term\nThe agreement runs for two years.",
	})
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	contract := decode[dto.ContractResponse](t, raw)
	assert.Equal(t, "pending", contract.AnalysisStatus)
	assert.Equal(t, "en", contract.Language)

	status, raw = call(t, app, http.MethodPost, "/api/contract/v1/"+contract.Id.String()+"/analyze", owner, nil)
	require.Equal(t, fiber.StatusAccepted, status, string(raw))
	assert.Equal(t, "queued", decode[dto.AnalysisQueuedResponse](t, raw).Status)

	status, _ = call(t, app, http.MethodPost, "/api/contract/v1/"+contract.Id.String()+"/analyze", bearer(t, uuid.New()), nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, raw = call(t, app, http.MethodGet, "/api/contract/v1/"+contract.Id.String(), owner, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	detail := decode[dto.ContractDetailResponse](t, raw)
	assert.Empty(t, detail.RiskAssessments)

	status, _ = call(t, app, http.MethodPost, "/api/recommendation/v1/"+uuid.NewString()+"/apply", owner, dto.ApplyRecommendationRequest{
		ModificationType: "tracked_changes",
	})
	assert.Equal(t, fiber.StatusNotFound, status)
}
