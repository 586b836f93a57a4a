package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubsync/issue-ticket-sync/internal/models"
	"github.com/hubsync/issue-ticket-sync/internal/sync"
	"github.com/hubsync/issue-ticket-sync/internal/ticket"
)

type fakeSyncer struct {
	result sync.Result
	seen   []models.IssueEvent
}

func (f *fakeSyncer) Handle(_ context.Context, ev models.IssueEvent) sync.Result {
	f.seen = append(f.seen, ev)
	return f.result
}

func newTestRouter(s *fakeSyncer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterWebhookRoutes(r, s)
	return r
}

func postWebhook(t *testing.T, r *gin.Engine, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest("POST", "/webhooks/github", &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func issuePayload(action string) map[string]any {
	return map[string]any{
		"action": action,
		"issue": map[string]any{
			"number": 42,
			"title":  "Bug X",
			"body":   "...",
			"user":   map[string]any{"login": "octocat"},
		},
		"repository": map[string]any{"full_name": "acme/repo"},
	}
}

func TestWebhook_MapsPayloadToIssueEvent(t *testing.T) {
	s := &fakeSyncer{result: sync.Result{Outcome: sync.OutcomeCreated, TicketID: "T-100"}}
	r := newTestRouter(s)

	w := postWebhook(t, r, issuePayload("opened"), map[string]string{"X-GitHub-Delivery": "d-1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, s.seen, 1)
	ev := s.seen[0]
	assert.Equal(t, "acme/repo#42", ev.IssueID)
	assert.Equal(t, models.ActionOpened, ev.Action)
	assert.Equal(t, "Bug X", ev.Title)
	assert.Equal(t, "octocat", ev.User)

	var resp models.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "d-1", resp.DeliveryID)
	assert.Equal(t, "created", resp.Outcome)
	assert.Equal(t, "T-100", resp.TicketID)
}

func TestWebhook_GeneratesDeliveryIDWhenHeaderMissing(t *testing.T) {
	s := &fakeSyncer{result: sync.Result{Outcome: sync.OutcomeCreated, TicketID: "T-1"}}
	r := newTestRouter(s)

	w := postWebhook(t, r, issuePayload("opened"), nil)

	var resp models.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.DeliveryID)
}

func TestWebhook_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		result sync.Result
		status int
	}{
		{"created", sync.Result{Outcome: sync.OutcomeCreated, TicketID: "T-1"}, http.StatusCreated},
		{"closed", sync.Result{Outcome: sync.OutcomeClosed, TicketID: "T-1"}, http.StatusOK},
		{"reopened", sync.Result{Outcome: sync.OutcomeReopened, TicketID: "T-1"}, http.StatusOK},
		{"duplicate skip", sync.Result{Outcome: sync.OutcomeSkippedDuplicate, Reason: "dup"}, http.StatusOK},
		{"no correlation skip", sync.Result{Outcome: sync.OutcomeSkippedNoCorrelation, Reason: "none"}, http.StatusOK},
		{"ignored action", sync.Result{Outcome: sync.OutcomeSkippedIgnored, Reason: "edited"}, http.StatusOK},
		{
			"transient failure",
			sync.Result{Outcome: sync.OutcomeFailed, Err: &ticket.APIError{Kind: ticket.KindRateLimit, StatusCode: 429}},
			http.StatusServiceUnavailable,
		},
		{
			"permanent failure",
			sync.Result{Outcome: sync.OutcomeFailed, Err: &ticket.APIError{Kind: ticket.KindAuth, StatusCode: 401}},
			http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&fakeSyncer{result: tc.result})
			w := postWebhook(t, r, issuePayload("opened"), nil)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestWebhook_RejectsInvalidPayloads(t *testing.T) {
	s := &fakeSyncer{}
	r := newTestRouter(s)

	// Missing action.
	payload := issuePayload("")
	w := postWebhook(t, r, payload, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing repository.
	payload = issuePayload("opened")
	payload["repository"] = map[string]any{}
	w = postWebhook(t, r, payload, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Not JSON at all.
	req := httptest.NewRequest("POST", "/webhooks/github", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, s.seen, "invalid payloads never reach the engine")
}
