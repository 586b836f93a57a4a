package ticket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HubSpot v3 pipeline constants. The support pipeline and its stages are
// identified by internal ids; stage 1 is "New", stage 4 is "Closed"
// (Settings > Tickets shows the ids behind the stage names).
const (
	supportPipeline  = "0"
	stageNew         = "1"
	stageClosed      = "4"
	defaultPriority  = "LOW"
	ticketsEndpoint  = "objects/tickets"
	contactsEndpoint = "objects/contacts"
	assocEndpoint    = "associations/ticket/contact/batch/create"
)

// ContactProperties carries the CRM contact fields derived from a reporter's
// public profile. Empty fields are omitted from the API payload.
type ContactProperties struct {
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Email     string `json:"email,omitempty"`
	Website   string `json:"website,omitempty"`
	Company   string `json:"company,omitempty"`
}

// HubSpotClient calls the HubSpot CRM v3 API with a bearer token, a bounded
// http.Client, and a client-side rate limiter. It is safe for concurrent use.
type HubSpotClient struct {
	baseURL string
	token   string
	httpc   *http.Client
	limiter *rate.Limiter
}

// NewHubSpotClient builds a client for the given API base (the ".../crm/v3/"
// prefix) and private-app token.
func NewHubSpotClient(baseURL, token string, timeout time.Duration) *HubSpotClient {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &HubSpotClient{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10), // HubSpot allows ~10 req/s
	}
}

// CreateTicket opens a new support ticket and returns its id.
func (c *HubSpotClient) CreateTicket(ctx context.Context, title, body string) (string, error) {
	payload := map[string]any{
		"properties": map[string]any{
			"subject":            title,
			"content":            body,
			"hs_pipeline":        supportPipeline,
			"hs_pipeline_stage":  stageNew,
			"hs_ticket_priority": defaultPriority,
		},
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, ticketsEndpoint, payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &APIError{Kind: KindValidation, Detail: "create response missing ticket id"}
	}
	return resp.ID, nil
}

// CloseTicket moves a ticket to the closed stage. HubSpot has no dedicated
// close call; "closed" is just a pipeline stage.
func (c *HubSpotClient) CloseTicket(ctx context.Context, ticketID string) error {
	return c.patchStage(ctx, ticketID, stageClosed)
}

// ReopenTicket moves a ticket back to the new stage.
func (c *HubSpotClient) ReopenTicket(ctx context.Context, ticketID string) error {
	return c.patchStage(ctx, ticketID, stageNew)
}

func (c *HubSpotClient) patchStage(ctx context.Context, ticketID, stage string) error {
	payload := map[string]any{
		"properties": map[string]any{"hs_pipeline_stage": stage},
	}
	return c.do(ctx, http.MethodPatch, ticketsEndpoint+"/"+ticketID, payload, nil)
}

// ArchiveTicket removes a ticket. Used only to compensate when a concurrent
// duplicate delivery created a ticket that lost the correlation race.
func (c *HubSpotClient) ArchiveTicket(ctx context.Context, ticketID string) error {
	return c.do(ctx, http.MethodDelete, ticketsEndpoint+"/"+ticketID, nil, nil)
}

// CreateContact creates a CRM contact and returns its id.
func (c *HubSpotClient) CreateContact(ctx context.Context, props ContactProperties) (string, error) {
	payload := map[string]any{"properties": props}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, contactsEndpoint, payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &APIError{Kind: KindValidation, Detail: "create response missing contact id"}
	}
	return resp.ID, nil
}

// AssociateTicketContact links a ticket to a contact via the batch
// associations endpoint.
func (c *HubSpotClient) AssociateTicketContact(ctx context.Context, ticketID, contactID string) error {
	payload := map[string]any{
		"inputs": []map[string]any{
			{
				"from": map[string]string{"id": ticketID},
				"to":   map[string]string{"id": contactID},
				"type": "ticket_to_contact",
			},
		},
	}
	return c.do(ctx, http.MethodPost, assocEndpoint, payload, nil)
}

// do runs one API call: rate-limit wait, request, status classification,
// optional JSON decode of the response body into out.
func (c *HubSpotClient) do(ctx context.Context, method, endpoint string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &APIError{Kind: KindNetwork, Detail: err.Error()}
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return &APIError{Kind: KindValidation, Detail: fmt.Sprintf("encode payload: %v", err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return &APIError{Kind: KindValidation, Detail: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &APIError{Kind: KindNetwork, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Detail:     strings.TrimSpace(string(detail)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &APIError{Kind: KindServer, StatusCode: resp.StatusCode, Detail: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}
