package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hubsync/issue-ticket-sync/internal/models"
	"github.com/hubsync/issue-ticket-sync/internal/sync"
	"github.com/hubsync/issue-ticket-sync/internal/ticket"
)

// EventSyncer is the handler's view of the sync engine.
type EventSyncer interface {
	Handle(ctx context.Context, ev models.IssueEvent) sync.Result
}

// RegisterWebhookRoutes registers the ingestion-path endpoint.
//
// POST /webhooks/github
// - Requires X-Webhook-Token (enforced by middleware on the route group)
// - Benign skips answer 200 so the deliverer never redelivers no-ops
// - Transient failures answer 503 to invite redelivery; permanent ones 500
func RegisterWebhookRoutes(r gin.IRoutes, engine EventSyncer) {
	r.POST("/webhooks/github", func(c *gin.Context) {
		// Delivery id precedence: X-GitHub-Delivery header, generated UUID
		// as fallback. Only used for log/response correlation.
		deliveryID := c.GetHeader("X-GitHub-Delivery")
		if deliveryID == "" {
			deliveryID = uuid.New().String()
		}

		var payload models.GitHubIssuePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		// Required fields per contract.
		if payload.Action == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "action required"})
			return
		}
		if payload.Repository.FullName == "" || payload.Issue.Number == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "repository.full_name and issue.number required"})
			return
		}

		ev := models.IssueEvent{
			IssueID: fmt.Sprintf("%s#%d", payload.Repository.FullName, payload.Issue.Number),
			Action:  models.Action(payload.Action),
			Title:   payload.Issue.Title,
			Body:    payload.Issue.Body,
			Repo:    payload.Repository.FullName,
			User:    payload.Issue.User.Login,
		}

		res := engine.Handle(c.Request.Context(), ev)

		resp := models.SyncResponse{
			DeliveryID: deliveryID,
			IssueID:    ev.IssueID,
			Outcome:    string(res.Outcome),
			TicketID:   res.TicketID,
			Reason:     res.Reason,
		}
		if res.Err != nil {
			resp.Error = res.Err.Error()
		}

		c.JSON(statusFor(res), resp)
	})
}

func statusFor(res sync.Result) int {
	switch res.Outcome {
	case sync.OutcomeCreated:
		return http.StatusCreated
	case sync.OutcomeFailed:
		if ticket.IsTransient(res.Err) {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	default:
		// Closed, Reopened, and every benign skip.
		return http.StatusOK
	}
}
