package models

// Action is the issue lifecycle transition carried by an inbound event.
type Action string

const (
	ActionOpened   Action = "opened"
	ActionClosed   Action = "closed"
	ActionReopened Action = "reopened"
)

// IssueEvent is the normalized inbound event the sync engine consumes.
// Built once per webhook delivery and never mutated.
//
// IssueID is "<repo>#<number>", unique across repositories.
// User is the reporter's login; optional, used only for contact linking.
type IssueEvent struct {
	IssueID string
	Action  Action
	Title   string
	Body    string
	Repo    string
	User    string
}

// GitHubIssuePayload is the subset of the GitHub issues webhook payload
// this service reads. Everything else in the delivery is ignored.
type GitHubIssuePayload struct {
	Action string `json:"action"`
	Issue  struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		User   struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"issue"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// SyncResponse is returned by POST /webhooks/github.
// Outcome mirrors the engine's result classification so the deliverer can
// tell a benign skip from a created/closed ticket.
type SyncResponse struct {
	DeliveryID string `json:"delivery_id"`
	IssueID    string `json:"issue_id"`
	Outcome    string `json:"outcome"`
	TicketID   string `json:"ticket_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}
