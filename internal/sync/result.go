package sync

// Outcome classifies what the engine did with an event. Skips are benign;
// only OutcomeFailed is an error condition.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeClosed   Outcome = "closed"
	OutcomeReopened Outcome = "reopened"

	// Duplicate suppression: a ticket already exists for this issue.
	OutcomeSkippedDuplicate Outcome = "skipped_duplicate"
	// Nothing to close/reopen: no correlation recorded for this issue.
	OutcomeSkippedNoCorrelation Outcome = "skipped_no_correlation"
	// Event action outside the opened/closed/reopened vocabulary.
	OutcomeSkippedIgnored Outcome = "skipped_ignored_action"

	OutcomeFailed Outcome = "failed"
)

// Result is the classified outcome of handling one event. The engine never
// retries; the caller decides what to do with a Failed result.
type Result struct {
	Outcome  Outcome
	TicketID string
	Reason   string // set on skips
	Err      error  // set on OutcomeFailed
}

func created(ticketID string) Result {
	return Result{Outcome: OutcomeCreated, TicketID: ticketID}
}

func closed(ticketID string) Result {
	return Result{Outcome: OutcomeClosed, TicketID: ticketID}
}

func reopened(ticketID string) Result {
	return Result{Outcome: OutcomeReopened, TicketID: ticketID}
}

func skipped(outcome Outcome, ticketID, reason string) Result {
	return Result{Outcome: outcome, TicketID: ticketID, Reason: reason}
}

func failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}
