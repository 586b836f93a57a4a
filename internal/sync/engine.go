// Package sync holds the issue→ticket mapping core: duplicate suppression,
// correlation bookkeeping, and outcome classification. The engine is
// stateless; everything it knows lives in the correlation store.
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hubsync/issue-ticket-sync/internal/models"
	"github.com/hubsync/issue-ticket-sync/internal/store"
)

// CorrelationStore is the engine's view of the durable issue→ticket mapping.
// Put must be a conditional insert: store.ErrConflict when a correlation
// already exists for the issue.
type CorrelationStore interface {
	GetTicketID(ctx context.Context, issueID string) (ticketID string, found bool, err error)
	PutCorrelation(ctx context.Context, issueID, ticketID string) error
}

// TicketAPI is the engine's view of the CRM ticket operations.
type TicketAPI interface {
	CreateTicket(ctx context.Context, title, body string) (ticketID string, err error)
	CloseTicket(ctx context.Context, ticketID string) error
	ReopenTicket(ctx context.Context, ticketID string) error
	ArchiveTicket(ctx context.Context, ticketID string) error
}

// ContactLinker associates a freshly created ticket with a CRM contact for
// the reporter. Optional; link failures never change a sync Result.
type ContactLinker interface {
	Link(ctx context.Context, login, ticketID string) error
}

// Engine consumes issue events and drives the correlation store and ticket
// client. All collaborators are injected; the engine holds no other state.
type Engine struct {
	store   CorrelationStore
	tickets TicketAPI
	linker  ContactLinker // nil disables contact linking
	log     zerolog.Logger
}

func NewEngine(st CorrelationStore, tickets TicketAPI, log zerolog.Logger) *Engine {
	return &Engine{store: st, tickets: tickets, log: log}
}

// WithContactLinker enables reporter→contact linking after ticket creation.
func (e *Engine) WithContactLinker(l ContactLinker) *Engine {
	e.linker = l
	return e
}

// Handle dispatches an event by action. Actions outside the vocabulary are
// benign skips so unrelated webhook deliveries never surface as errors.
func (e *Engine) Handle(ctx context.Context, ev models.IssueEvent) Result {
	var res Result
	switch ev.Action {
	case models.ActionOpened:
		res = e.HandleOpened(ctx, ev)
	case models.ActionClosed:
		res = e.HandleClosed(ctx, ev)
	case models.ActionReopened:
		res = e.HandleReopened(ctx, ev)
	default:
		res = skipped(OutcomeSkippedIgnored, "", fmt.Sprintf("action %q not handled", ev.Action))
	}

	e.logResult(ev, res)
	return res
}

// HandleOpened creates a ticket for a newly opened issue unless one exists.
//
// Order matters: the remote create happens before the correlation write, so
// the store never references a ticket that does not exist, and a failed
// create leaves no correlation behind (a redelivery retries creation). The
// conditional insert is the arbiter under concurrent duplicate deliveries.
func (e *Engine) HandleOpened(ctx context.Context, ev models.IssueEvent) Result {
	if _, found, err := e.store.GetTicketID(ctx, ev.IssueID); err != nil {
		return failed(fmt.Errorf("correlation lookup for %s: %w", ev.IssueID, err))
	} else if found {
		return skipped(OutcomeSkippedDuplicate, "", "ticket already exists for issue")
	}

	ticketID, err := e.tickets.CreateTicket(ctx, ev.Title, ev.Body)
	if err != nil {
		return failed(fmt.Errorf("create ticket for %s: %w", ev.IssueID, err))
	}

	err = e.store.PutCorrelation(ctx, ev.IssueID, ticketID)
	switch {
	case err == nil:
		e.linkContact(ctx, ev, ticketID)
		return created(ticketID)

	case errors.Is(err, store.ErrConflict):
		// A concurrent delivery won the race between our lookup and our
		// insert. Its correlation stands; archive the orphan we just made so
		// exactly one live ticket remains.
		if archiveErr := e.tickets.ArchiveTicket(ctx, ticketID); archiveErr != nil {
			e.log.Error().
				Str("issue_id", ev.IssueID).
				Str("orphan_ticket_id", ticketID).
				Err(archiveErr).
				Msg("lost correlation race and could not archive orphan ticket")
		}
		winner, _, _ := e.store.GetTicketID(ctx, ev.IssueID)
		return skipped(OutcomeSkippedDuplicate, winner, "concurrent delivery created the ticket first")

	default:
		// Store unavailable after the remote create. The write may or may
		// not have committed, so neither archiving nor retrying is safe to
		// decide here; surface the ticket id for the operator.
		e.log.Error().
			Str("issue_id", ev.IssueID).
			Str("ticket_id", ticketID).
			Err(err).
			Msg("ticket created but correlation write failed")
		return failed(fmt.Errorf("record correlation %s→%s: %w", ev.IssueID, ticketID, err))
	}
}

// HandleClosed closes the correlated ticket; with no correlation there is
// nothing to close and the event is a benign skip.
func (e *Engine) HandleClosed(ctx context.Context, ev models.IssueEvent) Result {
	ticketID, found, err := e.store.GetTicketID(ctx, ev.IssueID)
	if err != nil {
		return failed(fmt.Errorf("correlation lookup for %s: %w", ev.IssueID, err))
	}
	if !found {
		return skipped(OutcomeSkippedNoCorrelation, "", "no ticket recorded for issue")
	}

	if err := e.tickets.CloseTicket(ctx, ticketID); err != nil {
		return failed(fmt.Errorf("close ticket %s for %s: %w", ticketID, ev.IssueID, err))
	}
	return closed(ticketID)
}

// HandleReopened moves the correlated ticket back to the open stage. An
// issue whose correlation is gone (retention) gets a fresh ticket via the
// opened path.
func (e *Engine) HandleReopened(ctx context.Context, ev models.IssueEvent) Result {
	ticketID, found, err := e.store.GetTicketID(ctx, ev.IssueID)
	if err != nil {
		return failed(fmt.Errorf("correlation lookup for %s: %w", ev.IssueID, err))
	}
	if !found {
		return e.HandleOpened(ctx, ev)
	}

	if err := e.tickets.ReopenTicket(ctx, ticketID); err != nil {
		return failed(fmt.Errorf("reopen ticket %s for %s: %w", ticketID, ev.IssueID, err))
	}
	return reopened(ticketID)
}

// linkContact is best-effort enrichment; failures are logged, never returned.
func (e *Engine) linkContact(ctx context.Context, ev models.IssueEvent, ticketID string) {
	if e.linker == nil || ev.User == "" {
		return
	}
	if err := e.linker.Link(ctx, ev.User, ticketID); err != nil {
		e.log.Warn().
			Str("issue_id", ev.IssueID).
			Str("ticket_id", ticketID).
			Str("login", ev.User).
			Err(err).
			Msg("contact linking failed")
	}
}

func (e *Engine) logResult(ev models.IssueEvent, res Result) {
	var evt *zerolog.Event
	if res.Outcome == OutcomeFailed {
		evt = e.log.Error().Err(res.Err)
	} else {
		evt = e.log.Info()
	}
	evt.
		Str("issue_id", ev.IssueID).
		Str("action", string(ev.Action)).
		Str("outcome", string(res.Outcome))
	if res.TicketID != "" {
		evt.Str("ticket_id", res.TicketID)
	}
	if res.Reason != "" {
		evt.Str("reason", res.Reason)
	}
	evt.Msg("event handled")
}
