// Package contacts links CRM tickets to a contact derived from the issue
// reporter's public GitHub profile. Linking is an enrichment on top of the
// ticket sync: the engine calls it best-effort after a successful create.
package contacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hubsync/issue-ticket-sync/internal/githubapi"
	"github.com/hubsync/issue-ticket-sync/internal/store"
	"github.com/hubsync/issue-ticket-sync/internal/ticket"
)

// ContactStore persists login→contact references with conditional-insert
// semantics (store.ErrConflict when the login is already recorded).
type ContactStore interface {
	GetContactID(ctx context.Context, login string) (string, bool, error)
	PutContactRef(ctx context.Context, login, contactID string) error
}

// ProfileSource fetches public reporter profiles.
type ProfileSource interface {
	FetchUser(ctx context.Context, login string) (githubapi.UserProfile, error)
}

// CRM is the slice of the ticket client the linker needs.
type CRM interface {
	CreateContact(ctx context.Context, props ticket.ContactProperties) (string, error)
	AssociateTicketContact(ctx context.Context, ticketID, contactID string) error
}

// Linker resolves a reporter login to a CRM contact (creating one on first
// sight) and associates the ticket with it.
type Linker struct {
	store    ContactStore
	profiles ProfileSource
	crm      CRM
	log      zerolog.Logger
}

func NewLinker(st ContactStore, profiles ProfileSource, crm CRM, log zerolog.Logger) *Linker {
	return &Linker{store: st, profiles: profiles, crm: crm, log: log}
}

// Link associates ticketID with the contact for login, creating the contact
// if this reporter has not been seen before.
func (l *Linker) Link(ctx context.Context, login, ticketID string) error {
	contactID, found, err := l.store.GetContactID(ctx, login)
	if err != nil {
		return fmt.Errorf("contact lookup for %q: %w", login, err)
	}

	if !found {
		contactID, err = l.createContact(ctx, login)
		if err != nil {
			return err
		}
	}

	if err := l.crm.AssociateTicketContact(ctx, ticketID, contactID); err != nil {
		return fmt.Errorf("associate ticket %s to contact %s: %w", ticketID, contactID, err)
	}

	l.log.Debug().
		Str("login", login).
		Str("ticket_id", ticketID).
		Str("contact_id", contactID).
		Msg("ticket associated to contact")
	return nil
}

func (l *Linker) createContact(ctx context.Context, login string) (string, error) {
	profile, err := l.profiles.FetchUser(ctx, login)
	if err != nil {
		return "", err
	}

	props := ticket.ContactProperties{
		FirstName: profile.FirstName(),
		LastName:  profile.LastName(),
		Email:     profile.Email,
		Website:   profile.Blog,
		Company:   profile.Company,
	}
	// Profiles without a public name fall back to the login so the contact
	// is still identifiable in the CRM.
	if props.FirstName == "" {
		props.FirstName = login
	}

	contactID, err := l.crm.CreateContact(ctx, props)
	if err != nil {
		return "", fmt.Errorf("create contact for %q: %w", login, err)
	}

	err = l.store.PutContactRef(ctx, login, contactID)
	if errors.Is(err, store.ErrConflict) {
		// Another worker recorded this reporter first; use its contact and
		// leave the one we just created unassociated.
		winner, found, getErr := l.store.GetContactID(ctx, login)
		if getErr != nil || !found {
			return "", fmt.Errorf("contact ref conflict for %q but winner unreadable: %w", login, getErr)
		}
		l.log.Warn().
			Str("login", login).
			Str("contact_id", contactID).
			Str("winner_contact_id", winner).
			Msg("lost contact creation race, duplicate contact left in CRM")
		return winner, nil
	}
	if err != nil {
		return "", fmt.Errorf("record contact ref for %q: %w", login, err)
	}

	l.log.Debug().Str("login", login).Str("contact_id", contactID).Msg("contact created")
	return contactID, nil
}
