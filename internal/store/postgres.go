package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrConflict is returned by conditional inserts when a row already exists
// for the key. The sync engine treats it as "another worker won the race",
// never as a failure.
var ErrConflict = errors.New("store: key already exists")

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable persistence layer for issue→ticket
// correlations and reporter→contact references.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// GetTicketID returns the ticket correlated with issueID, if any.
func (p *PostgresStore) GetTicketID(ctx context.Context, issueID string) (string, bool, error) {
	var ticketID string
	err := p.pool.QueryRow(ctx, `
		SELECT ticket_id FROM correlations WHERE issue_id = $1
	`, issueID).Scan(&ticketID)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return ticketID, true, nil
}

// PutCorrelation records issue→ticket as a conditional insert.
//
// The uniqueness constraint on issue_id is the arbiter under concurrent
// duplicate deliveries: exactly one writer succeeds, the rest get
// ErrConflict. A correlation is never overwritten.
func (p *PostgresStore) PutCorrelation(ctx context.Context, issueID, ticketID string) error {
	if issueID == "" || ticketID == "" {
		return errors.New("store: issueID/ticketID required")
	}

	// RETURNING 1 only when inserted; a conflict returns no rows.
	var one int
	err := p.pool.QueryRow(ctx, `
		INSERT INTO correlations(issue_id, ticket_id)
		VALUES ($1, $2)
		ON CONFLICT (issue_id) DO NOTHING
		RETURNING 1
	`, issueID, ticketID).Scan(&one)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConflict
	}
	return err
}

// GetContactID returns the CRM contact recorded for a reporter login, if any.
func (p *PostgresStore) GetContactID(ctx context.Context, login string) (string, bool, error) {
	var contactID string
	err := p.pool.QueryRow(ctx, `
		SELECT contact_id FROM contact_refs WHERE github_login = $1
	`, login).Scan(&contactID)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return contactID, true, nil
}

// PutContactRef records login→contact with the same conditional-insert
// semantics as correlations.
func (p *PostgresStore) PutContactRef(ctx context.Context, login, contactID string) error {
	if login == "" || contactID == "" {
		return errors.New("store: login/contactID required")
	}

	var one int
	err := p.pool.QueryRow(ctx, `
		INSERT INTO contact_refs(github_login, contact_id)
		VALUES ($1, $2)
		ON CONFLICT (github_login) DO NOTHING
		RETURNING 1
	`, login, contactID).Scan(&one)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConflict
	}
	return err
}
