package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-assistant/internal/domain"
)

// OfflineTicket is a ticket captured locally because the remote creation
// call failed; it is retried by the sync worker until it lands.
type OfflineTicket struct {
	ID             string
	LocalTicketID  string
	SessionID      string
	Draft          domain.TicketDraft
	Synced         bool
	RemoteTicketID *string
	SyncAttempts   int
	LastError      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OfflineTicketRepository encapsulates offline ticket persistence.
type OfflineTicketRepository interface {
	Create(ctx context.Context, ticket *OfflineTicket) error
	ListPending(ctx context.Context, limit int) ([]OfflineTicket, error)
	MarkSynced(ctx context.Context, id, remoteID string) error
	MarkSyncedByLocalID(ctx context.Context, localID, remoteID string) error
	RecordAttempt(ctx context.Context, id string, attemptErr error) error
}

type offlineTicketRepository struct {
	pool *pgxpool.Pool
}

// NewOfflineTicketRepository instantiates the repository.
func NewOfflineTicketRepository(pool *pgxpool.Pool) OfflineTicketRepository {
	return &offlineTicketRepository{pool: pool}
}

func (r *offlineTicketRepository) Create(ctx context.Context, ticket *OfflineTicket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	draftJSON, err := json.Marshal(ticket.Draft)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO offline_tickets (id, local_ticket_id, session_id, draft)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.LocalTicketID,
		ticket.SessionID,
		draftJSON,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *offlineTicketRepository) ListPending(ctx context.Context, limit int) ([]OfflineTicket, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, local_ticket_id, session_id, draft, synced, remote_ticket_id,
               sync_attempts, last_error, created_at, updated_at
        FROM offline_tickets
        WHERE synced = FALSE
        ORDER BY created_at
        LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []OfflineTicket{}
	for rows.Next() {
		var (
			ticket    OfflineTicket
			draftJSON []byte
		)
		if err := rows.Scan(
			&ticket.ID,
			&ticket.LocalTicketID,
			&ticket.SessionID,
			&draftJSON,
			&ticket.Synced,
			&ticket.RemoteTicketID,
			&ticket.SyncAttempts,
			&ticket.LastError,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(draftJSON, &ticket.Draft); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

func (r *offlineTicketRepository) MarkSynced(ctx context.Context, id, remoteID string) error {
	const query = `
        UPDATE offline_tickets
        SET synced = TRUE, remote_ticket_id = $1, updated_at = NOW()
        WHERE id = $2`
	cmd, err := r.pool.Exec(ctx, query, remoteID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *offlineTicketRepository) MarkSyncedByLocalID(ctx context.Context, localID, remoteID string) error {
	const query = `
        UPDATE offline_tickets
        SET synced = TRUE, remote_ticket_id = $1, updated_at = NOW()
        WHERE local_ticket_id = $2 AND synced = FALSE`
	cmd, err := r.pool.Exec(ctx, query, remoteID, localID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *offlineTicketRepository) RecordAttempt(ctx context.Context, id string, attemptErr error) error {
	var lastError *string
	if attemptErr != nil {
		msg := attemptErr.Error()
		lastError = &msg
	}
	const query = `
        UPDATE offline_tickets
        SET sync_attempts = sync_attempts + 1, last_error = $1, updated_at = NOW()
        WHERE id = $2`
	_, err := r.pool.Exec(ctx, query, lastError, id)
	return err
}
