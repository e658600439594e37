package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"groupcast/internal/models"
)

type snapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

// CreateDispatch records a new delivery batch. It takes an explicit DB so the
// caller can put it in the same transaction as the roster read.
func (r *snapshotRepository) CreateDispatch(ctx context.Context, db DB, dispatch *models.Dispatch) error {
	query := `
		INSERT INTO dispatches (batch_id, message_id, idempotency_key, sent_early)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := db.QueryRowContext(
		ctx,
		query,
		dispatch.BatchID,
		dispatch.MessageID,
		dispatch.IdempotencyKey,
		dispatch.SentEarly,
	).Scan(&dispatch.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create dispatch: %w", err)
	}

	return nil
}

// CreateBatch inserts the frozen snapshot rows for one dispatch
func (r *snapshotRepository) CreateBatch(ctx context.Context, db DB, snapshots []*models.MemberSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO member_snapshots (message_id, batch_id, member_id, contact_name, contact_phone, contact_email, is_recipient, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, snapshot := range snapshots {
		err := stmt.QueryRowContext(
			ctx,
			snapshot.MessageID,
			snapshot.BatchID,
			snapshot.MemberID,
			snapshot.ContactName,
			snapshot.ContactPhone,
			snapshot.ContactEmail,
			snapshot.IsRecipient,
			snapshot.Notes,
		).Scan(&snapshot.ID, &snapshot.CreatedAt)

		if err != nil {
			return fmt.Errorf("failed to create snapshot: %w", err)
		}
	}

	return nil
}

// GetDispatchByKey looks up a previous dispatch of the message under the same
// idempotency key, if one exists
func (r *snapshotRepository) GetDispatchByKey(ctx context.Context, db DB, messageID int, key string) (*models.Dispatch, error) {
	query := `
		SELECT batch_id, message_id, idempotency_key, sent_early, created_at
		FROM dispatches
		WHERE message_id = $1 AND idempotency_key = $2
	`

	dispatch := &models.Dispatch{}
	err := db.QueryRowContext(ctx, query, messageID, key).Scan(
		&dispatch.BatchID,
		&dispatch.MessageID,
		&dispatch.IdempotencyKey,
		&dispatch.SentEarly,
		&dispatch.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatch: %w", err)
	}

	return dispatch, nil
}

// ListDispatches retrieves all delivery batches for a message, newest first
func (r *snapshotRepository) ListDispatches(ctx context.Context, messageID int) ([]*models.Dispatch, error) {
	query := `
		SELECT batch_id, message_id, idempotency_key, sent_early, created_at
		FROM dispatches
		WHERE message_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatches: %w", err)
	}
	defer rows.Close()

	dispatches := []*models.Dispatch{}
	for rows.Next() {
		dispatch := &models.Dispatch{}
		err := rows.Scan(
			&dispatch.BatchID,
			&dispatch.MessageID,
			&dispatch.IdempotencyKey,
			&dispatch.SentEarly,
			&dispatch.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dispatch: %w", err)
		}
		dispatches = append(dispatches, dispatch)
	}

	return dispatches, nil
}

// ListBatch retrieves the snapshot rows frozen for one dispatch
func (r *snapshotRepository) ListBatch(ctx context.Context, batchID uuid.UUID) ([]*models.MemberSnapshot, error) {
	query := `
		SELECT id, message_id, batch_id, member_id, contact_name, contact_phone, contact_email, is_recipient, notes, created_at
		FROM member_snapshots
		WHERE batch_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []*models.MemberSnapshot{}
	for rows.Next() {
		snapshot := &models.MemberSnapshot{}
		err := rows.Scan(
			&snapshot.ID,
			&snapshot.MessageID,
			&snapshot.BatchID,
			&snapshot.MemberID,
			&snapshot.ContactName,
			&snapshot.ContactPhone,
			&snapshot.ContactEmail,
			&snapshot.IsRecipient,
			&snapshot.Notes,
			&snapshot.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}
