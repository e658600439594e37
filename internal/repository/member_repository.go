package repository

import (
	"context"
	"database/sql"
	"fmt"

	"groupcast/internal/models"
)

type memberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *sql.DB) MemberRepository {
	return &memberRepository{db: db}
}

// Create creates a new membership
func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	query := `
		INSERT INTO members (group_id, contact_id, is_recipient, notes, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		member.GroupID,
		member.ContactID,
		member.IsRecipient,
		member.Notes,
		member.CreatedBy,
		member.UpdatedBy,
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

// GetByGroupAndContact retrieves a membership with its contact by its
// group and contact pair. Ownership is checked through the member's group.
func (r *memberRepository) GetByGroupAndContact(ctx context.Context, groupID, contactID int, ownerID string) (*models.MemberWithContact, error) {
	query := `
		SELECT
			m.id, m.group_id, m.contact_id, m.is_recipient, m.notes,
			m.created_by, m.updated_by, m.created_at, m.updated_at,
			c.id, c.owner_id, c.name, c.phone, c.email, c.notes, c.created_at, c.updated_at
		FROM members m
		JOIN groups g ON g.id = m.group_id
		JOIN contacts c ON c.id = m.contact_id
		WHERE m.group_id = $1 AND m.contact_id = $2 AND g.owner_id = $3
	`

	member := &models.MemberWithContact{}
	err := r.db.QueryRowContext(ctx, query, groupID, contactID, ownerID).Scan(
		&member.ID,
		&member.GroupID,
		&member.ContactID,
		&member.IsRecipient,
		&member.Notes,
		&member.CreatedBy,
		&member.UpdatedBy,
		&member.CreatedAt,
		&member.UpdatedAt,
		&member.Contact.ID,
		&member.Contact.OwnerID,
		&member.Contact.Name,
		&member.Contact.Phone,
		&member.Contact.Email,
		&member.Contact.Notes,
		&member.Contact.CreatedAt,
		&member.Contact.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("member not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// ExistsInGroup checks if a contact already has a membership in the group
func (r *memberRepository) ExistsInGroup(ctx context.Context, groupID, contactID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM members WHERE group_id = $1 AND contact_id = $2)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, groupID, contactID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	return exists, nil
}

// ListRoster retrieves a group's full roster joined with contact details.
// It takes an explicit DB so dispatch can read the roster inside the same
// transaction that writes the snapshot batch.
func (r *memberRepository) ListRoster(ctx context.Context, db DB, groupID int) ([]*models.MemberWithContact, error) {
	query := `
		SELECT
			m.id, m.group_id, m.contact_id, m.is_recipient, m.notes,
			m.created_by, m.updated_by, m.created_at, m.updated_at,
			c.id, c.owner_id, c.name, c.phone, c.email, c.notes, c.created_at, c.updated_at
		FROM members m
		JOIN contacts c ON c.id = m.contact_id
		WHERE m.group_id = $1
		ORDER BY c.name ASC
	`

	rows, err := db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	defer rows.Close()

	roster := []*models.MemberWithContact{}
	for rows.Next() {
		member := &models.MemberWithContact{}
		err := rows.Scan(
			&member.ID,
			&member.GroupID,
			&member.ContactID,
			&member.IsRecipient,
			&member.Notes,
			&member.CreatedBy,
			&member.UpdatedBy,
			&member.CreatedAt,
			&member.UpdatedAt,
			&member.Contact.ID,
			&member.Contact.OwnerID,
			&member.Contact.Name,
			&member.Contact.Phone,
			&member.Contact.Email,
			&member.Contact.Notes,
			&member.Contact.CreatedAt,
			&member.Contact.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		roster = append(roster, member)
	}

	return roster, nil
}

// Update updates a membership's recipient flag and notes
func (r *memberRepository) Update(ctx context.Context, member *models.Member) error {
	query := `
		UPDATE members
		SET is_recipient = $1, notes = $2, updated_by = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		member.IsRecipient,
		member.Notes,
		member.UpdatedBy,
		member.ID,
	).Scan(&member.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("member not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}

	return nil
}

// Delete removes a membership. Snapshots taken from it are kept.
func (r *memberRepository) Delete(ctx context.Context, groupID, contactID int, ownerID string) error {
	query := `
		DELETE FROM members m
		USING groups g
		WHERE m.group_id = $1 AND m.contact_id = $2 AND g.id = m.group_id AND g.owner_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, groupID, contactID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("member not found")
	}

	return nil
}
