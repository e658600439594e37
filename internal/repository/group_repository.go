package repository

import (
	"context"
	"database/sql"
	"fmt"

	"groupcast/internal/models"
)

type groupRepository struct {
	db *sql.DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *sql.DB) GroupRepository {
	return &groupRepository{db: db}
}

// Create creates a new group
func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	query := `
		INSERT INTO groups (owner_id, name, description, image_url, use_sms, use_email, use_groupme)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		group.OwnerID,
		group.Name,
		group.Description,
		group.ImageURL,
		group.UseSMS,
		group.UseEmail,
		group.UseGroupMe,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	return nil
}

// GetByID retrieves a group by ID, scoped to its owner
func (r *groupRepository) GetByID(ctx context.Context, id int, ownerID string) (*models.Group, error) {
	query := `
		SELECT id, owner_id, name, description, image_url, use_sms, use_email, use_groupme, is_archived, created_at, updated_at
		FROM groups
		WHERE id = $1 AND owner_id = $2
	`

	group := &models.Group{}
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&group.ID,
		&group.OwnerID,
		&group.Name,
		&group.Description,
		&group.ImageURL,
		&group.UseSMS,
		&group.UseEmail,
		&group.UseGroupMe,
		&group.IsArchived,
		&group.CreatedAt,
		&group.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

// List retrieves the owner's groups with roster and message counts.
// Archived groups are left out unless asked for.
func (r *groupRepository) List(ctx context.Context, ownerID string, includeArchived bool, limit, offset int) ([]*models.GroupWithCounts, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT
			g.id, g.owner_id, g.name, g.description, g.image_url,
			g.use_sms, g.use_email, g.use_groupme, g.is_archived, g.created_at, g.updated_at,
			COUNT(DISTINCT m.id) AS member_count,
			COUNT(DISTINCT msg.id) AS message_count
		FROM groups g
		LEFT JOIN members m ON m.group_id = g.id
		LEFT JOIN messages msg ON msg.group_id = g.id
		WHERE g.owner_id = $1
	`
	if !includeArchived {
		query += " AND g.is_archived = FALSE"
	}
	query += `
		GROUP BY g.id
		ORDER BY g.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := []*models.GroupWithCounts{}
	for rows.Next() {
		group := &models.GroupWithCounts{}
		err := rows.Scan(
			&group.ID,
			&group.OwnerID,
			&group.Name,
			&group.Description,
			&group.ImageURL,
			&group.UseSMS,
			&group.UseEmail,
			&group.UseGroupMe,
			&group.IsArchived,
			&group.CreatedAt,
			&group.UpdatedAt,
			&group.MemberCount,
			&group.MessageCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}

	return groups, nil
}

// Update updates a group's editable fields
func (r *groupRepository) Update(ctx context.Context, group *models.Group) error {
	query := `
		UPDATE groups
		SET name = $1, description = $2, image_url = $3,
			use_sms = $4, use_email = $5, use_groupme = $6,
			is_archived = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $8 AND owner_id = $9
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		group.Name,
		group.Description,
		group.ImageURL,
		group.UseSMS,
		group.UseEmail,
		group.UseGroupMe,
		group.IsArchived,
		group.ID,
		group.OwnerID,
	).Scan(&group.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("group not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}

	return nil
}

// SetArchived flips a group's archived flag
func (r *groupRepository) SetArchived(ctx context.Context, id int, ownerID string, archived bool) error {
	query := `
		UPDATE groups
		SET is_archived = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND owner_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, archived, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to archive group: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("group not found")
	}

	return nil
}
