package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"groupcast/internal/models"
)

type contactRepository struct {
	db *sql.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *sql.DB) ContactRepository {
	return &contactRepository{db: db}
}

// Create creates a new contact
func (r *contactRepository) Create(ctx context.Context, contact *models.Contact) error {
	query := `
		INSERT INTO contacts (owner_id, name, phone, email, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		contact.OwnerID,
		contact.Name,
		contact.Phone,
		contact.Email,
		contact.Notes,
	).Scan(&contact.ID, &contact.CreatedAt, &contact.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	return nil
}

// GetByID retrieves a contact by ID, scoped to its owner
func (r *contactRepository) GetByID(ctx context.Context, id int, ownerID string) (*models.Contact, error) {
	query := `
		SELECT id, owner_id, name, phone, email, notes, created_at, updated_at
		FROM contacts
		WHERE id = $1 AND owner_id = $2
	`

	contact := &models.Contact{}
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&contact.ID,
		&contact.OwnerID,
		&contact.Name,
		&contact.Phone,
		&contact.Email,
		&contact.Notes,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("contact not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return contact, nil
}

// GetByIDs retrieves multiple contacts by IDs, scoped to their owner
func (r *contactRepository) GetByIDs(ctx context.Context, ownerID string, ids []int) ([]*models.Contact, error) {
	if len(ids) == 0 {
		return []*models.Contact{}, nil
	}

	query := `
		SELECT id, owner_id, name, phone, email, notes, created_at, updated_at
		FROM contacts
		WHERE owner_id = $1 AND id = ANY($2)
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get contacts: %w", err)
	}
	defer rows.Close()

	contacts := []*models.Contact{}
	for rows.Next() {
		contact := &models.Contact{}
		err := rows.Scan(
			&contact.ID,
			&contact.OwnerID,
			&contact.Name,
			&contact.Phone,
			&contact.Email,
			&contact.Notes,
			&contact.CreatedAt,
			&contact.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}

	return contacts, nil
}

// List retrieves the owner's contacts, optionally filtered by a name,
// phone or email search term
func (r *contactRepository) List(ctx context.Context, ownerID, search string, limit, offset int) ([]*models.Contact, error) {
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
		SELECT id, owner_id, name, phone, email, notes, created_at, updated_at
		FROM contacts
		WHERE owner_id = $1
	`
	args := []interface{}{ownerID}

	if search != "" {
		query += ` AND (name ILIKE $2 OR phone ILIKE $2 OR email ILIKE $2)`
		args = append(args, "%"+search+"%")
	}

	query += fmt.Sprintf(" ORDER BY name ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := []*models.Contact{}
	for rows.Next() {
		contact := &models.Contact{}
		err := rows.Scan(
			&contact.ID,
			&contact.OwnerID,
			&contact.Name,
			&contact.Phone,
			&contact.Email,
			&contact.Notes,
			&contact.CreatedAt,
			&contact.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}

	return contacts, nil
}

// Update updates a contact's editable fields
func (r *contactRepository) Update(ctx context.Context, contact *models.Contact) error {
	query := `
		UPDATE contacts
		SET name = $1, phone = $2, email = $3, notes = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5 AND owner_id = $6
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		contact.Name,
		contact.Phone,
		contact.Email,
		contact.Notes,
		contact.ID,
		contact.OwnerID,
	).Scan(&contact.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("contact not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	return nil
}

// Delete deletes a contact. Memberships referencing it go with it.
func (r *contactRepository) Delete(ctx context.Context, id int, ownerID string) error {
	query := `DELETE FROM contacts WHERE id = $1 AND owner_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("contact not found")
	}

	return nil
}
