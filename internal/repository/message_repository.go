package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"groupcast/internal/models"
)

type messageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *sql.DB) MessageRepository {
	return &messageRepository{db: db}
}

const messageColumns = `id, group_id, owner_id, content, subject, status, type,
		is_scheduled, scheduled_date, is_recurring, recurring_num, recurring_period,
		is_reminders, has_retried, is_sent_early, last_error, created_at, updated_at`

// rowScanner lets one scan helper serve both QueryRow and Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner, message *models.Message) error {
	return row.Scan(
		&message.ID,
		&message.GroupID,
		&message.OwnerID,
		&message.Content,
		&message.Subject,
		&message.Status,
		&message.Type,
		&message.IsScheduled,
		&message.ScheduledDate,
		&message.IsRecurring,
		&message.RecurringNum,
		&message.RecurringPeriod,
		&message.IsReminders,
		&message.HasRetried,
		&message.IsSentEarly,
		&message.LastError,
		&message.CreatedAt,
		&message.UpdatedAt,
	)
}

// Create creates a message together with its reminder rows in one transaction
func (r *messageRepository) Create(ctx context.Context, message *models.Message, reminders []*models.Reminder) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO messages (group_id, owner_id, content, subject, status, type,
			is_scheduled, scheduled_date, is_recurring, recurring_num, recurring_period, is_reminders)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRowContext(
		ctx,
		query,
		message.GroupID,
		message.OwnerID,
		message.Content,
		message.Subject,
		message.Status,
		message.Type,
		message.IsScheduled,
		message.ScheduledDate,
		message.IsRecurring,
		message.RecurringNum,
		message.RecurringPeriod,
		message.IsReminders,
	).Scan(&message.ID, &message.CreatedAt, &message.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	if err := insertReminders(ctx, tx, message.ID, reminders); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func insertReminders(ctx context.Context, db DB, messageID int, reminders []*models.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO reminders (message_id, num, period, is_ignored)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, reminder := range reminders {
		reminder.MessageID = messageID
		err := stmt.QueryRowContext(
			ctx,
			reminder.MessageID,
			reminder.Num,
			reminder.Period,
			reminder.IsIgnored,
		).Scan(&reminder.ID, &reminder.CreatedAt)

		if err != nil {
			return fmt.Errorf("failed to create reminder: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a message by ID, scoped to its owner
func (r *messageRepository) GetByID(ctx context.Context, id int, ownerID string) (*models.Message, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM messages
		WHERE id = $1 AND owner_id = $2
	`, messageColumns)

	message := &models.Message{}
	err := scanMessage(r.db.QueryRowContext(ctx, query, id, ownerID), message)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("message not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return message, nil
}

// GetWithReminders retrieves a message and its reminder rows
func (r *messageRepository) GetWithReminders(ctx context.Context, id int, ownerID string) (*models.MessageWithReminders, error) {
	message, err := r.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, message_id, num, period, is_ignored, created_at
		FROM reminders
		WHERE message_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reminders: %w", err)
	}
	defer rows.Close()

	reminders := []*models.Reminder{}
	for rows.Next() {
		reminder := &models.Reminder{}
		err := rows.Scan(
			&reminder.ID,
			&reminder.MessageID,
			&reminder.Num,
			&reminder.Period,
			&reminder.IsIgnored,
			&reminder.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}

	return &models.MessageWithReminders{
		Message:   *message,
		Reminders: reminders,
	}, nil
}

// GetForDispatch retrieves a message and locks its row for the rest of the
// transaction, so two dispatches of the same message serialize.
func (r *messageRepository) GetForDispatch(ctx context.Context, db DB, id int) (*models.Message, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM messages
		WHERE id = $1
		FOR UPDATE
	`, messageColumns)

	message := &models.Message{}
	err := scanMessage(db.QueryRowContext(ctx, query, id), message)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("message not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return message, nil
}

// List retrieves a group's messages with filters and pagination
func (r *messageRepository) List(ctx context.Context, groupID int, filters MessageFilters) ([]*models.Message, int, error) {
	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT %s
		FROM messages
		WHERE group_id = $1
	`, messageColumns))

	args := []interface{}{groupID}
	argPos := 2

	if filters.Status != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND status = $%d", argPos))
		args = append(args, *filters.Status)
		argPos++
	}

	if filters.Type != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND type = $%d", argPos))
		args = append(args, *filters.Type)
		argPos++
	}

	// Order by ID DESC for stable pagination
	queryBuilder.WriteString(" ORDER BY id DESC")

	limit := filters.PageSize
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset := (filters.Page - 1) * limit
	if offset < 0 {
		offset = 0
	}

	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1))
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		message := &models.Message{}
		if err := scanMessage(rows, message); err != nil {
			return nil, 0, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}

	countQuery := "SELECT COUNT(*) FROM messages WHERE group_id = $1"
	countArgs := []interface{}{groupID}

	if filters.Status != nil {
		countQuery += fmt.Sprintf(" AND status = $%d", len(countArgs)+1)
		countArgs = append(countArgs, *filters.Status)
	}

	if filters.Type != nil {
		countQuery += fmt.Sprintf(" AND type = $%d", len(countArgs)+1)
		countArgs = append(countArgs, *filters.Type)
	}

	var totalCount int
	err = r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get total count: %w", err)
	}

	return messages, totalCount, nil
}

// Update updates a message's editable fields and replaces its reminder rows
// in one transaction. Status and history flags are not touched here.
func (r *messageRepository) Update(ctx context.Context, message *models.Message, reminders []*models.Reminder) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE messages
		SET content = $1, subject = $2, type = $3,
			is_scheduled = $4, scheduled_date = $5,
			is_recurring = $6, recurring_num = $7, recurring_period = $8,
			is_reminders = $9, updated_at = CURRENT_TIMESTAMP
		WHERE id = $10 AND owner_id = $11
		RETURNING updated_at
	`

	err = tx.QueryRowContext(
		ctx,
		query,
		message.Content,
		message.Subject,
		message.Type,
		message.IsScheduled,
		message.ScheduledDate,
		message.IsRecurring,
		message.RecurringNum,
		message.RecurringPeriod,
		message.IsReminders,
		message.ID,
		message.OwnerID,
	).Scan(&message.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("message not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE message_id = $1`, message.ID); err != nil {
		return fmt.Errorf("failed to clear reminders: %w", err)
	}

	if err := insertReminders(ctx, tx, message.ID, reminders); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateStatus updates message status and delivery error
func (r *messageRepository) UpdateStatus(ctx context.Context, db DB, id int, status models.MessageStatus, lastError *string) error {
	query := `
		UPDATE messages
		SET status = $1, last_error = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`

	result, err := db.ExecContext(ctx, query, status, lastError, id)
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("message not found")
	}

	return nil
}

// UpdateDispatchState moves the status and latches the history flags. The
// flags only ever go from false to true.
func (r *messageRepository) UpdateDispatchState(ctx context.Context, db DB, id int, status models.MessageStatus, hasRetried, isSentEarly bool) error {
	query := `
		UPDATE messages
		SET status = $1,
			has_retried = has_retried OR $2,
			is_sent_early = is_sent_early OR $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`

	result, err := db.ExecContext(ctx, query, status, hasRetried, isSentEarly, id)
	if err != nil {
		return fmt.Errorf("failed to update dispatch state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("message not found")
	}

	return nil
}

// UpdateScheduledDate rolls a recurring message's send date forward
func (r *messageRepository) UpdateScheduledDate(ctx context.Context, db DB, id int, date time.Time) error {
	query := `
		UPDATE messages
		SET scheduled_date = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`

	result, err := db.ExecContext(ctx, query, date, id)
	if err != nil {
		return fmt.Errorf("failed to update scheduled date: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("message not found")
	}

	return nil
}

// Delete deletes a message. Reminders, dispatches and snapshots cascade.
func (r *messageRepository) Delete(ctx context.Context, id int, ownerID string) error {
	query := `DELETE FROM messages WHERE id = $1 AND owner_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("message not found")
	}

	return nil
}
