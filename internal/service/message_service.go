package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"groupcast/internal/models"
	"groupcast/internal/queue"
	"groupcast/internal/repository"
	"groupcast/internal/validation"
)

// MessageService handles message business logic: editing through the
// cross-field rules, the dispatch snapshot, and recipient lookups
type MessageService struct {
	messageRepo  repository.MessageRepository
	memberRepo   repository.MemberRepository
	groupRepo    repository.GroupRepository
	snapshotRepo repository.SnapshotRepository
	validator    *validation.Validator
	publisher    *queue.Publisher
	db           *sql.DB
}

// NewMessageService creates a new message service
func NewMessageService(
	messageRepo repository.MessageRepository,
	memberRepo repository.MemberRepository,
	groupRepo repository.GroupRepository,
	snapshotRepo repository.SnapshotRepository,
	validator *validation.Validator,
	publisher *queue.Publisher,
	db *sql.DB,
) *MessageService {
	return &MessageService{
		messageRepo:  messageRepo,
		memberRepo:   memberRepo,
		groupRepo:    groupRepo,
		snapshotRepo: snapshotRepo,
		validator:    validator,
		publisher:    publisher,
		db:           db,
	}
}

// CreateMessage creates a message in a group after running the form payload
// through the cross-field rules. A rejected payload never reaches storage.
func (s *MessageService) CreateMessage(ctx context.Context, groupID int, ownerID string, form *validation.MessageForm) (*models.MessageWithReminders, error) {
	// Get group
	group, err := s.groupRepo.GetByID(ctx, groupID, ownerID)
	if err != nil {
		return nil, &NotFoundError{Resource: "group", ID: groupID}
	}

	if group.IsArchived {
		return nil, &BusinessLogicError{Message: "cannot create messages in an archived group"}
	}

	// A new message starts as a draft unless the form queues it directly
	status := models.MessageStatusDraft
	if form.Status != "" {
		status = models.MessageStatus(form.Status)
		if status != models.MessageStatusDraft && status != models.MessageStatusPending {
			return nil, &ValidationError{Message: "status must be 'draft' or 'pending'"}
		}
	}

	// Run the cross-field rules
	input, errs := s.validator.ValidateForm(form, time.Now())
	if len(errs) > 0 {
		return nil, &ValidationError{Message: "message has invalid fields", Fields: errs}
	}

	// Create message model
	message := &models.Message{
		GroupID:   groupID,
		OwnerID:   ownerID,
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	reminders := applyInput(message, input)

	// Save to database
	if err := s.messageRepo.Create(ctx, message, reminders); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return &models.MessageWithReminders{Message: *message, Reminders: reminders}, nil
}

// GetMessage retrieves a message with its reminders
func (s *MessageService) GetMessage(ctx context.Context, id int, ownerID string) (*models.MessageWithReminders, error) {
	message, err := s.messageRepo.GetWithReminders(ctx, id, ownerID)
	if err != nil {
		return nil, &NotFoundError{Resource: "message", ID: id}
	}
	return message, nil
}

// ListMessages lists a group's messages with filters
func (s *MessageService) ListMessages(ctx context.Context, groupID int, ownerID string, filters repository.MessageFilters) ([]*models.Message, *PaginationInfo, error) {
	// Verify the group exists and belongs to the caller
	if _, err := s.groupRepo.GetByID(ctx, groupID, ownerID); err != nil {
		return nil, nil, &NotFoundError{Resource: "group", ID: groupID}
	}

	messages, total, err := s.messageRepo.List(ctx, groupID, filters)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list messages: %w", err)
	}

	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	pagination := &PaginationInfo{
		Page:       filters.Page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	return messages, pagination, nil
}

// UpdateMessage edits a message through the same rules as creation. A sent
// one-off message is frozen; a sent recurring message stays editable because
// its next occurrence has not happened yet.
func (s *MessageService) UpdateMessage(ctx context.Context, id int, ownerID string, form *validation.MessageForm) (*models.MessageWithReminders, error) {
	// Get existing message
	message, err := s.messageRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, &NotFoundError{Resource: "message", ID: id}
	}

	if message.Status == models.MessageStatusSent && !message.IsRecurring {
		return nil, &BusinessLogicError{Message: "a sent message can no longer be edited"}
	}

	// The form may move the status forward (e.g. queueing a draft), never
	// backward
	if form.Status != "" && form.Status != string(message.Status) {
		next := models.MessageStatus(form.Status)
		if next != models.MessageStatusDraft && next != models.MessageStatusPending {
			return nil, &ValidationError{Message: "status must be 'draft' or 'pending'"}
		}
		if !message.CanTransition(next) {
			return nil, &BusinessLogicError{
				Message: fmt.Sprintf("cannot move message from %s to %s", message.Status, next),
			}
		}
		message.Status = next
	}

	// Run the cross-field rules
	input, errs := s.validator.ValidateForm(form, time.Now())
	if len(errs) > 0 {
		return nil, &ValidationError{Message: "message has invalid fields", Fields: errs}
	}

	reminders := applyInput(message, input)

	if err := s.messageRepo.Update(ctx, message, reminders); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	return &models.MessageWithReminders{Message: *message, Reminders: reminders}, nil
}

// DeleteMessage deletes a draft, pending or failed message. Sent messages
// are kept for history.
func (s *MessageService) DeleteMessage(ctx context.Context, id int, ownerID string) error {
	message, err := s.messageRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return &NotFoundError{Resource: "message", ID: id}
	}

	if message.Status == models.MessageStatusSent {
		return &BusinessLogicError{Message: "sent messages are kept for history and cannot be deleted"}
	}

	if err := s.messageRepo.Delete(ctx, id, ownerID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// Dispatch snapshots the group's deliverable recipients and queues the
// message for delivery. The roster read and the snapshot write happen in one
// transaction, so the batch reflects a single instant of the roster. An
// idempotency key that was already used replays the original batch instead
// of snapshotting again.
func (s *MessageService) Dispatch(ctx context.Context, id int, ownerID string, idempotencyKey string) (*DispatchResult, error) {
	// Ownership check up front, outside the transaction
	message, err := s.messageRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, &NotFoundError{Resource: "message", ID: id}
	}

	// Start transaction
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the message row; concurrent dispatches of the same message
	// serialize here
	locked, err := s.messageRepo.GetForDispatch(ctx, tx, message.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock message: %w", err)
	}

	// Replay: a key seen before returns the original batch untouched
	if idempotencyKey != "" {
		existing, err := s.snapshotRepo.GetDispatchByKey(ctx, tx, locked.ID, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if existing != nil {
			snapshots, err := s.snapshotRepo.ListBatch(ctx, existing.BatchID)
			if err != nil {
				return nil, fmt.Errorf("failed to load batch: %w", err)
			}
			return &DispatchResult{
				MessageID:      locked.ID,
				BatchID:        existing.BatchID,
				Status:         locked.Status,
				RecipientCount: len(snapshots),
				SentEarly:      existing.SentEarly,
				Replayed:       true,
			}, nil
		}
	}

	// Validate message can be dispatched
	if !locked.CanDispatch() {
		return nil, &BusinessLogicError{
			Message: fmt.Sprintf("message cannot be dispatched: status is %s", locked.Status),
		}
	}

	// Read the roster and project the snapshot inside the same transaction
	roster, err := s.memberRepo.ListRoster(ctx, tx, locked.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	batchID := uuid.New()
	snapshots := models.BuildSnapshots(locked.ID, batchID, roster)
	if len(snapshots) == 0 {
		return nil, &BusinessLogicError{Message: "group has no deliverable recipients"}
	}

	now := time.Now()
	sentEarly := locked.IsScheduled && locked.ScheduledDate != nil && locked.ScheduledDate.After(now)

	dispatch := &models.Dispatch{
		BatchID:   batchID,
		MessageID: locked.ID,
		SentEarly: sentEarly,
		CreatedAt: now,
	}
	if idempotencyKey != "" {
		dispatch.IdempotencyKey = &idempotencyKey
	}

	if err := s.snapshotRepo.CreateDispatch(ctx, tx, dispatch); err != nil {
		return nil, fmt.Errorf("failed to create dispatch: %w", err)
	}
	if err := s.snapshotRepo.CreateBatch(ctx, tx, snapshots); err != nil {
		return nil, fmt.Errorf("failed to create snapshots: %w", err)
	}

	// Queue the message and record the history flags. Retrying a failed
	// message latches has_retried; dispatching ahead of the scheduled date
	// latches is_sent_early.
	hasRetried := locked.Status == models.MessageStatusFailed
	if err := s.messageRepo.UpdateDispatchState(ctx, tx, locked.ID, models.MessageStatusPending, hasRetried, sentEarly); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Publish job to queue (outside transaction)
	if err := s.publisher.PublishDispatch(locked.ID, batchID.String()); err != nil {
		// Log error but don't fail - the batch is recorded and can be re-published
		log.Printf("Warning: Failed to publish dispatch %s to queue: %v", batchID, err)
	}

	return &DispatchResult{
		MessageID:      locked.ID,
		BatchID:        batchID,
		Status:         models.MessageStatusPending,
		RecipientCount: len(snapshots),
		SentEarly:      sentEarly,
	}, nil
}

// GetRecipients lists the snapshot batch of a dispatch. With no batch ID it
// returns the most recent one; a message never dispatched has no recipients.
func (s *MessageService) GetRecipients(ctx context.Context, id int, ownerID string, batchID *uuid.UUID) (*RecipientsResult, error) {
	// Get message
	message, err := s.messageRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, &NotFoundError{Resource: "message", ID: id}
	}

	dispatches, err := s.snapshotRepo.ListDispatches(ctx, message.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatches: %w", err)
	}

	result := &RecipientsResult{
		MessageID:  message.ID,
		Dispatches: dispatches,
		Recipients: []*models.MemberSnapshot{},
	}
	if len(dispatches) == 0 {
		return result, nil
	}

	// Pick the requested batch, newest otherwise
	selected := dispatches[0].BatchID
	if batchID != nil {
		found := false
		for _, d := range dispatches {
			if d.BatchID == *batchID {
				found = true
				break
			}
		}
		if !found {
			return nil, &ValidationError{Message: "unknown batch ID for this message"}
		}
		selected = *batchID
	}

	snapshots, err := s.snapshotRepo.ListBatch(ctx, selected)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	result.BatchID = &selected
	result.Recipients = snapshots
	return result, nil
}

// applyInput copies an accepted edit onto a message and returns its reminder
// rows. Companions of disabled toggles are dropped so storage stays canonical.
func applyInput(message *models.Message, input *validation.MessageInput) []*models.Reminder {
	message.Content = input.Content
	message.Subject = input.Subject
	message.IsScheduled = input.IsScheduled
	message.ScheduledDate = input.ScheduledDate
	message.IsRecurring = input.IsRecurring
	message.RecurringNum = input.RecurringNum
	message.RecurringPeriod = input.RecurringPeriod
	message.IsReminders = input.IsReminders

	if !message.IsScheduled {
		message.ScheduledDate = nil
	}
	if !message.IsRecurring {
		message.RecurringNum = nil
		message.RecurringPeriod = nil
	}
	message.Type = message.DeriveType()

	var reminders []*models.Reminder
	if message.IsReminders {
		reminders = make([]*models.Reminder, 0, len(input.Reminders))
		for _, r := range input.Reminders {
			reminders = append(reminders, &models.Reminder{
				MessageID: message.ID,
				Num:       r.Num,
				Period:    r.Period,
				IsIgnored: r.IsIgnored,
			})
		}
	}
	return reminders
}

// Request/Response types

// DispatchResult represents the outcome of a dispatch call
type DispatchResult struct {
	MessageID      int                  `json:"message_id"`
	BatchID        uuid.UUID            `json:"batch_id"`
	Status         models.MessageStatus `json:"status"`
	RecipientCount int                  `json:"recipient_count"`
	SentEarly      bool                 `json:"sent_early"`
	Replayed       bool                 `json:"replayed"`
}

// RecipientsResult represents the snapshot recipients of a dispatch batch
type RecipientsResult struct {
	MessageID  int                      `json:"message_id"`
	BatchID    *uuid.UUID               `json:"batch_id,omitempty"`
	Dispatches []*models.Dispatch       `json:"dispatches"`
	Recipients []*models.MemberSnapshot `json:"recipients"`
}

// PaginationInfo represents pagination metadata
type PaginationInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}
