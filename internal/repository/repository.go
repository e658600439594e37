package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"groupcast/internal/models"
)

// GroupRepository defines group data access operations. Reads are scoped to
// the owning user; a group another user owns behaves as absent.
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id int, ownerID string) (*models.Group, error)
	List(ctx context.Context, ownerID string, includeArchived bool, limit, offset int) ([]*models.GroupWithCounts, error)
	Update(ctx context.Context, group *models.Group) error
	SetArchived(ctx context.Context, id int, ownerID string, archived bool) error
}

// ContactRepository defines contact data access operations
type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	GetByID(ctx context.Context, id int, ownerID string) (*models.Contact, error)
	GetByIDs(ctx context.Context, ownerID string, ids []int) ([]*models.Contact, error)
	List(ctx context.Context, ownerID, search string, limit, offset int) ([]*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, id int, ownerID string) error
}

// MemberRepository defines roster data access operations. Ownership checks
// go through the member's group.
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	GetByGroupAndContact(ctx context.Context, groupID, contactID int, ownerID string) (*models.MemberWithContact, error)
	ExistsInGroup(ctx context.Context, groupID, contactID int) (bool, error)
	ListRoster(ctx context.Context, db DB, groupID int) ([]*models.MemberWithContact, error)
	Update(ctx context.Context, member *models.Member) error
	Delete(ctx context.Context, groupID, contactID int, ownerID string) error
}

// MessageRepository defines message and reminder data access operations
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message, reminders []*models.Reminder) error
	GetByID(ctx context.Context, id int, ownerID string) (*models.Message, error)
	GetWithReminders(ctx context.Context, id int, ownerID string) (*models.MessageWithReminders, error)
	GetForDispatch(ctx context.Context, db DB, id int) (*models.Message, error)
	List(ctx context.Context, groupID int, filters MessageFilters) ([]*models.Message, int, error)
	Update(ctx context.Context, message *models.Message, reminders []*models.Reminder) error
	UpdateStatus(ctx context.Context, db DB, id int, status models.MessageStatus, lastError *string) error
	UpdateDispatchState(ctx context.Context, db DB, id int, status models.MessageStatus, hasRetried, isSentEarly bool) error
	UpdateScheduledDate(ctx context.Context, db DB, id int, date time.Time) error
	Delete(ctx context.Context, id int, ownerID string) error
}

// MessageFilters defines filters for listing a group's messages
type MessageFilters struct {
	Page     int
	PageSize int
	Status   *models.MessageStatus
	Type     *models.MessageType
}

// SnapshotRepository defines dispatch batch and member snapshot data access
// operations. Snapshot rows are insert-only; nothing here updates them.
type SnapshotRepository interface {
	CreateDispatch(ctx context.Context, db DB, dispatch *models.Dispatch) error
	CreateBatch(ctx context.Context, db DB, snapshots []*models.MemberSnapshot) error
	GetDispatchByKey(ctx context.Context, db DB, messageID int, key string) (*models.Dispatch, error)
	ListDispatches(ctx context.Context, messageID int) ([]*models.Dispatch, error)
	ListBatch(ctx context.Context, batchID uuid.UUID) ([]*models.MemberSnapshot, error)
}

// DB is a wrapper around *sql.DB to allow passing in transaction
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}
