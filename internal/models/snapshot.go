package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispatch represents one delivery attempt of a message. Every dispatch owns
// an immutable batch of member snapshots keyed by BatchID.
type Dispatch struct {
	BatchID        uuid.UUID `json:"batch_id" db:"batch_id"`
	MessageID      int       `json:"message_id" db:"message_id"`
	IdempotencyKey *string   `json:"idempotency_key,omitempty" db:"idempotency_key"`
	SentEarly      bool      `json:"sent_early" db:"sent_early"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// MemberSnapshot represents a frozen copy of a member's contact details taken
// when a dispatch was created. Later member or contact edits never touch it.
type MemberSnapshot struct {
	ID           int       `json:"id" db:"id"`
	MessageID    int       `json:"message_id" db:"message_id"`
	BatchID      uuid.UUID `json:"batch_id" db:"batch_id"`
	MemberID     int       `json:"member_id" db:"member_id"`
	ContactName  string    `json:"contact_name" db:"contact_name"`
	ContactPhone *string   `json:"contact_phone,omitempty" db:"contact_phone"`
	ContactEmail *string   `json:"contact_email,omitempty" db:"contact_email"`
	IsRecipient  bool      `json:"is_recipient" db:"is_recipient"`
	Notes        string    `json:"notes" db:"notes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// BuildSnapshots projects a roster into the frozen batch recorded for one
// dispatch. Members that opted out, or whose contact has neither phone nor
// email, are left out entirely.
func BuildSnapshots(messageID int, batchID uuid.UUID, roster []*MemberWithContact) []*MemberSnapshot {
	snapshots := make([]*MemberSnapshot, 0, len(roster))
	for _, member := range roster {
		if !member.IsDeliverable() {
			continue
		}
		snapshots = append(snapshots, &MemberSnapshot{
			MessageID:    messageID,
			BatchID:      batchID,
			MemberID:     member.ID,
			ContactName:  member.Contact.Name,
			ContactPhone: member.Contact.Phone,
			ContactEmail: member.Contact.Email,
			IsRecipient:  member.IsRecipient,
			Notes:        member.Notes,
		})
	}
	return snapshots
}
