package models

import "time"

// Member represents a contact's association with one group
type Member struct {
	ID          int       `json:"id" db:"id"`
	GroupID     int       `json:"group_id" db:"group_id"`
	ContactID   int       `json:"contact_id" db:"contact_id"`
	IsRecipient bool      `json:"is_recipient" db:"is_recipient"`
	Notes       string    `json:"notes" db:"notes"`
	CreatedBy   string    `json:"created_by" db:"created_by"`
	UpdatedBy   string    `json:"updated_by" db:"updated_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// MemberWithContact represents a membership with the contact behind it
type MemberWithContact struct {
	Member
	Contact Contact `json:"contact"`
}

// IsDeliverable checks if the member should receive sends: it must be flagged
// as a recipient and its contact must have at least one address populated.
func (m *MemberWithContact) IsDeliverable() bool {
	return m.IsRecipient && m.Contact.Reachable()
}
