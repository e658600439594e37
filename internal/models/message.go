package models

import "time"

// MessageStatus represents valid message statuses
type MessageStatus string

const (
	MessageStatusDraft   MessageStatus = "draft"
	MessageStatusPending MessageStatus = "pending"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusFailed  MessageStatus = "failed"
)

// Valid checks if the status is one of the known lifecycle states
func (s MessageStatus) Valid() bool {
	switch s {
	case MessageStatusDraft, MessageStatusPending, MessageStatusSent, MessageStatusFailed:
		return true
	}
	return false
}

// MessageType labels how a message goes out, derived from its scheduling flags
type MessageType string

const (
	MessageTypeDefault   MessageType = "default"
	MessageTypeScheduled MessageType = "scheduled"
	MessageTypeRecurring MessageType = "recurring"
)

// Message represents a message addressed to a group's roster
type Message struct {
	ID              int           `json:"id" db:"id"`
	GroupID         int           `json:"group_id" db:"group_id"`
	OwnerID         string        `json:"owner_id" db:"owner_id"`
	Content         string        `json:"content" db:"content"`
	Subject         *string       `json:"subject,omitempty" db:"subject"`
	Status          MessageStatus `json:"status" db:"status"`
	Type            MessageType   `json:"type" db:"type"`
	IsScheduled     bool          `json:"is_scheduled" db:"is_scheduled"`
	ScheduledDate   *time.Time    `json:"scheduled_date,omitempty" db:"scheduled_date"`
	IsRecurring     bool          `json:"is_recurring" db:"is_recurring"`
	RecurringNum    *int          `json:"recurring_num,omitempty" db:"recurring_num"`
	RecurringPeriod *Period       `json:"recurring_period,omitempty" db:"recurring_period"`
	IsReminders     bool          `json:"is_reminders" db:"is_reminders"`
	HasRetried      bool          `json:"has_retried" db:"has_retried"`
	IsSentEarly     bool          `json:"is_sent_early" db:"is_sent_early"`
	LastError       *string       `json:"last_error,omitempty" db:"last_error"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// MessageWithReminders represents a message with its reminder rows
type MessageWithReminders struct {
	Message
	Reminders []*Reminder `json:"reminders"`
}

// DeriveType returns the type label implied by the scheduling flags.
// Recurring wins over scheduled when both are set.
func (m *Message) DeriveType() MessageType {
	switch {
	case m.IsRecurring:
		return MessageTypeRecurring
	case m.IsScheduled:
		return MessageTypeScheduled
	default:
		return MessageTypeDefault
	}
}

// CanTransition checks if the status may move to next. Status only moves
// forward: failed is reachable from pending, a retry re-enters pending, and a
// recurring message re-enters pending for its next occurrence.
func (m *Message) CanTransition(next MessageStatus) bool {
	switch m.Status {
	case MessageStatusDraft:
		return next == MessageStatusPending
	case MessageStatusPending:
		return next == MessageStatusSent || next == MessageStatusFailed
	case MessageStatusFailed:
		return next == MessageStatusPending
	case MessageStatusSent:
		return next == MessageStatusPending && m.IsRecurring
	}
	return false
}

// CanDispatch checks if a delivery batch may be started from the current status
func (m *Message) CanDispatch() bool {
	switch m.Status {
	case MessageStatusDraft, MessageStatusPending, MessageStatusFailed:
		return true
	case MessageStatusSent:
		return m.IsRecurring
	}
	return false
}

// IsDue checks if the message is ready to go out at instant now. Unscheduled
// messages are always due; scheduled ones wait for their date.
func (m *Message) IsDue(now time.Time) bool {
	if !m.IsScheduled || m.ScheduledDate == nil {
		return true
	}
	return !m.ScheduledDate.After(now)
}

// NextOccurrence returns the send date advanced by one recurrence step, or nil
// when the message has no usable cadence.
func (m *Message) NextOccurrence(from time.Time) *time.Time {
	if !m.IsRecurring || m.RecurringNum == nil || m.RecurringPeriod == nil {
		return nil
	}
	next := m.RecurringPeriod.AddTo(from, *m.RecurringNum)
	return &next
}
