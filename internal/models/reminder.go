package models

import "time"

// Reminder represents a lead-time offset before a message's send date
type Reminder struct {
	ID        int       `json:"id" db:"id"`
	MessageID int       `json:"message_id" db:"message_id"`
	Num       int       `json:"num" db:"num"`
	Period    Period    `json:"period" db:"period"`
	IsIgnored bool      `json:"is_ignored" db:"is_ignored"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TriggerAt computes the instant the reminder fires for the given send date
func (r *Reminder) TriggerAt(sendDate time.Time) time.Time {
	return r.Period.SubtractFrom(sendDate, r.Num)
}
