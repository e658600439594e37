package validation

import (
	"fmt"
	"strings"
	"time"

	"groupcast/internal/models"
)

// FieldError represents a single field-scoped validation failure. Path names
// the form fields the failure belongs to, using the UI's field names.
type FieldError struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// Errors is the full set of failures one validation pass produced
type Errors []FieldError

// Error joins all failure messages, mostly for logging
func (e Errors) Error() string {
	messages := make([]string, len(e))
	for i, fieldErr := range e {
		messages[i] = fieldErr.Message
	}
	return strings.Join(messages, "; ")
}

// Policy carries the tunable ceilings the cross-field rules check against
type Policy struct {
	// RecurrenceCaps maps each period a cadence may use to its highest
	// allowed recurring number. Periods absent from the table are not
	// valid recurrence periods.
	RecurrenceCaps map[models.Period]int
	// ScheduleAheadYears bounds how far out a send can be scheduled.
	ScheduleAheadYears int
	// MinReminderLead is how far in the future a reminder's trigger must
	// still be at validation time.
	MinReminderLead time.Duration
}

// DefaultPolicy returns the ceilings the product ships with
func DefaultPolicy() Policy {
	return Policy{
		RecurrenceCaps: map[models.Period]int{
			models.PeriodDays:   31,
			models.PeriodWeeks:  52,
			models.PeriodMonths: 12,
			models.PeriodYears:  5,
		},
		ScheduleAheadYears: 1,
		MinReminderLead:    5 * time.Minute,
	}
}

// validReminderPeriods lists the periods a reminder offset may use.
// Years-long reminders are not a thing.
var validReminderPeriods = map[models.Period]bool{
	models.PeriodMinutes: true,
	models.PeriodHours:   true,
	models.PeriodDays:    true,
	models.PeriodWeeks:   true,
	models.PeriodMonths:  true,
}

// MessageInput is the storage-mode shape of a message edit: native booleans
// and dates, after any form coercion has happened.
type MessageInput struct {
	Content         string          `json:"content"`
	Subject         *string         `json:"subject,omitempty"`
	IsScheduled     bool            `json:"is_scheduled"`
	ScheduledDate   *time.Time      `json:"scheduled_date,omitempty"`
	IsRecurring     bool            `json:"is_recurring"`
	RecurringNum    *int            `json:"recurring_num,omitempty"`
	RecurringPeriod *models.Period  `json:"recurring_period,omitempty"`
	IsReminders     bool            `json:"is_reminders"`
	Reminders       []ReminderInput `json:"reminders,omitempty"`
}

// ReminderInput is one reminder row of a message edit
type ReminderInput struct {
	Num       int           `json:"num"`
	Period    models.Period `json:"period"`
	IsIgnored bool          `json:"is_ignored"`
}

// Validator applies the cross-field message rules against a policy table.
// It holds no clock of its own; callers pass "now" in, which keeps every
// rule a pure function.
type Validator struct {
	policy Policy
}

// NewValidator creates a validator with the given policy
func NewValidator(policy Policy) *Validator {
	return &Validator{policy: policy}
}

// Validate checks input against the cross-field rules at instant now and
// returns every failure it found. A nil return means the input passed.
// The input itself is never mutated.
func (v *Validator) Validate(input *MessageInput, now time.Time) Errors {
	var errs Errors

	if strings.TrimSpace(input.Content) == "" {
		errs = append(errs, FieldError{
			Path:    []string{"content"},
			Message: "content is required",
		})
	}

	errs = append(errs, v.checkRecurrence(input)...)
	errs = append(errs, v.checkSchedule(input, now)...)
	errs = append(errs, v.checkReminders(input, now)...)

	return errs
}

// checkRecurrence enforces the required-companion and cadence-cap rules
func (v *Validator) checkRecurrence(input *MessageInput) Errors {
	if !input.IsRecurring {
		return nil
	}

	var errs Errors
	if input.RecurringNum == nil {
		errs = append(errs, FieldError{
			Path:    []string{"recurringNum", "isRecurring"},
			Message: "a recurring number is required when recurring is enabled",
		})
	}
	if input.RecurringPeriod == nil {
		errs = append(errs, FieldError{
			Path:    []string{"recurringPeriod", "isRecurring"},
			Message: "a recurring period is required when recurring is enabled",
		})
	}
	if input.RecurringNum == nil || input.RecurringPeriod == nil {
		return errs
	}

	num, period := *input.RecurringNum, *input.RecurringPeriod
	ceiling, ok := v.policy.RecurrenceCaps[period]
	if !ok {
		return append(errs, FieldError{
			Path:    []string{"recurringPeriod", "isRecurring"},
			Message: fmt.Sprintf("%q is not a valid recurring period", string(period)),
		})
	}
	if num < 1 {
		return append(errs, FieldError{
			Path:    []string{"recurringNum", "isRecurring"},
			Message: "recurring number must be at least 1",
		})
	}
	if num > ceiling {
		errs = append(errs, FieldError{
			Path:    []string{"recurringNum", "recurringPeriod", "isRecurring"},
			Message: fmt.Sprintf("recurring number for %s cannot exceed %d", string(period), ceiling),
		})
	}
	return errs
}

// checkSchedule enforces the schedule window: strictly in the future and no
// further out than the policy horizon
func (v *Validator) checkSchedule(input *MessageInput, now time.Time) Errors {
	if !input.IsScheduled {
		return nil
	}

	if input.ScheduledDate == nil {
		return Errors{{
			Path:    []string{"scheduledDate", "isScheduled"},
			Message: "a scheduled date is required when scheduling is enabled",
		}}
	}

	date := *input.ScheduledDate
	if !date.After(now) {
		return Errors{{
			Path:    []string{"scheduledDate", "isScheduled"},
			Message: "scheduled date must be in the future",
		}}
	}
	horizon := now.AddDate(v.policy.ScheduleAheadYears, 0, 0)
	if date.After(horizon) {
		return Errors{{
			Path:    []string{"scheduledDate", "isScheduled"},
			Message: fmt.Sprintf("scheduled date cannot be more than %d year(s) ahead", v.policy.ScheduleAheadYears),
		}}
	}
	return nil
}

// checkReminders enforces the reminder lead-time rule. Every non-ignored
// reminder must trigger comfortably before the send date; one bad reminder
// fails the set.
func (v *Validator) checkReminders(input *MessageInput, now time.Time) Errors {
	if !input.IsReminders {
		return nil
	}

	if len(input.Reminders) == 0 {
		return Errors{{
			Path:    []string{"reminders", "isReminders"},
			Message: "at least one reminder is required when reminders are enabled",
		}}
	}
	if !input.IsScheduled || input.ScheduledDate == nil {
		return Errors{{
			Path:    []string{"reminders", "isScheduled"},
			Message: "reminders require a scheduled send date",
		}}
	}

	var errs Errors
	sendDate := *input.ScheduledDate
	earliest := now.Add(v.policy.MinReminderLead)
	for _, reminder := range input.Reminders {
		if reminder.IsIgnored {
			continue
		}
		if !validReminderPeriods[reminder.Period] {
			errs = append(errs, FieldError{
				Path:    []string{"reminders"},
				Message: fmt.Sprintf("%q is not a valid reminder period", string(reminder.Period)),
			})
			continue
		}
		if reminder.Num < 1 {
			errs = append(errs, FieldError{
				Path:    []string{"reminders"},
				Message: "reminder number must be at least 1",
			})
			continue
		}
		trigger := reminder.Period.SubtractFrom(sendDate, reminder.Num)
		if !trigger.After(earliest) {
			errs = append(errs, FieldError{
				Path: []string{"reminders"},
				Message: fmt.Sprintf("a reminder %d %s before the send date would already be due",
					reminder.Num, string(reminder.Period)),
			})
		}
	}
	return errs
}
