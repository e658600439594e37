package validation

import (
	"fmt"
	"strings"
	"time"

	"groupcast/internal/models"
)

// Form date layouts, tried in order. The UI posts datetime-local values
// without a zone; those are taken as UTC.
var formDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// MessageForm is the edit-form shape of a message: toggles arrive as yes/no
// strings and dates as strings, exactly as the UI posts them. Field names
// here must stay in lockstep with the form, because validation errors are
// routed back to fields by these names.
type MessageForm struct {
	Content         string         `json:"content"`
	Subject         *string        `json:"subject,omitempty"`
	Status          string         `json:"status,omitempty"`
	IsScheduled     string         `json:"isScheduled"`
	ScheduledDate   string         `json:"scheduledDate,omitempty"`
	IsRecurring     string         `json:"isRecurring"`
	RecurringNum    *int           `json:"recurringNum,omitempty"`
	RecurringPeriod string         `json:"recurringPeriod,omitempty"`
	IsReminders     string         `json:"isReminders"`
	Reminders       []ReminderForm `json:"reminders,omitempty"`
}

// ReminderForm is one reminder row as the form posts it
type ReminderForm struct {
	Num       int    `json:"num"`
	Period    string `json:"period"`
	IsIgnored string `json:"isIgnored,omitempty"`
}

// ValidateForm coerces a form payload into the storage-mode shape and runs
// the cross-field rules on the result. Both modes share the same rules; this
// adapter only converts representation. On failure the input is withheld so
// callers cannot persist a rejected edit.
func (v *Validator) ValidateForm(form *MessageForm, now time.Time) (*MessageInput, Errors) {
	input, errs := coerceForm(form)
	if len(errs) > 0 {
		return nil, errs
	}
	if errs = v.Validate(input, now); len(errs) > 0 {
		return nil, errs
	}
	return input, nil
}

// coerceForm converts yes/no strings and date strings to native types.
// Coercion failures come back on the same field paths the UI posted.
func coerceForm(form *MessageForm) (*MessageInput, Errors) {
	var errs Errors

	input := &MessageInput{
		Content: form.Content,
		Subject: form.Subject,
	}

	input.IsScheduled = parseYesNo(form.IsScheduled, "isScheduled", &errs)
	input.IsRecurring = parseYesNo(form.IsRecurring, "isRecurring", &errs)
	input.IsReminders = parseYesNo(form.IsReminders, "isReminders", &errs)

	if form.ScheduledDate != "" {
		if date, ok := parseFormDate(form.ScheduledDate); ok {
			input.ScheduledDate = &date
		} else {
			errs = append(errs, FieldError{
				Path:    []string{"scheduledDate"},
				Message: "scheduled date is not a valid date",
			})
		}
	}

	input.RecurringNum = form.RecurringNum
	if form.RecurringPeriod != "" {
		period := models.Period(form.RecurringPeriod)
		if !period.Valid() {
			errs = append(errs, FieldError{
				Path:    []string{"recurringPeriod"},
				Message: fmt.Sprintf("%q is not a valid period", form.RecurringPeriod),
			})
		} else {
			input.RecurringPeriod = &period
		}
	}

	for _, row := range form.Reminders {
		period := models.Period(row.Period)
		if !period.Valid() {
			errs = append(errs, FieldError{
				Path:    []string{"reminders"},
				Message: fmt.Sprintf("%q is not a valid period", row.Period),
			})
			continue
		}
		input.Reminders = append(input.Reminders, ReminderInput{
			Num:       row.Num,
			Period:    period,
			IsIgnored: parseYesNo(row.IsIgnored, "reminders", &errs),
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return input, nil
}

// parseYesNo maps the form's toggle enumeration onto a boolean. An empty
// value is an unchecked toggle, not an error.
func parseYesNo(value, field string, errs *Errors) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes":
		return true
	case "no", "":
		return false
	}
	*errs = append(*errs, FieldError{
		Path:    []string{field},
		Message: fmt.Sprintf("%s must be \"yes\" or \"no\"", field),
	})
	return false
}

func parseFormDate(value string) (time.Time, bool) {
	for _, layout := range formDateLayouts {
		if date, err := time.Parse(layout, value); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}
