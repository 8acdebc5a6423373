package booking

import (
	"errors"
	"fmt"
)

// ValidationError is a precondition failure caught before any request is
// issued. The message is user-facing.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a local precondition failure rather
// than a request failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func missingField(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "Please fill in the required " + field + " field."}
}

var (
	errNoDate      = &ValidationError{Field: "date", Message: "Please choose a date and an available time slot."}
	errBadDate     = &ValidationError{Field: "date", Message: "The selected date is not a valid calendar date."}
	errNoSlot      = &ValidationError{Field: "time", Message: "Please choose a date and an available time slot."}
	errUnknownSlot = &ValidationError{Field: "time", Message: "The selected time is not a bookable slot."}
	errSlotTaken   = &ValidationError{Field: "time", Message: "Time slot already booked. Please pick another time."}
)
