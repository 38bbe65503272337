package leads

import (
	"errors"
	"strings"
)

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("leads: lead not found")

	// ErrInvalidLead matches every *ValidationError
	ErrInvalidLead = errors.New("leads: invalid lead record")
)

// ValidationError rejects a record that fails the schema check. The
// conversation result it came from stays valid.
type ValidationError struct {
	Problems []string
	Err      error
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrInvalidLead.Error()
	}
	return ErrInvalidLead.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidLead }
