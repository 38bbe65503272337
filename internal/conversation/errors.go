package conversation

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrBackendTimeout means the remote call exceeded its deadline. It is not retried.
	ErrBackendTimeout = errors.New("conversation: backend timed out")
	// ErrBackendRateLimited means the provider throttled the request. It is not retried.
	ErrBackendRateLimited = errors.New("conversation: backend rate limited")
	// ErrMalformedResponse means the reply stayed unparseable after one repair request.
	ErrMalformedResponse = errors.New("conversation: malformed backend response")

	ErrEmptyUtterance  = errors.New("conversation: empty message")
	ErrTurnInProgress  = errors.New("conversation: a turn is already in progress")
	ErrSessionClosed   = errors.New("conversation: session has ended")
	ErrSessionNotFound = errors.New("conversation: session not found")
	ErrCooldown        = errors.New("conversation: cooldown active")
)

// CooldownError rejects a send made inside the cooldown window. Remaining is
// what the caller can show as a countdown.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("conversation: wait %d seconds before sending another message", e.Seconds())
}

// Seconds rounds the remaining time up to whole seconds.
func (e *CooldownError) Seconds() int {
	return int(math.Ceil(e.Remaining.Seconds()))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldown
}

// Retryable reports whether the user may resend the same message after err.
// Every turn failure leaves the session state untouched.
func Retryable(err error) bool {
	return errors.Is(err, ErrBackendTimeout) ||
		errors.Is(err, ErrBackendRateLimited) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrCooldown)
}
