package qualify

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SlotStatus tells whether a slot has been answered.
type SlotStatus uint8

const (
	// SlotUnknown means the question has not been answered yet.
	SlotUnknown SlotStatus = iota
	// SlotResolved means the slot holds a value.
	SlotResolved
	// SlotRefused means the user declined to answer. It is terminal for every
	// slot except the contact channels, which accept a later correction.
	SlotRefused
)

// Refused is the wire form of SlotRefused.
const Refused = "refused"

func (s SlotStatus) String() string {
	switch s {
	case SlotResolved:
		return "resolved"
	case SlotRefused:
		return Refused
	default:
		return "unknown"
	}
}

// Slot is one field of the conversation state.
type Slot[T comparable] struct {
	Status SlotStatus
	Value  T
}

// Known returns a resolved slot holding v.
func Known[T comparable](v T) Slot[T] {
	return Slot[T]{Status: SlotResolved, Value: v}
}

// RefusedSlot returns a slot carrying the refusal sentinel.
func RefusedSlot[T comparable]() Slot[T] {
	return Slot[T]{Status: SlotRefused}
}

func (s Slot[T]) IsUnknown() bool  { return s.Status == SlotUnknown }
func (s Slot[T]) IsResolved() bool { return s.Status == SlotResolved }
func (s Slot[T]) IsRefused() bool  { return s.Status == SlotRefused }

// Answered reports whether the slot left the unknown state, by value or refusal.
func (s Slot[T]) Answered() bool { return s.Status != SlotUnknown }

// Get returns the value and whether it is resolved.
func (s Slot[T]) Get() (T, bool) {
	return s.Value, s.Status == SlotResolved
}

// MarshalJSON encodes unknown as null, refused as "refused" and resolved
// slots as their plain value.
func (s Slot[T]) MarshalJSON() ([]byte, error) {
	switch s.Status {
	case SlotResolved:
		return json.Marshal(s.Value)
	case SlotRefused:
		return json.Marshal(Refused)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *Slot[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Slot[T]{}
		return nil
	}
	if bytes.Equal(data, []byte(`"`+Refused+`"`)) {
		*s = Slot[T]{Status: SlotRefused}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("qualify: decode slot: %w", err)
	}
	if str, ok := any(v).(string); ok && str == "" {
		*s = Slot[T]{}
		return nil
	}
	*s = Known(v)
	return nil
}

// String renders the slot for summaries and exports.
func (s Slot[T]) String() string {
	switch s.Status {
	case SlotResolved:
		return fmt.Sprint(s.Value)
	case SlotRefused:
		return "n/a"
	default:
		return ""
	}
}
