package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrStorage      = errors.New("storage error")
	ErrInvalidInput = errors.New("invalid input")
	ErrSessionGone  = errors.New("session closed")
)

// FieldError is a validation failure attributed to a single request field.
// It matches ErrInvalidInput under errors.Is.
type FieldError struct {
	Field   string
	Message string
}

// NewFieldError returns a FieldError for field with the given message.
func NewFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Is reports whether target is ErrInvalidInput.
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ItemNotFoundError reports a reference to an item the catalog does not know.
// It matches ErrNotFound under errors.Is.
type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return "item not found with ID: " + e.ItemID
}

// Is reports whether target is ErrNotFound.
func (e *ItemNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
