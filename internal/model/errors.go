package model

import "errors"

// DomainError represents a domain error for lists and items.
type DomainError struct {
	Message string
}

func (e DomainError) Error() string {
	return e.Message
}

var (
	ErrTodoListNotFound   = DomainError{Message: "todolist not found"}
	ErrItemNotFound       = DomainError{Message: "item not found"}
	ErrNameRequired       = DomainError{Message: "name is required"}
	ErrTodoListIDRequired = DomainError{Message: "todolist_id is required"}
)

// IsNotFound reports whether err refers to a missing or soft-deleted entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTodoListNotFound) || errors.Is(err, ErrItemNotFound)
}
