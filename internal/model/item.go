package model

import (
	"time"
)

// Item represents a single unit of work inside a todo list.
type Item struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Text      string     `json:"text"`
	IsDone    bool       `json:"is_done"`
	DeletedAt *time.Time `json:"deleted_at"`
}

// Active reports whether the item has not been soft-deleted.
func (i *Item) Active() bool {
	return i.DeletedAt == nil
}

// CreateItemRequest represents the request body for creating an item.
type CreateItemRequest struct {
	TodoListID string `json:"todolist_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Text       string `json:"text"`
}

// Validate checks if the CreateItemRequest is valid.
func (r *CreateItemRequest) Validate() error {
	return validateStruct(r)
}

// ItemActionResponse is returned by item operations that resolve the owning list.
type ItemActionResponse struct {
	TodoListID string `json:"todolist_id"`
}
