package model

import (
	"math"
	"time"
)

// TodoList is a named, ordered collection of items.
// ItemIDs reference the store's item arena; TotalItems and CompletedItems
// are cached counts over active items and are refreshed by the store.
type TodoList struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ItemIDs        []string   `json:"item_ids"`
	DeletedAt      *time.Time `json:"deleted_at"`
	TotalItems     int        `json:"total_items"`
	CompletedItems int        `json:"completed_items"`
}

// Active reports whether the list has not been soft-deleted.
func (l *TodoList) Active() bool {
	return l.DeletedAt == nil
}

// Progress returns the completion percentage rounded to two decimals.
func (l *TodoList) Progress() float64 {
	if l.TotalItems == 0 {
		return 0.0
	}
	pct := float64(l.CompletedItems) / float64(l.TotalItems) * 100
	return math.Round(pct*100) / 100
}

// Clone returns a copy that shares no mutable state with l.
func (l *TodoList) Clone() TodoList {
	c := *l
	c.ItemIDs = append([]string(nil), l.ItemIDs...)
	if l.DeletedAt != nil {
		t := *l.DeletedAt
		c.DeletedAt = &t
	}
	return c
}

// TodoListView is a read-only projection of a list with its active items.
type TodoListView struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Items          []Item  `json:"items"`
	TotalItems     int     `json:"total_items"`
	CompletedItems int     `json:"completed_items"`
	Progress       float64 `json:"progress"`
}

// CreateTodoListRequest represents the request body for creating a list.
type CreateTodoListRequest struct {
	Name string `json:"name" validate:"required"`
}

// Validate checks if the CreateTodoListRequest is valid.
func (r *CreateTodoListRequest) Validate() error {
	return validateStruct(r)
}
