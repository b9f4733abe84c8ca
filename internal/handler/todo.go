package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hiroki-koketsu/go-todolists/internal/model"
	"github.com/hiroki-koketsu/go-todolists/internal/repository"
	"github.com/hiroki-koketsu/go-todolists/internal/telemetry"
)

// TodoHandler serves the JSON API for lists and items.
type TodoHandler struct {
	instrumented
	store *repository.Store
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(store *repository.Store, logger *slog.Logger, metrics *telemetry.Metrics) *TodoHandler {
	return &TodoHandler{
		instrumented: instrumented{logger: logger, metrics: metrics},
		store:        store,
	}
}

// Routes returns the chi router with list and item routes.
func (h *TodoHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/todolists", h.ListTodoLists)
	r.Post("/todolists", h.CreateTodoList)
	r.Get("/todolists/{id}", h.GetTodoList)
	r.Delete("/todolists/{id}", h.DeleteTodoList)

	r.Post("/items", h.CreateItem)
	r.Get("/items/{id}", h.GetItem)
	r.Post("/items/{id}/toggle", h.ToggleItem)
	r.Delete("/items/{id}", h.DeleteItem)

	return r
}

// ListTodoLists returns all active lists.
func (h *TodoHandler) ListTodoLists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TodoHandler.ListTodoLists")
	defer span.End()

	lists := h.store.ListActiveTodoLists(ctx)

	span.SetAttributes(attribute.Int("todolist.count", len(lists)))
	h.logger.InfoContext(ctx, "todolists listed", slog.Int("count", len(lists)))

	respondJSON(w, http.StatusOK, lists)
	h.recordMetrics(ctx, "GET", "/api/v1/todolists", http.StatusOK, start)
}

// CreateTodoList adds a new list.
func (h *TodoHandler) CreateTodoList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TodoHandler.CreateTodoList")
	defer span.End()

	var req model.CreateTodoListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		respondError(w, http.StatusBadRequest, "invalid request body")
		h.recordMetrics(ctx, "POST", "/api/v1/todolists", http.StatusBadRequest, start)
		return
	}

	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "validation failed", slog.Any("error", err))
		respondError(w, http.StatusBadRequest, err.Error())
		h.recordMetrics(ctx, "POST", "/api/v1/todolists", http.StatusBadRequest, start)
		return
	}

	l := h.store.CreateTodoList(ctx, req.Name)

	span.SetAttributes(attribute.String("todolist.id", l.ID))
	h.logger.InfoContext(ctx, "todolist created", slog.String("id", l.ID))

	respondJSON(w, http.StatusCreated, l)
	h.recordMetrics(ctx, "POST", "/api/v1/todolists", http.StatusCreated, start)
}

// GetTodoList returns a list with its active items and progress.
func (h *TodoHandler) GetTodoList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TodoHandler.GetTodoList",
		trace.WithAttributes(attribute.String("todolist.id", id)),
	)
	defer span.End()

	view, err := h.store.GetTodoListView(ctx, id)
	if err != nil {
		status := h.handleStoreError(ctx, w, err)
		h.recordMetrics(ctx, "GET", "/api/v1/todolists/{id}", status, start)
		return
	}

	respondJSON(w, http.StatusOK, view)
	h.recordMetrics(ctx, "GET", "/api/v1/todolists/{id}", http.StatusOK, start)
}

// DeleteTodoList soft-deletes a list.
func (h *TodoHandler) DeleteTodoList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TodoHandler.DeleteTodoList",
		trace.WithAttributes(attribute.String("todolist.id", id)),
	)
	defer span.End()

	if err := h.store.SoftDeleteTodoList(ctx, id); err != nil {
		status := h.handleStoreError(ctx, w, err)
		h.recordMetrics(ctx, "DELETE", "/api/v1/todolists/{id}", status, start)
		return
	}

	h.logger.InfoContext(ctx, "todolist deleted", slog.String("id", id))

	w.WriteHeader(http.StatusNoContent)
	h.recordMetrics(ctx, "DELETE", "/api/v1/todolists/{id}", http.StatusNoContent, start)
}

// CreateItem adds an item to a list.
func (h *TodoHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TodoHandler.CreateItem")
	defer span.End()

	var req model.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		respondError(w, http.StatusBadRequest, "invalid request body")
		h.recordMetrics(ctx, "POST", "/api/v1/items", http.StatusBadRequest, start)
		return
	}

	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "validation failed", slog.Any("error", err))
		respondError(w, http.StatusBadRequest, err.Error())
		h.recordMetrics(ctx, "POST", "/api/v1/items", http.StatusBadRequest, start)
		return
	}

	it, err := h.store.CreateItem(ctx, req.TodoListID, req.Name, req.Text)
	if err != nil {
		status := h.handleStoreError(ctx, w, err)
		h.recordMetrics(ctx, "POST", "/api/v1/items", status, start)
		return
	}

	span.SetAttributes(attribute.String("item.id", it.ID))
	h.logger.InfoContext(ctx, "item created", slog.String("id", it.ID), slog.String("todolist_id", req.TodoListID))

	respondJSON(w, http.StatusCreated, it)
	h.recordMetrics(ctx, "POST", "/api/v1/items", http.StatusCreated, start)
}

// GetItem returns an active item by ID.
func (h *TodoHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TodoHandler.GetItem",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	it, err := h.store.GetItem(ctx, id)
	if err != nil {
		status := h.handleStoreError(ctx, w, err)
		h.recordMetrics(ctx, "GET", "/api/v1/items/{id}", status, start)
		return
	}

	respondJSON(w, http.StatusOK, it)
	h.recordMetrics(ctx, "GET", "/api/v1/items/{id}", http.StatusOK, start)
}

// ToggleItem flips an item's done flag.
func (h *TodoHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TodoHandler.ToggleItem",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	listID, err := h.store.ToggleItem(ctx, id)
	if err != nil {
		status := h.handleStoreError(ctx, w, err)
		h.recordMetrics(ctx, "POST", "/api/v1/items/{id}/toggle", status, start)
		return
	}

	h.logger.InfoContext(ctx, "item toggled", slog.String("id", id))

	respondJSON(w, http.StatusOK, model.ItemActionResponse{TodoListID: listID})
	h.recordMetrics(ctx, "POST", "/api/v1/items/{id}/toggle", http.StatusOK, start)
}

// DeleteItem soft-deletes an item.
func (h *TodoHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TodoHandler.DeleteItem",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	listID, err := h.store.SoftDeleteItem(ctx, id)
	if err != nil {
		status := h.handleStoreError(ctx, w, err)
		h.recordMetrics(ctx, "DELETE", "/api/v1/items/{id}", status, start)
		return
	}

	h.logger.InfoContext(ctx, "item deleted", slog.String("id", id))

	respondJSON(w, http.StatusOK, model.ItemActionResponse{TodoListID: listID})
	h.recordMetrics(ctx, "DELETE", "/api/v1/items/{id}", http.StatusOK, start)
}

// handleStoreError writes the JSON error for a store failure and returns
// the status written.
func (h *TodoHandler) handleStoreError(ctx context.Context, w http.ResponseWriter, err error) int {
	switch {
	case errors.Is(err, model.ErrTodoListNotFound):
		h.logger.WarnContext(ctx, "todolist not found", slog.Any("error", err))
		respondError(w, http.StatusNotFound, err.Error())
		return http.StatusNotFound
	case errors.Is(err, model.ErrItemNotFound):
		h.logger.WarnContext(ctx, "item not found", slog.Any("error", err))
		respondError(w, http.StatusNotFound, err.Error())
		return http.StatusNotFound
	default:
		h.logger.ErrorContext(ctx, "request failed", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "an internal error occurred")
		return http.StatusInternalServerError
	}
}
