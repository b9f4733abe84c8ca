package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hiroki-koketsu/go-todolists/internal/model"
	"github.com/hiroki-koketsu/go-todolists/internal/repository"
	"github.com/hiroki-koketsu/go-todolists/internal/telemetry"
	"github.com/hiroki-koketsu/go-todolists/internal/web"
)

// WebHandler serves the server-rendered pages and their form posts.
// Every successful form post redirects with 303 See Other.
type WebHandler struct {
	instrumented
	store    *repository.Store
	renderer *web.Renderer
}

// NewWebHandler creates a new WebHandler.
func NewWebHandler(store *repository.Store, renderer *web.Renderer, logger *slog.Logger, metrics *telemetry.Metrics) *WebHandler {
	return &WebHandler{
		instrumented: instrumented{logger: logger, metrics: metrics},
		store:        store,
		renderer:     renderer,
	}
}

// Routes returns the chi router with the page routes.
func (h *WebHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Index)
	r.Post("/todolists/", h.CreateTodoList)
	r.Post("/todolists/{id}/delete", h.DeleteTodoList)
	r.Get("/todolists/{id}/view", h.ViewTodoList)
	r.Post("/items/", h.CreateItem)
	r.Post("/items/{id}/toggle", h.ToggleItem)
	r.Post("/items/{id}/delete", h.DeleteItem)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.renderError(r.Context(), w, http.StatusNotFound, "page not found")
	})

	return r
}

type errorPage struct {
	Status  int
	Title   string
	Message string
}

// Index renders all active lists.
func (h *WebHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "WebHandler.Index")
	defer span.End()

	lists := h.store.ListActiveTodoLists(ctx)
	span.SetAttributes(attribute.Int("todolist.count", len(lists)))

	status := h.render(w, r.WithContext(ctx), "index.html", map[string]any{"TodoLists": lists})
	h.recordMetrics(ctx, "GET", "/", status, start)
}

// CreateTodoList handles the new list form.
func (h *WebHandler) CreateTodoList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "WebHandler.CreateTodoList")
	defer span.End()

	req := model.CreateTodoListRequest{Name: r.PostFormValue("name")}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "validation failed", slog.Any("error", err))
		h.renderError(ctx, w, http.StatusBadRequest, err.Error())
		h.recordMetrics(ctx, "POST", "/todolists/", http.StatusBadRequest, start)
		return
	}

	l := h.store.CreateTodoList(ctx, req.Name)
	span.SetAttributes(attribute.String("todolist.id", l.ID))
	h.logger.InfoContext(ctx, "todolist created", slog.String("id", l.ID))

	http.Redirect(w, r, "/", http.StatusSeeOther)
	h.recordMetrics(ctx, "POST", "/todolists/", http.StatusSeeOther, start)
}

// DeleteTodoList soft-deletes a list.
func (h *WebHandler) DeleteTodoList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "WebHandler.DeleteTodoList",
		trace.WithAttributes(attribute.String("todolist.id", id)),
	)
	defer span.End()

	if err := h.store.SoftDeleteTodoList(ctx, id); err != nil {
		status := h.handleStoreError(ctx, w, err)
		h.recordMetrics(ctx, "POST", "/todolists/{id}/delete", status, start)
		return
	}

	h.logger.InfoContext(ctx, "todolist deleted", slog.String("id", id))
	http.Redirect(w, r, "/", http.StatusSeeOther)
	h.recordMetrics(ctx, "POST", "/todolists/{id}/delete", http.StatusSeeOther, start)
}

// ViewTodoList renders one list with its active items and progress.
func (h *WebHandler) ViewTodoList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "WebHandler.ViewTodoList",
		trace.WithAttributes(attribute.String("todolist.id", id)),
	)
	defer span.End()

	view, err := h.store.GetTodoListView(ctx, id)
	if err != nil {
		status := h.handleStoreError(ctx, w, err)
		h.recordMetrics(ctx, "GET", "/todolists/{id}/view", status, start)
		return
	}

	status := h.render(w, r.WithContext(ctx), "todolist.html", view)
	h.recordMetrics(ctx, "GET", "/todolists/{id}/view", status, start)
}

// CreateItem handles the new item form. text is optional.
func (h *WebHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "WebHandler.CreateItem")
	defer span.End()

	req := model.CreateItemRequest{
		TodoListID: r.PostFormValue("todolist_id"),
		Name:       r.PostFormValue("name"),
		Text:       r.PostFormValue("text"),
	}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "validation failed", slog.Any("error", err))
		h.renderError(ctx, w, http.StatusBadRequest, err.Error())
		h.recordMetrics(ctx, "POST", "/items/", http.StatusBadRequest, start)
		return
	}

	it, err := h.store.CreateItem(ctx, req.TodoListID, req.Name, req.Text)
	if err != nil {
		status := h.handleStoreError(ctx, w, err)
		h.recordMetrics(ctx, "POST", "/items/", status, start)
		return
	}

	span.SetAttributes(attribute.String("item.id", it.ID))
	h.logger.InfoContext(ctx, "item created", slog.String("id", it.ID), slog.String("todolist_id", req.TodoListID))

	http.Redirect(w, r, listViewPath(req.TodoListID), http.StatusSeeOther)
	h.recordMetrics(ctx, "POST", "/items/", http.StatusSeeOther, start)
}

// ToggleItem flips an item and returns to its list.
func (h *WebHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "WebHandler.ToggleItem",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	listID, err := h.store.ToggleItem(ctx, id)
	if err != nil {
		status := h.handleStoreError(ctx, w, err)
		h.recordMetrics(ctx, "POST", "/items/{id}/toggle", status, start)
		return
	}

	h.logger.InfoContext(ctx, "item toggled", slog.String("id", id))
	http.Redirect(w, r, listViewPath(listID), http.StatusSeeOther)
	h.recordMetrics(ctx, "POST", "/items/{id}/toggle", http.StatusSeeOther, start)
}

// DeleteItem soft-deletes an item and returns to its list.
func (h *WebHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "WebHandler.DeleteItem",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	listID, err := h.store.SoftDeleteItem(ctx, id)
	if err != nil {
		status := h.handleStoreError(ctx, w, err)
		h.recordMetrics(ctx, "POST", "/items/{id}/delete", status, start)
		return
	}

	h.logger.InfoContext(ctx, "item deleted", slog.String("id", id))
	http.Redirect(w, r, listViewPath(listID), http.StatusSeeOther)
	h.recordMetrics(ctx, "POST", "/items/{id}/delete", http.StatusSeeOther, start)
}

func listViewPath(id string) string {
	return "/todolists/" + id + "/view"
}

// handleStoreError renders the error page for a store failure and returns
// the status written.
func (h *WebHandler) handleStoreError(ctx context.Context, w http.ResponseWriter, err error) int {
	switch {
	case model.IsNotFound(err):
		h.logger.WarnContext(ctx, "not found", slog.Any("error", err))
		h.renderError(ctx, w, http.StatusNotFound, err.Error())
		return http.StatusNotFound
	default:
		h.logger.ErrorContext(ctx, "request failed", slog.Any("error", err))
		h.renderError(ctx, w, http.StatusInternalServerError, "an internal error occurred")
		return http.StatusInternalServerError
	}
}

func (h *WebHandler) render(w http.ResponseWriter, r *http.Request, name string, data any) int {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func (h *WebHandler) renderError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page := errorPage{Status: status, Title: http.StatusText(status), Message: message}
	if err := h.renderer.Render(w, "error.html", page); err != nil {
		h.logger.ErrorContext(ctx, "failed to render error page", slog.Any("error", err))
	}
}
