package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hiroki-koketsu/go-todolists/internal/model"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-todolists/internal/repository")

// Gateway loads the store once at startup and flushes it after every mutation.
type Gateway interface {
	Load(ctx context.Context) *model.Snapshot
	Save(ctx context.Context, snap *model.Snapshot)
}

// Store holds all todo lists and items in memory.
//
// Items live in a single arena keyed by id; lists only keep ordered item ids.
// owners maps every item id to the list it was created in. A single
// RWMutex serializes writers, and each mutation saves the full snapshot
// before releasing the lock.
type Store struct {
	mu      sync.RWMutex
	gateway Gateway
	now     func() time.Time

	lists     map[string]*model.TodoList
	listOrder []string
	items     map[string]*model.Item
	itemOrder []string
	owners    map[string]string
}

// NewStore creates a Store populated from the gateway.
func NewStore(ctx context.Context, gateway Gateway) *Store {
	ctx, span := tracer.Start(ctx, "Store.Load")
	defer span.End()

	s := &Store{
		gateway: gateway,
		now:     func() time.Time { return time.Now().UTC() },
		lists:   make(map[string]*model.TodoList),
		items:   make(map[string]*model.Item),
		owners:  make(map[string]string),
	}
	s.restore(gateway.Load(ctx))

	span.SetAttributes(
		attribute.Int("todolist.count", len(s.lists)),
		attribute.Int("item.count", len(s.items)),
	)
	return s
}

func (s *Store) restore(snap *model.Snapshot) {
	for i := range snap.Items {
		it := snap.Items[i]
		if _, dup := s.items[it.ID]; dup {
			continue
		}
		s.items[it.ID] = &it
		s.itemOrder = append(s.itemOrder, it.ID)
	}

	for i := range snap.TodoLists {
		l := snap.TodoLists[i].Clone()
		if _, dup := s.lists[l.ID]; dup {
			continue
		}
		ids := make([]string, 0, len(l.ItemIDs))
		for _, id := range l.ItemIDs {
			if _, ok := s.items[id]; !ok {
				continue
			}
			if _, owned := s.owners[id]; owned {
				continue
			}
			s.owners[id] = l.ID
			ids = append(ids, id)
		}
		l.ItemIDs = ids
		s.updateCounts(&l)
		s.lists[l.ID] = &l
		s.listOrder = append(s.listOrder, l.ID)
	}
}

// CreateTodoList adds a new, empty list.
func (s *Store) CreateTodoList(ctx context.Context, name string) model.TodoList {
	ctx, span := tracer.Start(ctx, "Store.CreateTodoList",
		trace.WithAttributes(attribute.String("todolist.name", name)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	l := &model.TodoList{
		ID:      uuid.New().String(),
		Name:    name,
		ItemIDs: []string{},
	}
	s.lists[l.ID] = l
	s.listOrder = append(s.listOrder, l.ID)
	s.persist(ctx)

	span.SetAttributes(attribute.String("todolist.id", l.ID))
	return l.Clone()
}

// SoftDeleteTodoList marks a list as deleted. Its items are left untouched.
func (s *Store) SoftDeleteTodoList(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Store.SoftDeleteTodoList",
		trace.WithAttributes(attribute.String("todolist.id", id)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[id]
	if !ok || !l.Active() {
		span.SetAttributes(attribute.Bool("todolist.found", false))
		return model.ErrTodoListNotFound
	}

	now := s.now()
	l.DeletedAt = &now
	s.persist(ctx)

	span.SetAttributes(attribute.Bool("todolist.found", true))
	return nil
}

// CreateItem appends a new item to an active list.
func (s *Store) CreateItem(ctx context.Context, todolistID, name, text string) (model.Item, error) {
	ctx, span := tracer.Start(ctx, "Store.CreateItem",
		trace.WithAttributes(
			attribute.String("todolist.id", todolistID),
			attribute.String("item.name", name),
		),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[todolistID]
	if !ok || !l.Active() {
		span.SetAttributes(attribute.Bool("todolist.found", false))
		return model.Item{}, model.ErrTodoListNotFound
	}

	it := &model.Item{
		ID:   uuid.New().String(),
		Name: name,
		Text: text,
	}
	s.items[it.ID] = it
	s.itemOrder = append(s.itemOrder, it.ID)
	s.owners[it.ID] = l.ID
	l.ItemIDs = append(l.ItemIDs, it.ID)
	s.updateCounts(l)
	s.persist(ctx)

	span.SetAttributes(attribute.String("item.id", it.ID))
	return *it, nil
}

// GetItem returns an active item by id, regardless of its list's state.
func (s *Store) GetItem(ctx context.Context, id string) (model.Item, error) {
	_, span := tracer.Start(ctx, "Store.GetItem",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok || !it.Active() {
		span.SetAttributes(attribute.Bool("item.found", false))
		return model.Item{}, model.ErrItemNotFound
	}

	span.SetAttributes(attribute.Bool("item.found", true))
	return *it, nil
}

// ToggleItem flips an item's done flag and returns its list id.
func (s *Store) ToggleItem(ctx context.Context, itemID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Store.ToggleItem",
		trace.WithAttributes(attribute.String("item.id", itemID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	it, l, err := s.activeItemWithOwner(itemID)
	if err != nil {
		span.SetAttributes(attribute.Bool("item.found", false))
		return "", err
	}

	it.IsDone = !it.IsDone
	s.updateCounts(l)
	s.persist(ctx)

	span.SetAttributes(
		attribute.Bool("item.found", true),
		attribute.Bool("item.done", it.IsDone),
		attribute.String("todolist.id", l.ID),
	)
	return l.ID, nil
}

// SoftDeleteItem marks an item as deleted, detaches it from its list and
// returns the list id.
func (s *Store) SoftDeleteItem(ctx context.Context, itemID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Store.SoftDeleteItem",
		trace.WithAttributes(attribute.String("item.id", itemID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	it, l, err := s.activeItemWithOwner(itemID)
	if err != nil {
		span.SetAttributes(attribute.Bool("item.found", false))
		return "", err
	}

	now := s.now()
	it.DeletedAt = &now
	l.ItemIDs = slices.DeleteFunc(l.ItemIDs, func(id string) bool { return id == itemID })
	s.updateCounts(l)
	s.persist(ctx)

	span.SetAttributes(
		attribute.Bool("item.found", true),
		attribute.String("todolist.id", l.ID),
	)
	return l.ID, nil
}

// ListActiveTodoLists returns all lists that are not soft-deleted, in
// creation order.
func (s *Store) ListActiveTodoLists(ctx context.Context) []model.TodoList {
	_, span := tracer.Start(ctx, "Store.ListActiveTodoLists")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	lists := make([]model.TodoList, 0, len(s.listOrder))
	for _, id := range s.listOrder {
		if l := s.lists[id]; l.Active() {
			lists = append(lists, l.Clone())
		}
	}

	span.SetAttributes(attribute.Int("todolist.count", len(lists)))
	return lists
}

// GetTodoListView returns an active list together with its active items.
// Stored state is not modified.
func (s *Store) GetTodoListView(ctx context.Context, id string) (model.TodoListView, error) {
	_, span := tracer.Start(ctx, "Store.GetTodoListView",
		trace.WithAttributes(attribute.String("todolist.id", id)),
	)
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lists[id]
	if !ok || !l.Active() {
		span.SetAttributes(attribute.Bool("todolist.found", false))
		return model.TodoListView{}, model.ErrTodoListNotFound
	}

	view := model.TodoListView{
		ID:             l.ID,
		Name:           l.Name,
		Items:          make([]model.Item, 0, len(l.ItemIDs)),
		TotalItems:     l.TotalItems,
		CompletedItems: l.CompletedItems,
		Progress:       l.Progress(),
	}
	for _, itemID := range l.ItemIDs {
		if it, ok := s.items[itemID]; ok && it.Active() {
			view.Items = append(view.Items, *it)
		}
	}

	span.SetAttributes(
		attribute.Bool("todolist.found", true),
		attribute.Int("item.count", len(view.Items)),
	)
	return view, nil
}

// ActiveTodoListCount returns the number of lists that are not soft-deleted.
func (s *Store) ActiveTodoListCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, l := range s.lists {
		if l.Active() {
			n++
		}
	}
	return n
}

// ActiveItemCount returns the number of items that are not soft-deleted.
func (s *Store) ActiveItemCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, it := range s.items {
		if it.Active() {
			n++
		}
	}
	return n
}

// activeItemWithOwner resolves an active item and its active owning list.
// An item whose list was soft-deleted is reported as not found.
func (s *Store) activeItemWithOwner(itemID string) (*model.Item, *model.TodoList, error) {
	it, ok := s.items[itemID]
	if !ok || !it.Active() {
		return nil, nil, model.ErrItemNotFound
	}
	l, ok := s.lists[s.owners[itemID]]
	if !ok || !l.Active() || !slices.Contains(l.ItemIDs, itemID) {
		return nil, nil, model.ErrItemNotFound
	}
	return it, l, nil
}

// updateCounts refreshes the cached counters of l from its active items.
func (s *Store) updateCounts(l *model.TodoList) {
	total, completed := 0, 0
	for _, id := range l.ItemIDs {
		it, ok := s.items[id]
		if !ok || !it.Active() {
			continue
		}
		total++
		if it.IsDone {
			completed++
		}
	}
	l.TotalItems = total
	l.CompletedItems = completed
}

// persist flushes the full store. Callers must hold the write lock.
func (s *Store) persist(ctx context.Context) {
	snap := &model.Snapshot{
		TodoLists: make([]model.TodoList, 0, len(s.listOrder)),
		Items:     make([]model.Item, 0, len(s.itemOrder)),
	}
	for _, id := range s.listOrder {
		snap.TodoLists = append(snap.TodoLists, s.lists[id].Clone())
	}
	for _, id := range s.itemOrder {
		snap.Items = append(snap.Items, *s.items[id])
	}
	s.gateway.Save(ctx, snap)
}
