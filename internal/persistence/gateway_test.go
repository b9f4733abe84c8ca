package persistence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hiroki-koketsu/go-todolists/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBackend struct {
	data     []byte
	exists   bool
	readErr  error
	writeErr error
	writes   int
}

func (m *memBackend) Read(ctx context.Context) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if !m.exists {
		return nil, ErrNoDocument
	}
	return m.data, nil
}

func (m *memBackend) Write(ctx context.Context, data []byte) error {
	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data = append([]byte(nil), data...)
	m.exists = true
	return nil
}

func newTestGateway(t *testing.T, b Backend) *Gateway {
	t.Helper()
	g, err := NewGateway(b, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return g
}

func TestGateway_LoadMissing(t *testing.T) {
	g := newTestGateway(t, &memBackend{})

	snap := g.Load(context.Background())
	require.NotNil(t, snap)
	assert.True(t, snap.Empty())
}

func TestGateway_LoadUnusableDocument(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "whitespace", data: "  \n\t"},
		{name: "truncated", data: `{"todolists": {`},
		{name: "not an object", data: `[1, 2, 3]`},
		{name: "missing items", data: `{"todolists": {}}`},
		{name: "wrong types", data: `{"todolists": {}, "items": {"a": {"id": "a", "name": 3, "text": "", "is_done": false}}}`},
		{name: "bad timestamp", data: `{"todolists": {}, "items": {"a": {"id": "a", "name": "x", "text": "", "is_done": false, "deleted_at": "yesterday"}}}`},
		{name: "trailing garbage", data: `{"todolists": {}, "items": {}} xyz`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, &memBackend{data: []byte(tt.data), exists: true})

			snap := g.Load(context.Background())
			require.NotNil(t, snap)
			assert.True(t, snap.Empty())
		})
	}
}

func TestGateway_LoadReadError(t *testing.T) {
	g := newTestGateway(t, &memBackend{readErr: errors.New("permission denied")})

	snap := g.Load(context.Background())
	require.NotNil(t, snap)
	assert.True(t, snap.Empty())
}

func TestGateway_RoundTrip(t *testing.T) {
	b := &memBackend{}
	g := newTestGateway(t, b)
	ctx := context.Background()

	deleted := time.Date(2026, 10, 19, 8, 30, 0, 123456789, time.UTC)
	snap := &model.Snapshot{
		TodoLists: []model.TodoList{
			{ID: "l-2", Name: "Groceries", ItemIDs: []string{"i-2", "i-1"}, TotalItems: 2, CompletedItems: 1},
			{ID: "l-1", Name: "Old", ItemIDs: []string{}, DeletedAt: &deleted},
		},
		Items: []model.Item{
			{ID: "i-2", Name: "Milk", Text: ""},
			{ID: "i-1", Name: "Bread", Text: "wholegrain", IsDone: true},
			{ID: "i-0", Name: "Gone", DeletedAt: &deleted},
		},
	}

	g.Save(ctx, snap)
	require.Equal(t, 1, b.writes)

	got := g.Load(ctx)
	require.Len(t, got.TodoLists, 2)
	require.Len(t, got.Items, 3)

	assert.Equal(t, "l-2", got.TodoLists[0].ID)
	assert.Equal(t, "Groceries", got.TodoLists[0].Name)
	assert.Equal(t, []string{"i-2", "i-1"}, got.TodoLists[0].ItemIDs)
	assert.Equal(t, 2, got.TodoLists[0].TotalItems)
	assert.Equal(t, 1, got.TodoLists[0].CompletedItems)
	assert.Nil(t, got.TodoLists[0].DeletedAt)

	assert.Equal(t, "l-1", got.TodoLists[1].ID)
	require.NotNil(t, got.TodoLists[1].DeletedAt)
	assert.True(t, deleted.Equal(*got.TodoLists[1].DeletedAt))

	assert.Equal(t, []string{"i-2", "i-1", "i-0"}, []string{got.Items[0].ID, got.Items[1].ID, got.Items[2].ID})
	assert.Equal(t, "wholegrain", got.Items[1].Text)
	assert.True(t, got.Items[1].IsDone)
	require.NotNil(t, got.Items[2].DeletedAt)
	assert.True(t, deleted.Equal(*got.Items[2].DeletedAt))
}

func TestGateway_DocumentLayout(t *testing.T) {
	b := &memBackend{}
	g := newTestGateway(t, b)

	g.Save(context.Background(), &model.Snapshot{
		TodoLists: []model.TodoList{{ID: "l", Name: "Groceries", ItemIDs: []string{"i"}, TotalItems: 1}},
		Items:     []model.Item{{ID: "i", Name: "Milk"}},
	})

	assert.JSONEq(t, `{
		"todolists": {
			"l": {
				"id": "l", "name": "Groceries",
				"items": [{"id": "i", "name": "Milk", "text": "", "is_done": false, "deleted_at": null}],
				"deleted_at": null, "total_items": 1, "completed_items": 0
			}
		},
		"items": {
			"i": {"id": "i", "name": "Milk", "text": "", "is_done": false, "deleted_at": null}
		}
	}`, string(b.data))
	assert.True(t, strings.HasSuffix(string(b.data), "\n"))
}

func TestGateway_LoadLegacyDocument(t *testing.T) {
	// documents written before soft delete carry no counters or timestamps,
	// and may embed items the items map no longer has
	legacy := `{
		"todolists": {
			"l": {"id": "l", "name": "Groceries", "items": [
				{"id": "a", "name": "Milk", "text": "", "is_done": true},
				{"id": "b", "name": "Eggs", "text": "", "is_done": false}
			]}
		},
		"items": {
			"a": {"id": "a", "name": "Milk", "text": "", "is_done": true}
		}
	}`
	g := newTestGateway(t, &memBackend{data: []byte(legacy), exists: true})

	snap := g.Load(context.Background())
	require.Len(t, snap.TodoLists, 1)
	assert.Equal(t, []string{"a", "b"}, snap.TodoLists[0].ItemIDs)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "b", snap.Items[1].ID)
	assert.Nil(t, snap.Items[0].DeletedAt)
}

func TestGateway_SaveFailureIsSwallowed(t *testing.T) {
	b := &memBackend{writeErr: errors.New("disk full")}
	g := newTestGateway(t, b)

	assert.NotPanics(t, func() {
		g.Save(context.Background(), &model.Snapshot{
			TodoLists: []model.TodoList{{ID: "l", Name: "Groceries"}},
		})
	})
	assert.Equal(t, 1, b.writes)
	assert.False(t, b.exists)
}
