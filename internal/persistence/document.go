package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hiroki-koketsu/go-todolists/internal/model"
)

// listRecord is the on-disk form of a todo list. Items are embedded copies
// resolved from the item arena at encode time.
type listRecord struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Items          []model.Item `json:"items"`
	DeletedAt      *time.Time   `json:"deleted_at"`
	TotalItems     int          `json:"total_items"`
	CompletedItems int          `json:"completed_items"`
}

type rawDocument struct {
	TodoLists json.RawMessage `json:"todolists"`
	Items     json.RawMessage `json:"items"`
}

// encodeDocument renders a snapshot as the store document. Object keys are
// written in snapshot order so that insertion order survives a reload.
func encodeDocument(s *model.Snapshot) ([]byte, error) {
	arena := make(map[string]model.Item, len(s.Items))
	for _, it := range s.Items {
		arena[it.ID] = it
	}

	records := make([]listRecord, 0, len(s.TodoLists))
	for _, l := range s.TodoLists {
		rec := listRecord{
			ID:             l.ID,
			Name:           l.Name,
			Items:          make([]model.Item, 0, len(l.ItemIDs)),
			DeletedAt:      l.DeletedAt,
			TotalItems:     l.TotalItems,
			CompletedItems: l.CompletedItems,
		}
		for _, id := range l.ItemIDs {
			if it, ok := arena[id]; ok {
				rec.Items = append(rec.Items, it)
			}
		}
		records = append(records, rec)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"todolists":`)
	if err := writeObject(&buf, records, func(r listRecord) string { return r.ID }); err != nil {
		return nil, fmt.Errorf("encode todolists: %w", err)
	}
	buf.WriteString(`,"items":`)
	if err := writeObject(&buf, s.Items, func(it model.Item) string { return it.ID }); err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indent document: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeObject[T any](buf *bytes.Buffer, entries []T, key func(T) string) error {
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key(e))
		if err != nil {
			return err
		}
		v, err := json.Marshal(e)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return nil
}

// decodeDocument parses the store document, keeping keys in document order.
// Embedded list items missing from the items map are adopted into the arena.
func decodeDocument(data []byte) (*model.Snapshot, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	records, err := readObject[listRecord](raw.TodoLists)
	if err != nil {
		return nil, fmt.Errorf("parse todolists: %w", err)
	}
	items, err := readObject[model.Item](raw.Items)
	if err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}

	snap := &model.Snapshot{
		TodoLists: make([]model.TodoList, 0, len(records)),
		Items:     items,
	}
	known := make(map[string]bool, len(items))
	for _, it := range items {
		known[it.ID] = true
	}

	for _, rec := range records {
		l := model.TodoList{
			ID:             rec.ID,
			Name:           rec.Name,
			ItemIDs:        make([]string, 0, len(rec.Items)),
			DeletedAt:      rec.DeletedAt,
			TotalItems:     rec.TotalItems,
			CompletedItems: rec.CompletedItems,
		}
		for _, it := range rec.Items {
			l.ItemIDs = append(l.ItemIDs, it.ID)
			if !known[it.ID] {
				snap.Items = append(snap.Items, it)
				known[it.ID] = true
			}
		}
		snap.TodoLists = append(snap.TodoLists, l)
	}

	return snap, nil
}

func readObject[T any](raw json.RawMessage) ([]T, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var out []T
	for dec.More() {
		// key; the record carries its own id
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var v T
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
