package model

// Snapshot is the full store contents in insertion order, as exchanged
// with the persistence gateway.
type Snapshot struct {
	TodoLists []TodoList
	Items     []Item
}

// Empty reports whether the snapshot holds no data.
func (s *Snapshot) Empty() bool {
	return len(s.TodoLists) == 0 && len(s.Items) == 0
}
