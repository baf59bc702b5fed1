package editlogs

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Query selects entries for the read API.
type Query struct {
	Model string
	Item  *primitive.ObjectID
	Skip  int64
	Limit int64
}

// Scan selects entries for the migration passes.
type Scan struct {
	Model        string
	Action       string
	MissingWhoID bool
}

// Store persists edit-log entries. List returns entries ordered by date then
// seq, most recent first.
type Store interface {
	InsertOne(ctx context.Context, e Entry) error
	InsertMany(ctx context.Context, es []Entry) error
	List(ctx context.Context, q Query) ([]Entry, error)
	MaxSeq(ctx context.Context) (int64, error)
	// ForEach calls fn once per matching record. A record that cannot be
	// decoded is passed with a non-nil error and a zero entry (ID aside).
	ForEach(ctx context.Context, s Scan, fn func(Entry, error) error) error
	SetFields(ctx context.Context, id primitive.ObjectID, set map[string]any) error
}

// MemoryStore keeps entries in process. It backs tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryStore(entries ...Entry) *MemoryStore {
	return &MemoryStore{entries: entries}
}

func (m *MemoryStore) InsertOne(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryStore) InsertMany(ctx context.Context, es []Entry) error {
	for _, e := range es {
		if err := m.InsertOne(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// All returns a copy of every stored entry in insertion order.
func (m *MemoryStore) All() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *MemoryStore) List(_ context.Context, q Query) ([]Entry, error) {
	m.mu.Lock()
	var out []Entry
	for _, e := range m.entries {
		if q.Model != "" && e.Model != q.Model {
			continue
		}
		if q.Item != nil && e.Item != *q.Item {
			continue
		}
		out = append(out, e)
	}
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Seq > out[j].Seq
	})

	if q.Skip > 0 {
		if q.Skip >= int64(len(out)) {
			return nil, nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < int64(len(out)) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) MaxSeq(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max int64
	for _, e := range m.entries {
		if e.Seq > max {
			max = e.Seq
		}
	}
	return max, nil
}

func (m *MemoryStore) ForEach(_ context.Context, s Scan, fn func(Entry, error) error) error {
	for _, e := range m.All() {
		if s.Model != "" && e.Model != s.Model {
			continue
		}
		if s.Action != "" && e.Action != s.Action {
			continue
		}
		if s.MissingWhoID && !e.WhoID.IsZero() {
			continue
		}
		if err := fn(e, nil); err != nil {
			return err
		}
	}
	return nil
}

// SetFields understands the fields the migration passes write.
func (m *MemoryStore) SetFields(_ context.Context, id primitive.ObjectID, set map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID != id {
			continue
		}
		if diff, ok := set["diff"].([]Change); ok {
			m.entries[i].Diff = diff
		}
		if whoID, ok := set["whoID"].(primitive.ObjectID); ok {
			m.entries[i].WhoID = whoID
		}
	}
	return nil
}
