package editlogs

import "sync"

// Hub fans persisted entries out to live subscribers. Slow subscribers miss
// entries rather than hold up the writer.
type Hub struct {
	mu   sync.RWMutex
	next int
	subs map[int]subscription
}

type subscription struct {
	model string
	ch    chan Entry
}

func NewHub() *Hub {
	return &Hub{subs: map[int]subscription{}}
}

// Subscribe returns a channel receiving entries of model (every model when
// empty) and a function releasing it.
func (h *Hub) Subscribe(model string) (<-chan Entry, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Entry, 64)
	h.subs[id] = subscription{model: model, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(e Entry) {
	if h == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.model != "" && sub.model != e.Model {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}
