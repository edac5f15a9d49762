package history

import (
	"sync"
	"time"
)

const defaultCapacity = 50

// Entry: одна отправленная в озвучку фраза.
type Entry struct {
	Kind string    `json:"kind"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// History: потокобезопасный буфер фиксированной ёмкости последних объявлений.
type History struct {
	cap     int
	entries []Entry
	mu      sync.Mutex
	now     func() time.Time
}

func New(capacity int) *History {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &History{cap: capacity, entries: make([]Entry, 0, capacity), now: time.Now}
}

// Add добавляет запись, при переполнении удаляет самую старую.
func (h *History) Add(kind, text string) {
	if text == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == h.cap {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.cap-1]
	}
	h.entries = append(h.entries, Entry{Kind: kind, Text: text, At: h.now()})
}

// Entries возвращает копию записей, от старых к новым.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Clear очищает журнал (сброс поездки).
func (h *History) Clear() {
	h.mu.Lock()
	h.entries = h.entries[:0]
	h.mu.Unlock()
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
