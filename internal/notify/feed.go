package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notification is one user-facing message, optionally with a remediation link.
type Notification struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	ActionLabel string    `json:"action_label,omitempty"`
	ActionURL   string    `json:"action_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Feed is a bounded FIFO of notifications for one workspace. When full the
// oldest entry is dropped.
type Feed struct {
	mu       sync.Mutex
	items    []Notification
	capacity int
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 50
	}
	return &Feed{capacity: capacity, items: make([]Notification, 0, capacity)}
}

func (f *Feed) Push(notification Notification) {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) >= f.capacity {
		f.items = append(f.items[:0], f.items[1:]...)
	}
	f.items = append(f.items, notification)
}

// Drain returns every pending notification oldest first and empties the feed.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	drained := append([]Notification(nil), f.items...)
	f.items = f.items[:0]
	return drained
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
