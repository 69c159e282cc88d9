package alert

import (
	"sync"
	"time"

	"github.com/google/uuid"

	alertmodel "github.com/crowdshield/dashboard/backend/internal/model/alert"
)

const outboxLimit = 200

// Outbox records messages accepted by the mock sender. It keeps the most
// recent entries only.
type Outbox struct {
	mu      sync.RWMutex
	entries []alertmodel.OutboxEntry
}

// NewOutbox returns an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{entries: make([]alertmodel.OutboxEntry, 0, 16)}
}

// Record appends a message and returns its MOCK-prefixed identifier.
func (o *Outbox) Record(to, body string) alertmodel.OutboxEntry {
	entry := alertmodel.OutboxEntry{
		ID:        "MOCK-" + uuid.NewString(),
		To:        to,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	o.mu.Lock()
	o.entries = append(o.entries, entry)
	if len(o.entries) > outboxLimit {
		o.entries = append([]alertmodel.OutboxEntry(nil), o.entries[len(o.entries)-outboxLimit:]...)
	}
	o.mu.Unlock()

	return entry
}

// List returns a copy of the recorded messages, oldest first.
func (o *Outbox) List() []alertmodel.OutboxEntry {
	o.mu.RLock()
	defer o.mu.RUnlock()
	copied := make([]alertmodel.OutboxEntry, len(o.entries))
	copy(copied, o.entries)
	return copied
}
