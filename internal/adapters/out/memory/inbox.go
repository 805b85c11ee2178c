package memory

import (
	"context"
	"strings"
	"sync"

	"orders/internal/pkg/errs"
)

// Inbox remembers processed event ids for the life of the process.
type Inbox struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewInbox() *Inbox {
	return &Inbox{seen: make(map[string]struct{})}
}

// MarkProcessed records eventID and reports whether it was not seen before.
func (i *Inbox) MarkProcessed(_ context.Context, eventID string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, errs.NewValueIsRequiredError("eventId")
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.seen[eventID]; ok {
		return false, nil
	}
	i.seen[eventID] = struct{}{}
	return true, nil
}
