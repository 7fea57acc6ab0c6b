package notify

import (
	"context"
	"sync"

	"share2care/internal/ports/output"
)

const defaultInboxSize = 20

// InPage queues notices for the page to show as a modal. Each notice is
// handed out once.
type InPage struct {
	mu      sync.Mutex
	max     int
	pending map[string][]output.Notice
}

var _ output.Notifier = (*InPage)(nil)

func NewInPage(max int) *InPage {
	if max <= 0 {
		max = defaultInboxSize
	}
	return &InPage{max: max, pending: make(map[string][]output.Notice)}
}

// Notify queues n for its user. A notice already waiting for the same
// kind and event is not queued twice; the oldest is dropped past max.
func (p *InPage) Notify(_ context.Context, n output.Notice) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	queue := p.pending[n.UserID]
	for _, q := range queue {
		if q.Kind == n.Kind && q.EventID == n.EventID {
			return nil
		}
	}
	queue = append(queue, n)
	if len(queue) > p.max {
		queue = queue[len(queue)-p.max:]
	}
	p.pending[n.UserID] = queue
	return nil
}

// TakePending returns and forgets the notices waiting for userID.
func (p *InPage) TakePending(userID string) []output.Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.pending[userID]
	delete(p.pending, userID)
	if out == nil {
		return []output.Notice{}
	}
	return out
}
