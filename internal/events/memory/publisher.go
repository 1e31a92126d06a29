package memory

import (
	"context"
	"sync"

	"github.com/walletsys/wallet-ledger/internal/interfaces"
)

// Publisher collects published events in memory. It is the default when no
// brokers are configured, and lets tests assert on what was published.
type Publisher struct {
	mu     sync.Mutex
	events []any
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(ctx context.Context, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *Publisher) Events() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]any, len(p.events))
	copy(out, p.events)
	return out
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
