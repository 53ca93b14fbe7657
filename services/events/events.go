package events

import (
	"context"
	"sync"
	"time"
)

// TransactionEvent is published whenever a transaction is created or settles.
type TransactionEvent struct {
	EventType string    `json:"event_type"`
	Reference string    `json:"reference"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Amount    string    `json:"amount"`
	WalletID  string    `json:"wallet_id,omitempty"`
	Reversed  bool      `json:"reversed"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, ev TransactionEvent) error
}

// Recorder keeps published events in memory. Used by tests and when no
// broker is configured.
type Recorder struct {
	mu     sync.Mutex
	events []TransactionEvent
}

func (r *Recorder) Publish(ctx context.Context, ev TransactionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []TransactionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TransactionEvent(nil), r.events...)
}
