package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/demonlist-ranking/internal/domain"
)

// publishEvent forwards an event and only logs failures; moderation actions
// never fail because the event stream is unavailable.
func publishEvent(ctx context.Context, publisher EventPublisher, logger *slog.Logger, event domain.Event) {
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish event", "type", event.Type, "error", err)
	}
}

// partitionLocks serialises writers per list partition.
type partitionLocks struct {
	mu    sync.Mutex
	locks map[domain.ListType]*sync.Mutex
}

func newPartitionLocks() *partitionLocks {
	return &partitionLocks{locks: make(map[domain.ListType]*sync.Mutex)}
}

// lock acquires the partition's mutex and returns its release func.
func (p *partitionLocks) lock(listType domain.ListType) func() {
	p.mu.Lock()
	l, ok := p.locks[listType]
	if !ok {
		l = &sync.Mutex{}
		p.locks[listType] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
