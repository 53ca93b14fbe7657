package activitylogs

import (
	"context"
	"sync"
	"time"
)

// MemoryActivityLog backs the memory store driver.
type MemoryActivityLog struct {
	mu   sync.RWMutex
	logs []Log
}

func NewMemoryActivityLog() *MemoryActivityLog {
	return &MemoryActivityLog{}
}

func (m *MemoryActivityLog) Create(ctx context.Context, params CreateActivityLogParams) (Log, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := Log{
		ID:         int64(len(m.logs) + 1),
		Action:     params.Action,
		EntityType: params.EntityType,
		EntityID:   params.EntityID,
		IPAddress:  params.IPAddress,
		UserAgent:  params.UserAgent,
		CreatedAt:  params.CreatedAt,
	}
	if params.UserID != nil {
		id := *params.UserID
		l.UserID = &id
	}
	m.logs = append(m.logs, l)
	return l, nil
}

func (m *MemoryActivityLog) GetByUser(ctx context.Context, userID int64, limit, offset int32) ([]Log, error) {
	return m.collect(func(l Log) bool { return l.UserID != nil && *l.UserID == userID }, limit, offset), nil
}

func (m *MemoryActivityLog) GetRecent(ctx context.Context, limit, offset int32) ([]Log, error) {
	return m.collect(func(Log) bool { return true }, limit, offset), nil
}

func (m *MemoryActivityLog) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.logs[:0]
	var deleted int64
	for _, l := range m.logs {
		if l.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	m.logs = kept
	return deleted, nil
}

// collect walks newest first.
func (m *MemoryActivityLog) collect(match func(Log) bool, limit, offset int32) []Log {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Log, 0)
	var skipped int32
	for i := len(m.logs) - 1; i >= 0; i-- {
		l := m.logs[i]
		if !match(l) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, l)
		if limit > 0 && int32(len(out)) == limit {
			break
		}
	}
	return out
}
