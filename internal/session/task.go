package session

import (
	"context"
	"time"

	"github.com/igusev/rgs/internal/index"
	"github.com/igusev/rgs/internal/logger"
	"github.com/igusev/rgs/internal/types"
)

// StoreTask is a fire-and-forget write of one session's records
// The outcome is always logged; Wait exposes it to callers that want to block.
type StoreTask struct {
	SessionID string
	Count     int

	done chan struct{}
	err  error
}

// Wait blocks until the write finished and returns its outcome
func (t *StoreTask) Wait() error {
	<-t.done
	return t.err
}

// Done is closed when the write finished
func (t *StoreTask) Done() <-chan struct{} {
	return t.done
}

// startStore writes records in the background
// The write is detached from ctx cancellation so an interrupted caller still persists the session.
func startStore(ctx context.Context, idx index.Client, sessionID string, records []types.StoredSearchResult, timeout time.Duration) *StoreTask {
	t := &StoreTask{SessionID: sessionID, Count: len(records), done: make(chan struct{})}
	if len(records) == 0 {
		logger.Debug("Session %s has no results, nothing stored", sessionID)
		close(t.done)
		return t
	}

	storeCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc = func() {}
	if timeout > 0 {
		storeCtx, cancel = context.WithTimeout(storeCtx, timeout)
	}

	go func() {
		defer close(t.done)
		defer cancel()

		start := time.Now()
		t.err = idx.Add(storeCtx, records)
		if t.err != nil {
			logger.Warn("Failed to store session %s: %v", sessionID, t.err)
			return
		}
		logger.Debug("Stored %d results in session %s (%v)", len(records), sessionID, time.Since(start).Round(time.Millisecond))
	}()
	return t
}
