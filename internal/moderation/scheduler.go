package moderation

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngguard/internal/infra"
)

// MessageDeleter removes a message from a chat.
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// DeleteScheduler removes messages after a delay in the background. Callers never wait
// for a deletion and never learn about its failure. Pending deletions are dropped on Stop.
type DeleteScheduler struct {
	deleter    MessageDeleter
	runtimeCtx context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	started    bool
}

func NewDeleteScheduler(deleter MessageDeleter) *DeleteScheduler {
	return &DeleteScheduler{deleter: deleter}
}

func (s *DeleteScheduler) getLogEntry() *log.Entry {
	return log.WithField("object", "DeleteScheduler")
}

func (s *DeleteScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.runtimeCtx, s.cancel = context.WithCancel(ctx)
	s.started = true
	return nil
}

func (s *DeleteScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// ScheduleDelete returns immediately. A non-positive delay deletes on the next tick.
func (s *DeleteScheduler) ScheduleDelete(chatID int64, messageID int, delay time.Duration) {
	s.scheduleAfter(delay, func(ctx context.Context) {
		if err := s.deleter.DeleteMessage(ctx, chatID, messageID); err != nil {
			s.getLogEntry().WithFields(log.Fields{
				"chat_id":    chatID,
				"message_id": messageID,
				"error":      err.Error(),
			}).Debug("scheduled deletion failed")
		}
	})
}

func (s *DeleteScheduler) scheduleAfter(delay time.Duration, task func(ctx context.Context)) {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	runCtx := s.runtimeCtx
	if runCtx == nil {
		runCtx = context.Background()
	}
	if runCtx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-runCtx.Done():
			return
		case <-timer.C:
			infra.Contain("scheduled_delete", func() { task(runCtx) })
		}
	}()
}
