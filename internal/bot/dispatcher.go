package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/ngguard/internal/infra"
)

const chatQueueWarnSize = 1000

// UpdateSource starts producing updates until ctx is done or errs yields an error.
type UpdateSource func(ctx context.Context) (<-chan api.Update, <-chan error)

// Dispatcher pulls updates from a source and hands them to one worker per chat:
// chats are processed concurrently, messages of one chat strictly in arrival order.
// A worker exits once its chat has been quiet for the idle timeout.
type Dispatcher struct {
	source      UpdateSource
	processor   Processor
	idleTimeout time.Duration

	mu      sync.Mutex
	workers map[int64]*chatWorker
	group   *errgroup.Group
	runCtx  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	started bool
}

type chatWorker struct {
	chatID int64
	queue  []*api.Update
	wake   chan struct{}
}

func NewDispatcher(source UpdateSource, processor Processor, idleTimeout time.Duration) *Dispatcher {
	if idleTimeout <= 0 {
		idleTimeout = 10 * time.Minute
	}
	return &Dispatcher{
		source:      source,
		processor:   processor,
		idleTimeout: idleTimeout,
		workers:     make(map[int64]*chatWorker),
	}
}

func (d *Dispatcher) getLogEntry() *log.Entry {
	return log.WithField("object", "Dispatcher")
}

func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.group, d.runCtx = errgroup.WithContext(runCtx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.workers = make(map[int64]*chatWorker)
	d.started = true

	d.group.Go(func() error {
		return d.poll(d.runCtx)
	})
	go func() {
		err := d.group.Wait()
		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
		close(d.done)
	}()
	return nil
}

func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.started = false
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Done is closed once polling and every worker have returned.
func (d *Dispatcher) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Err returns the error that stopped polling, if any.
func (d *Dispatcher) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if errors.Is(d.err, context.Canceled) {
		return nil
	}
	return d.err
}

func (d *Dispatcher) poll(ctx context.Context) error {
	updates, errs := d.source(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				d.getLogEntry().WithField("error", err.Error()).Error("bot api get updates error")
				return err
			}
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			d.Dispatch(update)
		}
	}
}

// Dispatch appends u to the queue of its chat, starting the worker if needed.
// It never waits on a worker, so a slow chat cannot hold up the others.
// Updates without a chat share the worker of chat 0.
func (d *Dispatcher) Dispatch(u api.Update) {
	var chatID int64
	if chat := u.FromChat(); chat != nil {
		chatID = chat.ID
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return
	}
	w, ok := d.workers[chatID]
	if !ok {
		w = &chatWorker{chatID: chatID, wake: make(chan struct{}, 1)}
		d.workers[chatID] = w
		d.group.Go(func() error {
			d.work(d.runCtx, w)
			return nil
		})
	}
	w.queue = append(w.queue, &u)
	if len(w.queue) == chatQueueWarnSize {
		d.getLogEntry().WithField("chat_id", chatID).Warn("chat queue is growing")
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest queued update of w. When the queue is empty and
// exitIfEmpty is set, the worker is unregistered under the same lock.
func (d *Dispatcher) next(w *chatWorker, exitIfEmpty bool) (u *api.Update, exit bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(w.queue) == 0 {
		if exitIfEmpty {
			delete(d.workers, w.chatID)
			return nil, true
		}
		return nil, false
	}
	u = w.queue[0]
	w.queue[0] = nil
	w.queue = w.queue[1:]
	return u, false
}

func (d *Dispatcher) work(ctx context.Context, w *chatWorker) {
	entry := d.getLogEntry().WithField("chat_id", w.chatID)
	idle := time.NewTimer(d.idleTimeout)
	defer idle.Stop()

	for {
		for {
			if ctx.Err() != nil {
				return
			}
			u, _ := d.next(w, false)
			if u == nil {
				break
			}
			d.process(ctx, entry, u)
		}
		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(d.idleTimeout)

		select {
		case <-ctx.Done():
			return
		case <-w.wake:
		case <-idle.C:
			u, exit := d.next(w, true)
			if exit {
				entry.Trace("chat worker idle, exiting")
				return
			}
			d.process(ctx, entry, u)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, entry *log.Entry, u *api.Update) {
	infra.Contain("process_update", func() {
		if err := d.processor.Process(ctx, u); err != nil {
			entry.WithFields(log.Fields{
				"update_id": u.UpdateID,
				"error":     err.Error(),
			}).Error("cant process update")
		}
	})
}

func (d *Dispatcher) activeWorkers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.workers)
}
