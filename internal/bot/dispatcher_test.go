package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
)

type recordingProcessor struct {
	mu      sync.Mutex
	byChat  map[int64][]int
	active  map[int64]int
	overlap bool
	delay   time.Duration
	panicOn int
	seen    chan int
}

func newRecordingProcessor(delay time.Duration) *recordingProcessor {
	return &recordingProcessor{
		byChat: map[int64][]int{},
		active: map[int64]int{},
		delay:  delay,
		seen:   make(chan int, 100),
	}
}

func (p *recordingProcessor) Process(_ context.Context, u *api.Update) error {
	chatID := u.FromChat().ID
	p.mu.Lock()
	p.active[chatID]++
	if p.active[chatID] > 1 {
		p.overlap = true
	}
	p.mu.Unlock()

	if u.UpdateID == p.panicOn {
		p.mu.Lock()
		p.active[chatID]--
		p.mu.Unlock()
		p.seen <- u.UpdateID
		panic("handler exploded")
	}
	time.Sleep(p.delay)

	p.mu.Lock()
	p.active[chatID]--
	p.byChat[chatID] = append(p.byChat[chatID], u.UpdateID)
	p.mu.Unlock()
	p.seen <- u.UpdateID
	return nil
}

func groupUpdate(id int, chatID int64) api.Update {
	return api.Update{
		UpdateID: id,
		Message: &api.Message{
			MessageID: id,
			Chat:      api.Chat{ID: chatID, Type: "supergroup"},
			From:      &api.User{ID: 1},
			Date:      int(time.Now().Unix()),
		},
	}
}

func channelSource(updates []api.Update, errAfter error) (UpdateSource, chan struct{}) {
	release := make(chan struct{})
	return func(ctx context.Context) (<-chan api.Update, <-chan error) {
		ch := make(chan api.Update)
		errs := make(chan error, 1)
		go func() {
			for _, u := range updates {
				select {
				case ch <- u:
				case <-ctx.Done():
					return
				}
			}
			if errAfter != nil {
				errs <- errAfter
				return
			}
			select {
			case <-release:
			case <-ctx.Done():
			}
		}()
		return ch, errs
	}, release
}

func waitSeen(t *testing.T, p *recordingProcessor, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-p.seen:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d updates processed", i, n)
		}
	}
}

func TestDispatcherKeepsPerChatOrder(t *testing.T) {
	t.Parallel()

	var updates []api.Update
	for i := 1; i <= 30; i++ {
		updates = append(updates, groupUpdate(i, int64(-(i%3)-1)))
	}
	processor := newRecordingProcessor(time.Millisecond)
	source, release := channelSource(updates, nil)
	defer close(release)

	d := NewDispatcher(source, processor, time.Minute)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitSeen(t, processor, len(updates))

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	processor.mu.Lock()
	defer processor.mu.Unlock()
	if processor.overlap {
		t.Fatalf("updates of one chat were processed concurrently")
	}
	for chatID, ids := range processor.byChat {
		for i := 1; i < len(ids); i++ {
			if ids[i] < ids[i-1] {
				t.Fatalf("chat %d processed out of order: %v", chatID, ids)
			}
		}
	}
	if len(processor.byChat) != 3 {
		t.Fatalf("expected 3 chats, got %d", len(processor.byChat))
	}
}

func TestDispatcherIdleWorkersExit(t *testing.T) {
	t.Parallel()

	processor := newRecordingProcessor(0)
	source, release := channelSource([]api.Update{groupUpdate(1, -10), groupUpdate(2, -20)}, nil)
	defer close(release)

	d := NewDispatcher(source, processor, 30*time.Millisecond)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = d.Stop(context.Background()) }()
	waitSeen(t, processor, 2)

	deadline := time.Now().Add(2 * time.Second)
	for d.activeWorkers() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("idle workers did not exit, %d left", d.activeWorkers())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDispatcherSurvivesHandlerPanic(t *testing.T) {
	t.Parallel()

	processor := newRecordingProcessor(0)
	processor.panicOn = 1
	source, release := channelSource([]api.Update{groupUpdate(1, -10), groupUpdate(2, -10)}, nil)
	defer close(release)

	d := NewDispatcher(source, processor, time.Minute)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = d.Stop(context.Background()) }()
	waitSeen(t, processor, 2)

	processor.mu.Lock()
	defer processor.mu.Unlock()
	if ids := processor.byChat[-10]; len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("update after a panic must still be processed, got %v", ids)
	}
}

func TestDispatcherStopsOnSourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("unauthorized")
	source, release := channelSource(nil, boom)
	defer close(release)

	d := NewDispatcher(source, newRecordingProcessor(0), time.Minute)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatcher did not stop on source error")
	}
	if !errors.Is(d.Err(), boom) {
		t.Fatalf("expected source error, got %v", d.Err())
	}
}

type blockingProcessor struct {
	blockChat int64
	unblock   chan struct{}
	others    chan int64
}

func (p *blockingProcessor) Process(ctx context.Context, u *api.Update) error {
	chatID := u.FromChat().ID
	if chatID == p.blockChat {
		select {
		case <-p.unblock:
		case <-ctx.Done():
		}
		return nil
	}
	p.others <- chatID
	return nil
}

func TestDispatcherSlowChatDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	var updates []api.Update
	for i := 1; i <= 70; i++ {
		updates = append(updates, groupUpdate(i, -1))
	}
	updates = append(updates, groupUpdate(71, -2))

	processor := &blockingProcessor{blockChat: -1, unblock: make(chan struct{}), others: make(chan int64, 1)}
	source, release := channelSource(updates, nil)
	defer close(release)

	d := NewDispatcher(source, processor, time.Minute)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		close(processor.unblock)
		_ = d.Stop(context.Background())
	}()

	select {
	case chatID := <-processor.others:
		if chatID != -2 {
			t.Fatalf("expected chat -2, got %d", chatID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("update of chat -2 was held up by a busy chat")
	}
}
