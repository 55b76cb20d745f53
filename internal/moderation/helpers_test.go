package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iamwavecut/ngguard/internal/cachestore"
	"github.com/iamwavecut/ngguard/internal/db"
	"github.com/iamwavecut/ngguard/internal/db/sqlite"
)

type testStore interface {
	Store
	db.StopWordStore
	Close() error
}

func newTestStore(t *testing.T) testStore {
	t.Helper()

	client, err := sqlite.NewSQLiteClient(context.Background(), t.TempDir(), "moderation.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type memberStub struct {
	mu       sync.Mutex
	statuses map[string]string
	errs     map[string]error
	block    chan struct{}
	calls    []string
}

func (m *memberStub) GetChatMemberStatus(ctx context.Context, channel string, userID int64) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, channel)
	block := m.block
	status := m.statuses[channel]
	err := m.errs[channel]
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return status, err
}

func (m *memberStub) queried() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type sentMessage struct {
	chatID int64
	id     int
	text   string
}

type messengerStub struct {
	mu        sync.Mutex
	events    []string
	deleted   []int
	sent      []sentMessage
	nextID    int
	deleteErr error
	sendErr   error
}

func (m *messengerStub) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, "delete")
	m.deleted = append(m.deleted, messageID)
	return m.deleteErr
}

func (m *messengerStub) SendMessage(_ context.Context, chatID int64, text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, "send")
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	m.nextID++
	id := 1000 + m.nextID
	m.sent = append(m.sent, sentMessage{chatID: chatID, id: id, text: text})
	return id, nil
}

type scheduled struct {
	chatID    int64
	messageID int
	delay     time.Duration
}

type schedulerStub struct {
	messenger *messengerStub
	items     []scheduled
}

func (s *schedulerStub) ScheduleDelete(chatID int64, messageID int, delay time.Duration) {
	if s.messenger != nil {
		s.messenger.mu.Lock()
		s.messenger.events = append(s.messenger.events, "schedule")
		s.messenger.mu.Unlock()
	}
	s.items = append(s.items, scheduled{chatID: chatID, messageID: messageID, delay: delay})
}

type harness struct {
	store     testStore
	members   *memberStub
	messenger *messengerStub
	scheduler *schedulerStub
	filter    *StopWordFilter
	pipeline  *Pipeline
}

func testConfig() Config {
	return Config{
		Language:              "en",
		ViolationThreshold:    5,
		DefaultSlowModeDelay:  15 * time.Second,
		WarningTTL:            15 * time.Second,
		SlowModeWarningTTLCap: 2 * time.Second,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newTestStore(t)
	members := &memberStub{statuses: map[string]string{}, errs: map[string]error{}}
	messenger := &messengerStub{}
	scheduler := &schedulerStub{messenger: messenger}
	filter := NewStopWordFilter(store, cachestore.NewMemCacheStore(64, time.Minute))
	pipeline := NewPipeline(
		testConfig(),
		store,
		NewSubscriptionChecker(members, time.Second, nil),
		filter,
		NewEnforcer(messenger, scheduler),
		nil,
	)
	return &harness{
		store:     store,
		members:   members,
		messenger: messenger,
		scheduler: scheduler,
		filter:    filter,
		pipeline:  pipeline,
	}
}

const (
	testGroupID = int64(-1001)
	testUserID  = int64(42)
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func message(id int, text string, at time.Time) IncomingMessage {
	return IncomingMessage{
		MessageID:  id,
		GroupID:    testGroupID,
		GroupTitle: "Test group",
		Sender: Sender{
			ID:        testUserID,
			Username:  "tester",
			FirstName: "Tess",
		},
		Text:       text,
		ReceivedAt: at,
	}
}

// setupGroup stores the group so that the defaults are not used.
func (h *harness) setupGroup(t *testing.T, requireSubscription bool, delay int64, channels ...string) {
	t.Helper()

	settings := db.DefaultGroupSettings(testGroupID, "Test group", 15*time.Second)
	settings.SetRequireSubscription(requireSubscription)
	if err := settings.SetSlowModeDelay(delay); err != nil {
		t.Fatalf("set delay: %v", err)
	}
	for _, channel := range channels {
		if _, err := settings.AddTargetChannel(channel); err != nil {
			t.Fatalf("add channel: %v", err)
		}
	}
	if err := h.store.SetGroupSettings(context.Background(), settings); err != nil {
		t.Fatalf("set group settings: %v", err)
	}
}

func (h *harness) addWord(t *testing.T, word string, scope db.Scope) {
	t.Helper()

	sw := db.StopWord{Word: word, Scope: scope}
	if scope == db.ScopeGroup {
		sw.GroupID = testGroupID
	}
	if _, err := h.store.AddStopWord(context.Background(), sw); err != nil {
		t.Fatalf("add stop word: %v", err)
	}
	h.filter.InvalidateAll(context.Background())
}

func (h *harness) process(t *testing.T, msg IncomingMessage) Decision {
	t.Helper()

	decision, err := h.pipeline.Process(context.Background(), msg)
	if err != nil {
		t.Fatalf("process message %d: %v", msg.MessageID, err)
	}
	return decision
}

var errBoom = errors.New("boom")
