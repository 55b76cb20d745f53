package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iamwavecut/ngguard/internal/db"
)

func TestGroupSettingsRoundTripKeepsChannelOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	got, err := client.GetGroupSettings(ctx, -100)
	if err != nil {
		t.Fatalf("get unknown group: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil settings for unknown group, got %+v", got)
	}

	settings := db.DefaultGroupSettings(-100, "test group", 15*time.Second)
	for _, channel := range []string{"@zeta", "@alpha", "@mid"} {
		if _, err := settings.AddTargetChannel(channel); err != nil {
			t.Fatalf("add channel %s: %v", channel, err)
		}
	}
	if err := client.SetGroupSettings(ctx, settings); err != nil {
		t.Fatalf("set settings: %v", err)
	}

	got, err = client.GetGroupSettings(ctx, -100)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	want := []string{"@zeta", "@alpha", "@mid"}
	if len(got.TargetChannels) != len(want) {
		t.Fatalf("unexpected channels: %v", got.TargetChannels)
	}
	for i := range want {
		if got.TargetChannels[i] != want[i] {
			t.Fatalf("channel %d: got %q want %q", i, got.TargetChannels[i], want[i])
		}
	}
	if !got.RequireSubscription || got.SlowModeDelay != 15 || got.GroupName != "test group" {
		t.Fatalf("unexpected settings: %+v", got)
	}

	got.SetRequireSubscription(false)
	if err := got.SetSlowModeDelay(0); err != nil {
		t.Fatalf("set delay: %v", err)
	}
	if err := client.SetGroupSettings(ctx, got); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	again, err := client.GetGroupSettings(ctx, -100)
	if err != nil {
		t.Fatalf("get updated settings: %v", err)
	}
	if again.RequireSubscription || again.SlowModeDelay != 0 {
		t.Fatalf("update not persisted: %+v", again)
	}
}

func TestStopWordsScopes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	added, err := client.AddStopWord(ctx, db.StopWord{Word: "  SPAM ", Scope: db.ScopeGlobal})
	if err != nil || !added {
		t.Fatalf("add global: added=%v err=%v", added, err)
	}
	added, err = client.AddStopWord(ctx, db.StopWord{Word: "spam", Scope: db.ScopeGlobal})
	if err != nil || added {
		t.Fatalf("duplicate global must be ignored: added=%v err=%v", added, err)
	}
	if _, err := client.AddStopWord(ctx, db.StopWord{Word: "casino", Scope: db.ScopeGroup, GroupID: 1}); err != nil {
		t.Fatalf("add group word: %v", err)
	}
	if _, err := client.AddStopWord(ctx, db.StopWord{Word: "crypto", Scope: db.ScopeGroup, GroupID: 2}); err != nil {
		t.Fatalf("add other group word: %v", err)
	}
	if _, err := client.AddStopWord(ctx, db.StopWord{Word: "", Scope: db.ScopeGlobal}); err == nil {
		t.Fatalf("expected error for empty word")
	}

	words, err := client.ListStopWords(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(words) != 2 || words[0] != "casino" || words[1] != "spam" {
		t.Fatalf("unexpected union for group 1: %v", words)
	}

	global, err := client.ListGlobalStopWords(ctx)
	if err != nil || len(global) != 1 || global[0] != "spam" {
		t.Fatalf("unexpected global list: %v err=%v", global, err)
	}
	group, err := client.ListGroupStopWords(ctx, 2)
	if err != nil || len(group) != 1 || group[0] != "crypto" {
		t.Fatalf("unexpected group list: %v err=%v", group, err)
	}

	removed, err := client.RemoveStopWord(ctx, db.StopWord{Word: "Casino", Scope: db.ScopeGroup, GroupID: 1})
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	removed, err = client.RemoveStopWord(ctx, db.StopWord{Word: "spam", Scope: db.ScopeGroup, GroupID: 1})
	if err != nil || removed {
		t.Fatalf("group removal must not touch global word: removed=%v err=%v", removed, err)
	}
}

func TestIncrementViolationIsAtomic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.IncrementViolation(ctx, 10, -100, "user", "User", time.Now()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("increment: %v", err)
	}

	record, err := client.GetViolation(ctx, 10, -100)
	if err != nil {
		t.Fatalf("get violation: %v", err)
	}
	if record.ViolationsCount != workers {
		t.Fatalf("expected %d violations, got %d", workers, record.ViolationsCount)
	}
}

func TestIncrementViolationReturnsPostIncrementRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)
	at := time.Unix(1700000000, 123)

	first, err := client.IncrementViolation(ctx, 1, 2, "name", "First", at)
	if err != nil {
		t.Fatalf("first increment: %v", err)
	}
	if first.ViolationsCount != 1 || first.Banned || !first.LastViolationTime.Equal(at) {
		t.Fatalf("unexpected first record: %+v", first)
	}
	second, err := client.IncrementViolation(ctx, 1, 2, "renamed", "First", at.Add(time.Second))
	if err != nil {
		t.Fatalf("second increment: %v", err)
	}
	if second.ViolationsCount != 2 || second.Username != "renamed" {
		t.Fatalf("unexpected second record: %+v", second)
	}
}

func TestBanUnbanReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.BanUser(ctx, 5, 6, "bad", "Bad"); err != nil {
		t.Fatalf("ban: %v", err)
	}
	record, err := client.GetViolation(ctx, 5, 6)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !record.IsBanned() || record.ViolationsCount != 0 {
		t.Fatalf("ban must create a zero-count banned record: %+v", record)
	}

	if _, err := client.IncrementViolation(ctx, 5, 6, "bad", "Bad", time.Now()); err != nil {
		t.Fatalf("increment: %v", err)
	}
	record, _ = client.GetViolation(ctx, 5, 6)
	if !record.IsBanned() {
		t.Fatalf("increment must keep the banned flag")
	}

	unbanned, err := client.UnbanUser(ctx, 5, 6)
	if err != nil || !unbanned {
		t.Fatalf("unban: unbanned=%v err=%v", unbanned, err)
	}
	record, _ = client.GetViolation(ctx, 5, 6)
	if record.IsBanned() || record.ViolationsCount != 1 {
		t.Fatalf("unban must only clear the flag: %+v", record)
	}

	reset, err := client.ResetViolations(ctx, 5, 6)
	if err != nil || !reset {
		t.Fatalf("reset: reset=%v err=%v", reset, err)
	}
	record, err = client.GetViolation(ctx, 5, 6)
	if err != nil || record != nil {
		t.Fatalf("expected no record after reset, got %+v err=%v", record, err)
	}
}

func TestLastMessageAndUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	last, err := client.GetLastMessage(ctx, 1, 2)
	if err != nil || last != nil {
		t.Fatalf("expected no last message, got %+v err=%v", last, err)
	}
	at := time.Unix(1700000000, 0)
	if err := client.SetLastMessage(ctx, 1, 2, at); err != nil {
		t.Fatalf("set last message: %v", err)
	}
	if err := client.SetLastMessage(ctx, 1, 2, at.Add(time.Minute)); err != nil {
		t.Fatalf("overwrite last message: %v", err)
	}
	last, err = client.GetLastMessage(ctx, 1, 2)
	if err != nil || !last.LastMessageTime.Equal(at.Add(time.Minute)) {
		t.Fatalf("unexpected last message %+v err=%v", last, err)
	}

	if err := client.UpsertUser(ctx, &db.UserProfile{UserID: 7, Username: "JohnDoe", FirstName: "John", LastSeen: at}); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	user, err := client.GetUserByUsername(ctx, "@johndoe")
	if err != nil || user == nil || user.UserID != 7 || user.FirstName != "John" {
		t.Fatalf("lookup by username: %+v err=%v", user, err)
	}
	user, err = client.GetUserByUsername(ctx, "@nobody")
	if err != nil || user != nil {
		t.Fatalf("expected no user, got %+v err=%v", user, err)
	}
}
