package db

import (
	"errors"
	"testing"
	"time"

	ngerrors "github.com/iamwavecut/ngguard/internal/errors"
)

func TestDefaultGroupSettings(t *testing.T) {
	t.Parallel()

	s := DefaultGroupSettings(-1, "chat", 15*time.Second)
	if !s.RequireSubscription || len(s.TargetChannels) != 0 || s.SlowModeDelay != 15 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.Delay() != 15*time.Second {
		t.Fatalf("unexpected delay %s", s.Delay())
	}
}

func TestTargetChannels(t *testing.T) {
	t.Parallel()

	s := DefaultGroupSettings(-1, "chat", 0)
	for _, tc := range []struct {
		channel string
		added   bool
	}{
		{"@news", true},
		{"News", false},
		{"@other", true},
		{" @NEWS ", false},
	} {
		added, err := s.AddTargetChannel(tc.channel)
		if err != nil {
			t.Fatalf("add %q: %v", tc.channel, err)
		}
		if added != tc.added {
			t.Fatalf("add %q: got %v want %v", tc.channel, added, tc.added)
		}
	}
	if _, err := s.AddTargetChannel("@"); !errors.Is(err, ngerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if !s.RemoveTargetChannel("news") {
		t.Fatalf("expected removal")
	}
	if s.RemoveTargetChannel("@news") {
		t.Fatalf("second removal must report false")
	}
	if len(s.TargetChannels) != 1 || s.TargetChannels[0] != "@other" {
		t.Fatalf("unexpected channels: %v", s.TargetChannels)
	}
}

func TestNumericTargetChannelIsKept(t *testing.T) {
	t.Parallel()

	s := DefaultGroupSettings(-1, "chat", 0)
	added, err := s.AddTargetChannel(" -1001234567890 ")
	if err != nil || !added {
		t.Fatalf("add numeric channel: added=%v err=%v", added, err)
	}
	if s.TargetChannels[0] != "-1001234567890" {
		t.Fatalf("numeric id must be stored as is, got %q", s.TargetChannels[0])
	}
	if added, _ := s.AddTargetChannel("-1001234567890"); added {
		t.Fatalf("duplicate numeric id must not be added")
	}
	if !s.TargetChannels.Contains("-1001234567890") || !s.RemoveTargetChannel("-1001234567890") {
		t.Fatalf("numeric id must be found and removed")
	}

	for in, want := range map[string]string{
		"-1001234567890": "-1001234567890",
		"@News":          "@news",
		"@12news":        "@12news",
		" ":              "",
	} {
		if got := NormalizeChannel(in); got != want {
			t.Fatalf("NormalizeChannel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetSlowModeDelayRejectsNegative(t *testing.T) {
	t.Parallel()

	s := DefaultGroupSettings(-1, "chat", 15*time.Second)
	if err := s.SetSlowModeDelay(-1); !errors.Is(err, ngerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if s.SlowModeDelay != 15 {
		t.Fatalf("delay must be unchanged, got %d", s.SlowModeDelay)
	}
}

func TestChannelsScan(t *testing.T) {
	t.Parallel()

	var c Channels
	if err := c.Scan(`["@a","@b"]`); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(c) != 2 || c[1] != "@b" {
		t.Fatalf("unexpected channels %v", c)
	}
	if err := c.Scan(nil); err != nil || len(c) != 0 {
		t.Fatalf("nil scan: %v %v", c, err)
	}
	if err := c.Scan(42); err == nil {
		t.Fatalf("expected error for int")
	}
}
