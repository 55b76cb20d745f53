package moderation

import (
	"time"
)

type Verdict string

const (
	VerdictAllow  Verdict = "allow"
	VerdictIgnore Verdict = "ignore"
	VerdictDelete Verdict = "delete"
)

type Reason string

const (
	ReasonNone           Reason = "none"
	ReasonBot            Reason = "bot"
	ReasonViolationLimit Reason = "violation_limit"
	ReasonBanned         Reason = "banned"
	ReasonNotSubscribed  Reason = "not_subscribed"
	ReasonSlowMode       Reason = "slow_mode"
	ReasonStopWord       Reason = "stop_word"
)

type WarningKind string

const (
	WarningSubscription WarningKind = "subscription"
	WarningSlowMode     WarningKind = "slow_mode"
	WarningStopWord     WarningKind = "stop_word"
	WarningBanNotice    WarningKind = "ban_notice"
)

type (
	Sender struct {
		ID        int64
		IsBot     bool
		Username  string
		FirstName string
		LastName  string
	}

	// IncomingMessage is one group chat message as seen by the pipeline.
	// An empty Text means the message carries no text.
	IncomingMessage struct {
		MessageID  int
		GroupID    int64
		GroupTitle string
		Sender     Sender
		Text       string
		ReceivedAt time.Time
	}

	// Warning is a transient notice posted to the group and removed after TTL.
	Warning struct {
		Kind WarningKind
		Text string
		TTL  time.Duration
	}

	Decision struct {
		Verdict  Verdict
		Reason   Reason
		Warnings []Warning
		// ViolationCount is the post-increment count when Reason is ReasonStopWord,
		// and the stored count for the hard-block otherwise.
		ViolationCount int
		// Remaining is set for slow-mode rejections.
		Remaining time.Duration
	}
)

func (d Decision) IsDelete() bool {
	return d.Verdict == VerdictDelete
}

func allow() Decision {
	return Decision{Verdict: VerdictAllow, Reason: ReasonNone}
}

func silentDelete(reason Reason, count int) Decision {
	return Decision{Verdict: VerdictDelete, Reason: reason, ViolationCount: count}
}
