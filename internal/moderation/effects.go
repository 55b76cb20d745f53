package moderation

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Messenger is the part of the messaging platform the enforcer talks to.
type Messenger interface {
	MessageDeleter
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
}

// Scheduler defers a message deletion without blocking the caller.
type Scheduler interface {
	ScheduleDelete(chatID int64, messageID int, delay time.Duration)
}

// Enforcer applies a Decision: delete the message, post the warnings,
// then schedule each warning for removal, in that order.
type Enforcer struct {
	messenger Messenger
	scheduler Scheduler
}

func NewEnforcer(messenger Messenger, scheduler Scheduler) *Enforcer {
	return &Enforcer{messenger: messenger, scheduler: scheduler}
}

func (e *Enforcer) getLogEntry() *log.Entry {
	return log.WithField("object", "Enforcer")
}

// Apply never fails: platform errors are logged and the remaining effects still run.
func (e *Enforcer) Apply(ctx context.Context, msg IncomingMessage, decision Decision) {
	if !decision.IsDelete() {
		return
	}
	entry := e.getLogEntry().WithFields(log.Fields{
		"chat_id":    msg.GroupID,
		"user_id":    msg.Sender.ID,
		"message_id": msg.MessageID,
		"reason":     string(decision.Reason),
	})

	if err := e.messenger.DeleteMessage(ctx, msg.GroupID, msg.MessageID); err != nil {
		entry.WithField("error", err.Error()).Warn("failed to delete message")
	}

	for _, warning := range decision.Warnings {
		warningID, err := e.messenger.SendMessage(ctx, msg.GroupID, warning.Text)
		if err != nil {
			entry.WithFields(log.Fields{
				"warning": string(warning.Kind),
				"error":   err.Error(),
			}).Warn("failed to send warning")
			continue
		}
		e.scheduler.ScheduleDelete(msg.GroupID, warningID, warning.TTL)
	}
}
