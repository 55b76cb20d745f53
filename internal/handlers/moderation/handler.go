package moderation

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngguard/internal/bot"
	"github.com/iamwavecut/ngguard/internal/moderation"
)

type (
	Moderator interface {
		Process(ctx context.Context, msg moderation.IncomingMessage) (moderation.Decision, error)
	}

	// Handler feeds group messages into the moderation pipeline.
	Handler struct {
		moderator Moderator
		now       func() time.Time
	}
)

func NewHandler(moderator Moderator) *Handler {
	return &Handler{
		moderator: moderator,
		now:       time.Now,
	}
}

func (h *Handler) getLogEntry() *log.Entry {
	return log.WithField("object", "ModerationHandler")
}

func (h *Handler) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	if u == nil || u.Message == nil || user == nil || !bot.IsGroup(chat) {
		return true, nil
	}

	msg := toIncoming(u.Message, chat, user, h.now())
	decision, err := h.moderator.Process(ctx, msg)
	if err != nil {
		return false, err
	}

	if decision.IsDelete() {
		h.getLogEntry().WithFields(log.Fields{
			"method":  "Handle",
			"chat_id": msg.GroupID,
			"user_id": msg.Sender.ID,
			"reason":  decision.Reason,
		}).Debug("message removed")
		return false, nil
	}
	return true, nil
}

// toIncoming uses the caption when a media message has no text.
func toIncoming(m *api.Message, chat *api.Chat, user *api.User, receivedAt time.Time) moderation.IncomingMessage {
	content := m.Text
	if content == "" {
		content = m.Caption
	}
	return moderation.IncomingMessage{
		MessageID:  m.MessageID,
		GroupID:    chat.ID,
		GroupTitle: chat.Title,
		Sender: moderation.Sender{
			ID:        user.ID,
			IsBot:     user.IsBot,
			Username:  user.UserName,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		},
		Text:       content,
		ReceivedAt: receivedAt,
	}
}
