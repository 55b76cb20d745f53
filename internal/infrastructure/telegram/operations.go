package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"

	ngerrors "github.com/iamwavecut/ngguard/internal/errors"
)

// BotAPI is the subset of *api.BotAPI used here.
type BotAPI interface {
	Request(c api.Chattable) (*api.APIResponse, error)
	Send(c api.Chattable) (api.Message, error)
	GetChatMember(config api.GetChatMemberConfig) (api.ChatMember, error)
}

// Operations provides the Telegram calls the moderation core depends on.
// Every call is bounded by ctx even though the client itself is not context aware.
type Operations struct {
	bot BotAPI
}

func NewOperations(bot BotAPI) *Operations {
	return &Operations{bot: bot}
}

// DeleteMessage deletes a message from a chat
func (o *Operations) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := call(ctx, func() (*api.APIResponse, error) {
		return o.bot.Request(api.NewDeleteMessage(chatID, messageID))
	})
	if err != nil {
		return ngerrors.Transport(fmt.Errorf("failed to delete message: %w", err), "delete message")
	}
	return nil
}

// SendMessage posts text to a chat and returns the id of the new message.
func (o *Operations) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	msg, err := call(ctx, func() (api.Message, error) {
		return o.bot.Send(api.NewMessage(chatID, text))
	})
	if err != nil {
		return 0, ngerrors.Transport(fmt.Errorf("failed to send message: %w", err), "send message")
	}
	return msg.MessageID, nil
}

// GetChatMemberStatus accepts "@channel" or a numeric chat id.
func (o *Operations) GetChatMemberStatus(ctx context.Context, channel string, userID int64) (string, error) {
	member, err := call(ctx, func() (api.ChatMember, error) {
		return o.bot.GetChatMember(api.GetChatMemberConfig{
			ChatConfigWithUser: api.ChatConfigWithUser{
				ChatConfig: chatConfig(channel),
				UserID:     userID,
			},
		})
	})
	if err != nil {
		return "", ngerrors.Transport(fmt.Errorf("failed to get chat member of %s: %w", channel, err), "get chat member")
	}
	return member.Status, nil
}

func chatConfig(channel string) api.ChatConfig {
	channel = strings.TrimSpace(channel)
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return api.ChatConfig{ChatID: id}
	}
	return api.ChatConfig{ChannelUsername: "@" + strings.TrimPrefix(channel, "@")}
}

type result[T any] struct {
	val T
	err error
}

// call runs fn in the background and gives up when ctx is done.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	done := make(chan result[T], 1)
	go func() {
		val, err := fn()
		done <- result[T]{val: val, err: err}
	}()
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-done:
		return res.val, res.err
	}
}
