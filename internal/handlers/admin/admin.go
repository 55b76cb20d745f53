package admin

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngguard/internal/bot"
	"github.com/iamwavecut/ngguard/internal/db"
	ngerrors "github.com/iamwavecut/ngguard/internal/errors"
	"github.com/iamwavecut/ngguard/internal/i18n"
	"github.com/iamwavecut/ngguard/internal/utils/text"
)

type (
	Store interface {
		db.GroupStore
		db.StopWordStore
		db.ViolationStore
		db.UserStore
	}

	Messenger interface {
		SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	}

	// StopWordCache is purged after every stop word change.
	StopWordCache interface {
		Invalidate(ctx context.Context, groupID int64)
		InvalidateAll(ctx context.Context)
	}

	Admin struct {
		store        Store
		messenger    Messenger
		cache        StopWordCache
		adminIDs     []int64
		language     string
		defaultDelay time.Duration
	}

	command struct {
		groupOnly bool
		run       func(a *Admin, ctx context.Context, chat *api.Chat, name, arg string) (string, error)
	}
)

var commands = map[string]command{
	"add_global_word":             {run: (*Admin).addGlobalWord},
	"remove_global_word":          {run: (*Admin).removeGlobalWord},
	"add_group_word":              {groupOnly: true, run: (*Admin).addGroupWord},
	"remove_group_word":           {groupOnly: true, run: (*Admin).removeGroupWord},
	"ban":                         {groupOnly: true, run: (*Admin).ban},
	"unban":                       {groupOnly: true, run: (*Admin).unban},
	"reset_violations":            {groupOnly: true, run: (*Admin).resetViolations},
	"require_subscription_toggle": {groupOnly: true, run: (*Admin).toggleSubscription},
	"set_slow_mode_delay":         {groupOnly: true, run: (*Admin).setSlowModeDelay},
	"add_target_channel":          {groupOnly: true, run: (*Admin).addTargetChannel},
	"remove_target_channel":       {groupOnly: true, run: (*Admin).removeTargetChannel},
	"target_channel_list":         {groupOnly: true, run: (*Admin).targetChannelList},
	"global_stop_words_list":      {run: (*Admin).globalStopWordsList},
	"group_stop_words_list":       {groupOnly: true, run: (*Admin).groupStopWordsList},
	"admin":                       {run: (*Admin).help},
	"help":                        {run: (*Admin).help},
	"start":                       {run: (*Admin).help},
}

// NewAdmin builds the command handler. Only users listed in adminIDs may run commands.
func NewAdmin(store Store, messenger Messenger, cache StopWordCache, adminIDs []int64, language string, defaultDelay time.Duration) *Admin {
	entry := log.WithField("object", "Admin").WithField("method", "NewAdmin")

	a := &Admin{
		store:        store,
		messenger:    messenger,
		cache:        cache,
		adminIDs:     append([]int64(nil), adminIDs...),
		language:     language,
		defaultDelay: defaultDelay,
	}
	entry.WithField("admins", len(a.adminIDs)).Debug("created new admin handler")
	return a
}

func (a *Admin) getLogEntry() *log.Entry {
	return log.WithField("object", "Admin")
}

// Handle consumes known admin commands from admins. Everything else, including
// admin commands sent by regular users, proceeds to the next handler.
func (a *Admin) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	entry := a.getLogEntry().WithField("method", "Handle")

	if u == nil || u.Message == nil || chat == nil || !u.Message.IsCommand() {
		return true, nil
	}
	name := u.Message.Command()
	cmd, ok := commands[name]
	if !ok {
		return true, nil
	}

	if user == nil || !a.isAdmin(user.ID) {
		a.reply(ctx, chat.ID, i18n.Get("⛔ You don't have admin rights", a.language))
		return true, nil
	}

	if cmd.groupOnly && !bot.IsGroup(chat) {
		a.reply(ctx, chat.ID, i18n.Get("❌ This command can only be used in groups", a.language))
		return false, nil
	}

	entry = entry.WithFields(log.Fields{
		"command": name,
		"chat_id": chat.ID,
		"user_id": user.ID,
	})
	answer, err := cmd.run(a, ctx, chat, name, strings.TrimSpace(u.Message.CommandArguments()))
	if err != nil {
		entry.WithField("error", err.Error()).Error("admin command failed")
		return false, err
	}
	entry.Info("admin command handled")
	a.reply(ctx, chat.ID, answer)
	return false, nil
}

func (a *Admin) isAdmin(userID int64) bool {
	return slices.Contains(a.adminIDs, userID)
}

func (a *Admin) reply(ctx context.Context, chatID int64, answer string) {
	if answer == "" {
		return
	}
	if _, err := a.messenger.SendMessage(ctx, chatID, answer); err != nil {
		a.getLogEntry().WithField("method", "reply").WithField("error", err.Error()).Error("failed to send reply")
	}
}

func (a *Admin) addGlobalWord(ctx context.Context, _ *api.Chat, name, word string) (string, error) {
	if word == "" {
		return fmt.Sprintf(i18n.Get("❌ Specify a word: /%s word", a.language), name), nil
	}
	if _, err := a.store.AddStopWord(ctx, db.StopWord{Word: word, Scope: db.ScopeGlobal}); err != nil {
		return "", ngerrors.Persistence(err, "add global stop word")
	}
	a.cache.InvalidateAll(ctx)
	return fmt.Sprintf(i18n.Get("✅ Word '%s' added to global stop words", a.language), word), nil
}

func (a *Admin) removeGlobalWord(ctx context.Context, _ *api.Chat, name, word string) (string, error) {
	if word == "" {
		return fmt.Sprintf(i18n.Get("❌ Specify a word: /%s word", a.language), name), nil
	}
	if _, err := a.store.RemoveStopWord(ctx, db.StopWord{Word: word, Scope: db.ScopeGlobal}); err != nil {
		return "", ngerrors.Persistence(err, "remove global stop word")
	}
	a.cache.InvalidateAll(ctx)
	return fmt.Sprintf(i18n.Get("✅ Word '%s' removed from global stop words", a.language), word), nil
}

func (a *Admin) addGroupWord(ctx context.Context, chat *api.Chat, name, word string) (string, error) {
	if word == "" {
		return fmt.Sprintf(i18n.Get("❌ Specify a word: /%s word", a.language), name), nil
	}
	if _, err := a.store.AddStopWord(ctx, db.StopWord{Word: word, Scope: db.ScopeGroup, GroupID: chat.ID}); err != nil {
		return "", ngerrors.Persistence(err, "add group stop word")
	}
	a.cache.Invalidate(ctx, chat.ID)
	return fmt.Sprintf(i18n.Get("✅ Word '%s' added to this group's stop words", a.language), word), nil
}

func (a *Admin) removeGroupWord(ctx context.Context, chat *api.Chat, name, word string) (string, error) {
	if word == "" {
		return fmt.Sprintf(i18n.Get("❌ Specify a word: /%s word", a.language), name), nil
	}
	if _, err := a.store.RemoveStopWord(ctx, db.StopWord{Word: word, Scope: db.ScopeGroup, GroupID: chat.ID}); err != nil {
		return "", ngerrors.Persistence(err, "remove group stop word")
	}
	a.cache.Invalidate(ctx, chat.ID)
	return fmt.Sprintf(i18n.Get("✅ Word '%s' removed from this group's stop words", a.language), word), nil
}

// lookupUser resolves "@name" to a known profile. A non-empty answer means the lookup failed.
func (a *Admin) lookupUser(ctx context.Context, name, arg string) (*db.UserProfile, string, error) {
	username := text.NormalizeUsername(arg)
	if username == "" || !strings.HasPrefix(arg, "@") {
		return nil, fmt.Sprintf(i18n.Get("❌ Specify a username: /%s @username", a.language), name), nil
	}
	profile, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, "", ngerrors.Persistence(err, "get user by username")
	}
	if profile == nil {
		return nil, fmt.Sprintf(i18n.Get("❌ User %s not found in the database", a.language), "@"+username), nil
	}
	return profile, "", nil
}

func (a *Admin) ban(ctx context.Context, chat *api.Chat, name, arg string) (string, error) {
	profile, answer, err := a.lookupUser(ctx, name, arg)
	if profile == nil {
		return answer, err
	}
	if err := a.store.BanUser(ctx, profile.UserID, chat.ID, profile.Username, profile.FirstName); err != nil {
		return "", ngerrors.Persistence(err, "ban user")
	}
	return fmt.Sprintf(i18n.Get("🚫 User %s is banned", a.language), "@"+profile.Username), nil
}

func (a *Admin) unban(ctx context.Context, chat *api.Chat, name, arg string) (string, error) {
	profile, answer, err := a.lookupUser(ctx, name, arg)
	if profile == nil {
		return answer, err
	}
	if _, err := a.store.UnbanUser(ctx, profile.UserID, chat.ID); err != nil {
		return "", ngerrors.Persistence(err, "unban user")
	}
	return fmt.Sprintf(i18n.Get("✅ User %s is unbanned", a.language), "@"+profile.Username), nil
}

func (a *Admin) resetViolations(ctx context.Context, chat *api.Chat, name, arg string) (string, error) {
	profile, answer, err := a.lookupUser(ctx, name, arg)
	if profile == nil {
		return answer, err
	}
	if _, err := a.store.ResetViolations(ctx, profile.UserID, chat.ID); err != nil {
		return "", ngerrors.Persistence(err, "reset violations")
	}
	return fmt.Sprintf(i18n.Get("✅ Violations of %s are reset", a.language), "@"+profile.Username), nil
}

// settings returns the stored settings of chat, or the defaults for a group not seen yet.
func (a *Admin) settings(ctx context.Context, chat *api.Chat) (*db.GroupSettings, error) {
	settings, err := a.store.GetGroupSettings(ctx, chat.ID)
	if err != nil {
		return nil, ngerrors.Persistence(err, "get group settings")
	}
	if settings == nil {
		settings = db.DefaultGroupSettings(chat.ID, chat.Title, a.defaultDelay)
	}
	return settings, nil
}

func (a *Admin) updateSettings(ctx context.Context, chat *api.Chat, mutate func(s *db.GroupSettings) error) (*db.GroupSettings, error) {
	settings, err := a.settings(ctx, chat)
	if err != nil {
		return nil, err
	}
	if err := mutate(settings); err != nil {
		return nil, err
	}
	if err := a.store.SetGroupSettings(ctx, settings); err != nil {
		return nil, ngerrors.Persistence(err, "save group settings")
	}
	return settings, nil
}

func (a *Admin) toggleSubscription(ctx context.Context, chat *api.Chat, _, _ string) (string, error) {
	settings, err := a.updateSettings(ctx, chat, func(s *db.GroupSettings) error {
		s.SetRequireSubscription(!s.RequireSubscription)
		return nil
	})
	if err != nil {
		return "", err
	}
	if settings.RequireSubscription {
		return i18n.Get("✅ Subscription check enabled", a.language), nil
	}
	return i18n.Get("✅ Subscription check disabled", a.language), nil
}

func (a *Admin) setSlowModeDelay(ctx context.Context, chat *api.Chat, _, arg string) (string, error) {
	delay, ok := text.LookupDelay(arg)
	if !ok {
		return i18n.Get("❌ Specify the delay in seconds: /set_slow_mode_delay 60", a.language), nil
	}
	settings, err := a.updateSettings(ctx, chat, func(s *db.GroupSettings) error {
		return s.SetSlowModeDelay(int64(delay / time.Second))
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(i18n.Get("✅ Slow mode set to %d seconds", a.language), settings.SlowModeDelay), nil
}

func (a *Admin) addTargetChannel(ctx context.Context, chat *api.Chat, name, arg string) (string, error) {
	channel := db.NormalizeChannel(arg)
	if channel == "" {
		return fmt.Sprintf(i18n.Get("❌ Specify a channel: /%s @channel", a.language), name), nil
	}
	if _, err := a.updateSettings(ctx, chat, func(s *db.GroupSettings) error {
		_, err := s.AddTargetChannel(channel)
		return err
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf(i18n.Get("✅ Channel %s added to the subscription check", a.language), channel), nil
}

func (a *Admin) removeTargetChannel(ctx context.Context, chat *api.Chat, name, arg string) (string, error) {
	channel := db.NormalizeChannel(arg)
	if channel == "" {
		return fmt.Sprintf(i18n.Get("❌ Specify a channel: /%s @channel", a.language), name), nil
	}
	if _, err := a.updateSettings(ctx, chat, func(s *db.GroupSettings) error {
		s.RemoveTargetChannel(channel)
		return nil
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf(i18n.Get("✅ Channel %s removed from the subscription check", a.language), channel), nil
}

func (a *Admin) targetChannelList(ctx context.Context, chat *api.Chat, _, _ string) (string, error) {
	settings, err := a.settings(ctx, chat)
	if err != nil {
		return "", err
	}
	if len(settings.TargetChannels) == 0 {
		return i18n.Get("📭 No subscription channels configured", a.language), nil
	}
	return bulletList(i18n.Get("📋 Subscription channels:", a.language), settings.TargetChannels), nil
}

func (a *Admin) globalStopWordsList(ctx context.Context, _ *api.Chat, _, _ string) (string, error) {
	words, err := a.store.ListGlobalStopWords(ctx)
	if err != nil {
		return "", ngerrors.Persistence(err, "list global stop words")
	}
	if len(words) == 0 {
		return i18n.Get("📭 No global stop words configured", a.language), nil
	}
	return bulletList(i18n.Get("📋 Global stop words:", a.language), words), nil
}

func (a *Admin) groupStopWordsList(ctx context.Context, chat *api.Chat, _, _ string) (string, error) {
	words, err := a.store.ListGroupStopWords(ctx, chat.ID)
	if err != nil {
		return "", ngerrors.Persistence(err, "list group stop words")
	}
	if len(words) == 0 {
		return i18n.Get("📭 No stop words configured for this group", a.language), nil
	}
	return bulletList(i18n.Get("📋 Stop words of this group:", a.language), words), nil
}

func (a *Admin) help(context.Context, *api.Chat, string, string) (string, error) {
	return i18n.Get("🤖 ADMIN COMMANDS:\n\n📋 Stop words:\n/add_global_word word - add a global stop word\n/remove_global_word word - remove a global stop word\n/add_group_word word - add a stop word for this group\n/remove_group_word word - remove a stop word for this group\n/global_stop_words_list - list global stop words\n/group_stop_words_list - list this group's stop words\n\n👤 Users:\n/ban @username - ban a user\n/unban @username - unban a user\n/reset_violations @username - reset violations of a user\n\n⚙️ Group settings:\n/require_subscription_toggle - toggle the subscription check\n/set_slow_mode_delay 60 - set slow mode (seconds, 5m, 1h)\n/add_target_channel @channel - add a subscription channel\n/remove_target_channel @channel - remove a subscription channel\n/target_channel_list - list subscription channels\n\nℹ️ Help:\n/admin, /help, /start - show this message", a.language), nil
}

func bulletList(header string, items []string) string {
	var sb strings.Builder
	sb.WriteString(header)
	for _, item := range items {
		sb.WriteString("\n• ")
		sb.WriteString(item)
	}
	return sb.String()
}
