package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iamwavecut/ngguard/internal/config"
	"github.com/iamwavecut/ngguard/internal/db"
	ngerrors "github.com/iamwavecut/ngguard/internal/errors"
	"github.com/iamwavecut/ngguard/internal/i18n"
	"github.com/iamwavecut/ngguard/internal/utils/text"
)

const tracerName = "ngguard/moderation"

type (
	Store interface {
		db.GroupStore
		db.UserStore
		db.ViolationStore
		db.MessageStore
	}

	SubscriptionVerifier interface {
		IsSubscribedToAll(ctx context.Context, userID int64, channels []string) bool
	}

	ContentFilter interface {
		Matches(ctx context.Context, text string, groupID int64) (bool, error)
	}

	Enforcement interface {
		Apply(ctx context.Context, msg IncomingMessage, decision Decision)
	}

	Config struct {
		Language              string
		ViolationThreshold    int
		DefaultSlowModeDelay  time.Duration
		WarningTTL            time.Duration
		SlowModeWarningTTLCap time.Duration
	}
)

// ConfigFrom picks the moderation settings out of the application config.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		Language:              cfg.DefaultLanguage,
		ViolationThreshold:    cfg.Moderation.ViolationThreshold,
		DefaultSlowModeDelay:  cfg.Moderation.DefaultSlowModeDelay,
		WarningTTL:            cfg.Moderation.WarningTTL,
		SlowModeWarningTTLCap: cfg.Moderation.SlowModeWarningTTLCap,
	}
}

// Pipeline turns one group message into a Decision, updating the moderation state on the way.
type Pipeline struct {
	cfg           Config
	store         Store
	subscriptions SubscriptionVerifier
	limiter       *RateLimiter
	filter        ContentFilter
	violations    *ViolationTracker
	enforcer      Enforcement
	observer      Observer
	locks         *keyedMutex
	now           func() time.Time
}

func NewPipeline(cfg Config, store Store, subscriptions SubscriptionVerifier, filter ContentFilter, enforcer Enforcement, observer Observer) *Pipeline {
	if cfg.ViolationThreshold == 0 {
		cfg.ViolationThreshold = config.ViolationThreshold
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Pipeline{
		cfg:           cfg,
		store:         store,
		subscriptions: subscriptions,
		limiter:       NewRateLimiter(store),
		filter:        filter,
		violations:    NewViolationTracker(store),
		enforcer:      enforcer,
		observer:      observer,
		locks:         newKeyedMutex(),
		now:           time.Now,
	}
}

func (p *Pipeline) getLogEntry() *log.Entry {
	return log.WithField("object", "Pipeline")
}

// Process evaluates msg and applies the resulting side effects. On a persistence error
// nothing is applied and the error wraps ngerrors.ErrPersistence.
func (p *Pipeline) Process(ctx context.Context, msg IncomingMessage) (Decision, error) {
	started := p.now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "moderate-message")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("chat_id", msg.GroupID),
		attribute.Int64("user_id", msg.Sender.ID),
		attribute.Int("message_id", msg.MessageID),
	)

	decision, err := p.Evaluate(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
		p.getLogEntry().WithFields(log.Fields{
			"chat_id": msg.GroupID,
			"user_id": msg.Sender.ID,
			"error":   err.Error(),
		}).Error("failed to evaluate message")
		return Decision{}, err
	}
	span.SetAttributes(
		attribute.String("verdict", string(decision.Verdict)),
		attribute.String("reason", string(decision.Reason)),
	)

	if p.enforcer != nil {
		p.enforcer.Apply(ctx, msg, decision)
	}
	p.observer.DecisionMade(ctx, msg, decision, p.now().Sub(started))
	return decision, nil
}

// Evaluate runs the checks in order and returns the first terminal outcome.
// It mutates the store but performs no platform side effects.
func (p *Pipeline) Evaluate(ctx context.Context, msg IncomingMessage) (Decision, error) {
	if msg.Sender.IsBot {
		return Decision{Verdict: VerdictIgnore, Reason: ReasonBot}, nil
	}
	now := msg.ReceivedAt
	if now.IsZero() {
		now = p.now()
	}
	sender := msg.Sender

	if err := p.store.UpsertUser(ctx, &db.UserProfile{
		UserID:    sender.ID,
		Username:  sender.Username,
		FirstName: sender.FirstName,
		LastName:  sender.LastName,
		LastSeen:  now,
	}); err != nil {
		return Decision{}, ngerrors.Persistence(err, "upsert user")
	}

	settings, err := p.loadSettings(ctx, msg.GroupID, msg.GroupTitle)
	if err != nil {
		return Decision{}, err
	}

	unlock := p.locks.Lock(sender.ID, msg.GroupID)
	defer unlock()

	record, err := p.violations.Get(ctx, sender.ID, msg.GroupID)
	if err != nil {
		return Decision{}, ngerrors.Persistence(err, "get violation")
	}
	if record.HasViolationsAtLeast(p.cfg.ViolationThreshold) {
		return silentDelete(ReasonViolationLimit, record.ViolationsCount), nil
	}
	if record.IsBanned() {
		return silentDelete(ReasonBanned, record.ViolationsCount), nil
	}

	if settings.RequireSubscription && len(settings.TargetChannels) > 0 {
		if !p.subscriptions.IsSubscribedToAll(ctx, sender.ID, settings.TargetChannels) {
			return Decision{
				Verdict:  VerdictDelete,
				Reason:   ReasonNotSubscribed,
				Warnings: []Warning{p.subscriptionWarning(sender, settings.TargetChannels)},
			}, nil
		}
	}

	rate, err := p.limiter.Check(ctx, sender.ID, msg.GroupID, now, settings.Delay())
	if err != nil {
		return Decision{}, ngerrors.Persistence(err, "get last message")
	}
	if !rate.Allowed {
		return Decision{
			Verdict:   VerdictDelete,
			Reason:    ReasonSlowMode,
			Remaining: rate.Remaining,
			Warnings:  []Warning{p.slowModeWarning(rate)},
		}, nil
	}

	if msg.Text != "" {
		matched, err := p.filter.Matches(ctx, msg.Text, msg.GroupID)
		if err != nil {
			return Decision{}, ngerrors.Persistence(err, "match stop words")
		}
		if matched {
			updated, err := p.violations.Record(ctx, sender, msg.GroupID, now)
			if err != nil {
				return Decision{}, ngerrors.Persistence(err, "record violation")
			}
			decision := Decision{
				Verdict:        VerdictDelete,
				Reason:         ReasonStopWord,
				ViolationCount: updated.ViolationsCount,
				Warnings: []Warning{{
					Kind: WarningStopWord,
					Text: i18n.Get("❌ A forbidden word was used", p.cfg.Language),
					TTL:  p.cfg.WarningTTL,
				}},
			}
			if updated.ViolationsCount == p.cfg.ViolationThreshold {
				decision.Warnings = append(decision.Warnings, Warning{
					Kind: WarningBanNotice,
					Text: i18n.Get("🚫 You have been blocked for repeated violations", p.cfg.Language),
					TTL:  p.cfg.WarningTTL,
				})
			}
			return decision, nil
		}
	}

	if err := p.store.SetLastMessage(ctx, sender.ID, msg.GroupID, now); err != nil {
		return Decision{}, ngerrors.Persistence(err, "set last message")
	}
	return allow(), nil
}

// loadSettings creates the group with default settings on its first message.
func (p *Pipeline) loadSettings(ctx context.Context, groupID int64, title string) (*db.GroupSettings, error) {
	settings, err := p.store.GetGroupSettings(ctx, groupID)
	if err != nil {
		return nil, ngerrors.Persistence(err, "get group settings")
	}
	if settings == nil {
		settings = db.DefaultGroupSettings(groupID, title, p.cfg.DefaultSlowModeDelay)
		if err := p.store.SetGroupSettings(ctx, settings); err != nil {
			return nil, ngerrors.Persistence(err, "create group settings")
		}
		p.getLogEntry().WithField("chat_id", groupID).Info("registered new group")
		return settings, nil
	}
	if title != "" && settings.GroupName != title {
		settings.SetGroupName(title)
		if err := p.store.SetGroupSettings(ctx, settings); err != nil {
			return nil, ngerrors.Persistence(err, "rename group")
		}
	}
	return settings, nil
}

func (p *Pipeline) subscriptionWarning(sender Sender, channels []string) Warning {
	name := strings.TrimSpace(sender.FirstName)
	if name == "" {
		name = text.FormatUser(sender.Username, "", i18n.Get("User", p.cfg.Language))
	}
	return Warning{
		Kind: WarningSubscription,
		Text: fmt.Sprintf(
			i18n.Get("Dear %s!\nTo post in this group, subscribe to: %s", p.cfg.Language),
			name, strings.Join(channels, ", "),
		),
		TTL: p.cfg.WarningTTL,
	}
}

// slowModeWarning lives for min(cap, remaining), shorter than the other warnings.
func (p *Pipeline) slowModeWarning(rate RateResult) Warning {
	ttl := rate.Remaining
	if ttl > p.cfg.SlowModeWarningTTLCap {
		ttl = p.cfg.SlowModeWarningTTLCap
	}
	return Warning{
		Kind: WarningSlowMode,
		Text: fmt.Sprintf(
			i18n.Get("⏳ Slow mode! Wait %d more second(s) before sending the next message.", p.cfg.Language),
			rate.RemainingSeconds(),
		),
		TTL: ttl,
	}
}
