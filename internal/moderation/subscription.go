package moderation

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/iamwavecut/tool"
)

// MembershipChecker queries the status of a user in a channel, e.g. "member" or "left".
type MembershipChecker interface {
	GetChatMemberStatus(ctx context.Context, channel string, userID int64) (string, error)
}

type SubscriptionResult string

const (
	SubscriptionSubscribed    SubscriptionResult = "subscribed"
	SubscriptionNotSubscribed SubscriptionResult = "not_subscribed"
	SubscriptionError         SubscriptionResult = "error"
)

var subscribedStatuses = []string{"member", "administrator", "creator"}

type SubscriptionChecker struct {
	members  MembershipChecker
	timeout  time.Duration
	observer Observer
	flights  singleflight.Group
}

func NewSubscriptionChecker(members MembershipChecker, timeout time.Duration, observer Observer) *SubscriptionChecker {
	if observer == nil {
		observer = NopObserver{}
	}
	return &SubscriptionChecker{
		members:  members,
		timeout:  timeout,
		observer: observer,
	}
}

func (c *SubscriptionChecker) getLogEntry() *log.Entry {
	return log.WithField("object", "SubscriptionChecker")
}

// IsSubscribedToAll fails closed: any error, timeout or unexpected status means false.
// Channels are checked in order and the first failure stops the scan.
func (c *SubscriptionChecker) IsSubscribedToAll(ctx context.Context, userID int64, channels []string) bool {
	ctx, span := otel.Tracer("ngguard/moderation").Start(ctx, "subscription-check")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int("channels", len(channels)),
	)

	for _, channel := range channels {
		result, err := c.check(ctx, userID, channel)
		c.observer.SubscriptionChecked(result)
		if result == SubscriptionSubscribed {
			continue
		}
		entry := c.getLogEntry().WithFields(log.Fields{
			"user_id": userID,
			"channel": channel,
			"result":  string(result),
		})
		if err != nil {
			entry.WithField("error", err.Error()).Warn("membership check failed")
			span.RecordError(err)
			span.SetStatus(codes.Error, "membership check failed")
		} else {
			entry.Debug("user is not subscribed")
		}
		return false
	}
	return true
}

func (c *SubscriptionChecker) check(ctx context.Context, userID int64, channel string) (SubscriptionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	key := fmt.Sprintf("%s/%d", channel, userID)
	ch := c.flights.DoChan(key, func() (any, error) {
		// shared by every caller of key, bounded by its own timeout
		queryCtx, queryCancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer queryCancel()
		return c.members.GetChatMemberStatus(queryCtx, channel, userID)
	})

	select {
	case <-ctx.Done():
		return SubscriptionError, fmt.Errorf("membership query for %s: %w", channel, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return SubscriptionError, res.Err
		}
		status, _ := res.Val.(string)
		if tool.In(status, subscribedStatuses...) {
			return SubscriptionSubscribed, nil
		}
		return SubscriptionNotSubscribed, nil
	}
}
