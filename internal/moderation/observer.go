package moderation

import (
	"context"
	"time"
)

// Observer receives every decision and subscription query for metrics and auditing.
type Observer interface {
	DecisionMade(ctx context.Context, msg IncomingMessage, decision Decision, elapsed time.Duration)
	SubscriptionChecked(result SubscriptionResult)
}

type NopObserver struct{}

func (NopObserver) DecisionMade(context.Context, IncomingMessage, Decision, time.Duration) {}

func (NopObserver) SubscriptionChecked(SubscriptionResult) {}
