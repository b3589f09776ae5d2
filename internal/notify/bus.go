// Package notify fans committed walk transitions out to best-effort side
// effects (push, email, SMS). A handler failure is logged and counted, never
// surfaced: the transition is already durable by the time an event is
// published.
package notify

import (
	"context"
	"log/slog"
	"time"

	"pawmarket/internal/observability"
)

// Event describes one committed walk transition. Fields are plain strings so
// subscribers stay decoupled from the walk module's types.
type Event struct {
	WalkID     string
	Transition string
	From       string
	To         string
	OwnerID    string
	WalkerID   string
	Actor      string // "owner" or "walker": which side performed the transition
	PetName    string
	OccurredAt time.Time
}

// Subscriber is one independent side-effect handler.
type Subscriber interface {
	Name() string
	HandleWalkEvent(ctx context.Context, e Event) error
}

// Bus is an in-process event bus. Publish never blocks the request path: the
// channel is buffered and a full buffer drops the event (with a log line)
// rather than stalling a committed transition's response.
type Bus struct {
	ch     chan Event
	subs   []Subscriber
	logger *slog.Logger
}

func NewBus(logger *slog.Logger, subs ...Subscriber) *Bus {
	return &Bus{
		ch:     make(chan Event, 256),
		subs:   subs,
		logger: logger,
	}
}

func (b *Bus) Publish(e Event) {
	select {
	case b.ch <- e:
	default:
		b.logger.Warn("notify bus full, dropping event",
			"walk_id", e.WalkID, "transition", e.Transition)
	}
}

// Run consumes events until ctx is cancelled. Each subscriber handles each
// event in its own goroutine so a slow or failing handler cannot delay the
// others.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-b.ch:
			for _, sub := range b.subs {
				go b.dispatch(ctx, sub, e)
			}
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, sub Subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			observability.NotifyFailuresTotal.WithLabelValues(sub.Name()).Inc()
			b.logger.Error("notify handler panicked",
				"handler", sub.Name(), "walk_id", e.WalkID, "panic", r)
		}
	}()
	if err := sub.HandleWalkEvent(ctx, e); err != nil {
		observability.NotifyFailuresTotal.WithLabelValues(sub.Name()).Inc()
		b.logger.Error("notify handler failed",
			"handler", sub.Name(), "walk_id", e.WalkID,
			"transition", e.Transition, "err", err)
	}
}
