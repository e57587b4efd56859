package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRelayChannel is the pub/sub channel shared by every instance.
const DefaultRelayChannel = "grievance:notifications"

const (
	defaultRetryMin = 250 * time.Millisecond
	defaultRetryMax = 10 * time.Second
)

type envelope struct {
	CitizenID uuid.UUID `json:"citizen_id"`
	Event     Event     `json:"event"`
}

// RedisRelay fans deliveries out to every instance so a citizen connected elsewhere still receives them.
// Until Run holds a subscription, deliveries go straight to the local hub.
type RedisRelay struct {
	client     *redis.Client
	channel    string
	hub        *Hub
	logger     zerolog.Logger
	subscribed atomic.Bool
	retryMin   time.Duration
	retryMax   time.Duration
}

// NewRedisRelay wires a relay that delivers received events into hub.
func NewRedisRelay(client *redis.Client, hub *Hub, logger zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		client:   client,
		channel:  DefaultRelayChannel,
		hub:      hub,
		logger:   logger,
		retryMin: defaultRetryMin,
		retryMax: defaultRetryMax,
	}
}

// Subscribed reports whether Run currently holds the subscription.
func (r *RedisRelay) Subscribed() bool {
	return r.subscribed.Load()
}

// Deliver publishes the event for every instance. Without a live subscription,
// or when the publish fails, it delivers to the local hub instead.
func (r *RedisRelay) Deliver(ctx context.Context, citizenID uuid.UUID, event Event) (Outcome, error) {
	if !r.subscribed.Load() {
		return r.hub.Deliver(ctx, citizenID, event)
	}
	payload, err := encodeEnvelope(citizenID, event)
	if err != nil {
		return OutcomeFailed, err
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.logger.Warn().Err(err).Str("citizen_id", citizenID.String()).Msg("notify: relay publish failed, delivering locally")
		return r.hub.Deliver(ctx, citizenID, event)
	}
	return OutcomeRelayed, nil
}

// Run subscribes and hands every message to the local hub until ctx is cancelled.
// The initial subscribe is retried with backoff; once held, go-redis reconnects on its own.
func (r *RedisRelay) Run(ctx context.Context) error {
	wait := r.retryMin
	for {
		sub := r.client.Subscribe(ctx, r.channel)
		_, err := sub.Receive(ctx)
		if err == nil {
			return r.consume(ctx, sub)
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return nil
		}

		r.logger.Warn().Err(err).Dur("retry_in", wait).Msg("notify: relay subscribe failed")
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		wait = min(wait*2, r.retryMax)
	}
}

func (r *RedisRelay) consume(ctx context.Context, sub *redis.PubSub) error {
	defer sub.Close()

	r.subscribed.Store(true)
	defer r.subscribed.Store(false)
	r.logger.Info().Str("channel", r.channel).Msg("notify: relay subscribed")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("relay: subscription channel closed")
			}
			if err := dispatch(ctx, r.hub, msg.Payload); err != nil {
				r.logger.Warn().Err(err).Msg("notify: relay dispatch failed")
			}
		}
	}
}

func encodeEnvelope(citizenID uuid.UUID, event Event) (string, error) {
	raw, err := json.Marshal(envelope{CitizenID: citizenID, Event: event})
	if err != nil {
		return "", fmt.Errorf("relay encode: %w", err)
	}
	return string(raw), nil
}

func dispatch(ctx context.Context, n Notifier, payload string) error {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return fmt.Errorf("relay decode: %w", err)
	}
	if env.CitizenID == uuid.Nil {
		return fmt.Errorf("relay decode: missing citizen id")
	}
	_, err := n.Deliver(ctx, env.CitizenID, env.Event)
	return err
}
