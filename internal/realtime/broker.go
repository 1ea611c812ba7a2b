package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const channel = "ridedesk:events"

// Broker publishes events to redis and relays everything it hears to the local hub.
type Broker struct {
	client redis.UniversalClient
	hub    *Hub
	logger zerolog.Logger
}

func NewBroker(client redis.UniversalClient, hub *Hub, logger zerolog.Logger) *Broker {
	return &Broker{client: client, hub: hub, logger: logger}
}

func (b *Broker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Run relays events until ctx is done.
func (b *Broker) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe events: %w", err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn().Err(err).Msg("drop malformed event")
				continue
			}
			b.hub.Deliver(ev)
		}
	}
}

// LocalPublisher delivers straight to the hub, for single-instance setups and tests.
type LocalPublisher struct {
	Hub *Hub
}

func (p LocalPublisher) Publish(_ context.Context, ev Event) error {
	p.Hub.Deliver(ev)
	return nil
}
