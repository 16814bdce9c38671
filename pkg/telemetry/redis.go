// Package telemetry bridges the engine process and the admin process over
// Redis Pub/Sub: every trade the matcher produces and every periodic status
// line is published here so the admin plane can expose them without holding
// any reference to the live order book. This carries no state needed to
// recover a book after restart — a restarted engine publishes fresh, it
// never replays from here.
package telemetry

import (
	"context"
	"fmt"

	"github.com/ARtorias742/DCTP/internal/models"
	"github.com/redis/go-redis/v9"
)

// TradesChannel and StatusChannel are the two Pub/Sub channels the engine
// publishes to and the admin plane subscribes to.
const (
	TradesChannel = "dctp:trades"
	StatusChannel = "dctp:status"
)

// Publisher is held by the engine process.
type Publisher struct {
	client *redis.Client
}

// NewPublisher connects to addr. The connection is lazy: go-redis dials on
// first use, so a Redis outage at startup does not prevent the engine from
// serving trading traffic.
func NewPublisher(addr string) *Publisher {
	return &Publisher{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// PublishTrade mirrors one produced trade onto TradesChannel in the same
// wire format broadcast to TCP sessions, so any subscriber can reuse the
// same parser.
func (p *Publisher) PublishTrade(ctx context.Context, t models.TradeRecord) error {
	line := fmt.Sprintf("TRADE %d %d %d %s", t.BuyID, t.SellID, t.Quantity, t.Price.String())
	return p.client.Publish(ctx, TradesChannel, line).Err()
}

// PublishStatus mirrors the book's current status line onto StatusChannel.
func (p *Publisher) PublishStatus(ctx context.Context, status string) error {
	return p.client.Publish(ctx, StatusChannel, status).Err()
}

// Close releases the underlying connection pool.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// Subscriber is held by the admin process.
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber connects to addr for read-side consumption of the two
// telemetry channels.
func NewSubscriber(addr string) *Subscriber {
	return &Subscriber{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Trades returns a channel of raw TRADE lines. The channel closes when ctx
// is cancelled or the subscription's connection is closed.
func (s *Subscriber) Trades(ctx context.Context) <-chan string {
	return s.subscribe(ctx, TradesChannel)
}

// Status returns a channel of raw status lines (the book's Status text,
// without the "STATUS " reply prefix), same lifetime rules as Trades.
func (s *Subscriber) Status(ctx context.Context) <-chan string {
	return s.subscribe(ctx, StatusChannel)
}

func (s *Subscriber) subscribe(ctx context.Context, channel string) <-chan string {
	pubsub := s.client.Subscribe(ctx, channel)
	out := make(chan string)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				out <- msg.Payload
			}
		}
	}()
	return out
}

// Close releases the underlying connection pool.
func (s *Subscriber) Close() error {
	return s.client.Close()
}
