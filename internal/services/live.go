package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const accountChannelPrefix = "account:"

// ChangePublisher announces that an account's snapshot changed.
type ChangePublisher interface {
	Publish(ctx context.Context, accountKey string) error
}

// ChangeSubscriber delivers change signals for one account until cancel is called.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, accountKey string) (<-chan struct{}, func(), error)
}

// RedisNotifier fans account-changed events out over Redis Pub/Sub so every
// instance serving a live stream for that account hears about it.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func accountChannel(accountKey string) string {
	return accountChannelPrefix + accountKey
}

// Publish sends the current time as the payload; subscribers only care that something changed.
func (n *RedisNotifier) Publish(ctx context.Context, accountKey string) error {
	payload := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return n.client.Publish(ctx, accountChannel(accountKey), payload).Err()
}

// Subscribe returns a channel that receives a signal per published change. Bursts are
// coalesced: a slow reader sees at least one signal after the last change.
func (n *RedisNotifier) Subscribe(ctx context.Context, accountKey string) (<-chan struct{}, func(), error) {
	pubsub := n.client.Subscribe(ctx, accountChannel(accountKey))

	// Wait for the subscription to be confirmed so no publish is missed after return.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan struct{}, 1)
	msgs := pubsub.Channel()

	go func() {
		defer close(out)
		for range msgs {
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if err := pubsub.Close(); err != nil {
				log.Warn().Err(err).Str("account", accountKey).Msg("closing account subscription")
			}
		})
	}

	return out, cancel, nil
}

// publishChange is best effort: a lost signal only delays a client refresh.
func publishChange(ctx context.Context, p ChangePublisher, accountKey string) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, accountKey); err != nil {
		log.Warn().Err(err).Str("account", accountKey).Msg("publishing account change")
	}
}
