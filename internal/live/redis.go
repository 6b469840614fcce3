package live

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ora-civic/ora/internal/database/types"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// RedisBroker distributes tally updates over Redis pub/sub so every API
// instance sees every vote.
type RedisBroker struct {
	client rueidis.Client
	logger *zap.Logger
}

// NewRedisBroker creates a broker on the given client.
func NewRedisBroker(client rueidis.Client, logger *zap.Logger) *RedisBroker {
	return &RedisBroker{
		client: client,
		logger: logger.Named("live"),
	}
}

// PublishTally publishes a committed tally on the post's channel.
func (b *RedisBroker) PublishTally(ctx context.Context, tally types.PostTally) error {
	payload, err := Encode(tally)
	if err != nil {
		return err
	}

	cmd := b.client.B().Publish().Channel(Channel(tally.PostID)).Message(rueidis.BinaryString(payload)).Build()
	if err := b.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to publish tally update: %w", err)
	}

	return nil
}

// Subscribe receives updates for a post until ctx is done. It holds a
// dedicated connection so registration can be observed through the
// subscription hook.
func (b *RedisBroker) Subscribe(ctx context.Context, postID string, ready func(), fn func(types.PostTally)) error {
	channel := Channel(postID)

	err := b.client.Dedicated(func(c rueidis.DedicatedClient) error {
		var once sync.Once
		wait := c.SetPubSubHooks(rueidis.PubSubHooks{
			OnSubscription: func(s rueidis.PubSubSubscription) {
				if s.Kind == "subscribe" && s.Channel == channel && ready != nil {
					once.Do(ready)
				}
			},
			OnMessage: func(msg rueidis.PubSubMessage) {
				tally, err := Decode([]byte(msg.Message))
				if err != nil {
					b.logger.Warn("Dropping malformed tally update",
						zap.String("channel", msg.Channel),
						zap.Error(err))
					return
				}
				fn(tally)
			},
		})

		if err := c.Do(ctx, c.B().Subscribe().Channel(channel).Build()).Error(); err != nil {
			return err
		}

		select {
		case err := <-wait:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("tally subscription failed: %w", err)
	}

	return nil
}
