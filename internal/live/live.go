// Package live fans committed vote tallies out to subscribers of a post.
package live

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/ora-civic/ora/internal/database/types"
)

// Broker publishes tally updates and delivers them to per-post subscribers.
type Broker interface {
	PublishTally(ctx context.Context, tally types.PostTally) error
	// Subscribe calls fn for every update on the post until ctx is done.
	// ready, when set, is called once the subscription is registered; no update
	// published after that is missed. It blocks and returns nil when ctx is cancelled.
	Subscribe(ctx context.Context, postID string, ready func(), fn func(types.PostTally)) error
}

// Channel returns the pub/sub channel carrying a post's tally updates.
func Channel(postID string) string {
	return "ora:post:" + postID + ":tally"
}

// Message is the wire form of a tally update.
type Message struct {
	PostID         string               `json:"postId"`
	Agree          int64                `json:"agree"`
	Mixed          int64                `json:"mixed"`
	Disagree       int64                `json:"disagree"`
	Total          int64                `json:"total"`
	SentimentTrend types.SentimentTrend `json:"sentimentTrend"`
}

// NewMessage flattens a post tally into its wire form.
func NewMessage(tally types.PostTally) Message {
	return Message{
		PostID:         tally.PostID,
		Agree:          tally.Tally.Agree,
		Mixed:          tally.Tally.Mixed,
		Disagree:       tally.Tally.Disagree,
		Total:          tally.Tally.Total,
		SentimentTrend: tally.SentimentTrend,
	}
}

// PostTally converts the message back into a post tally.
func (m Message) PostTally() types.PostTally {
	return types.PostTally{
		PostID: m.PostID,
		Tally: types.Tally{
			Agree:    m.Agree,
			Mixed:    m.Mixed,
			Disagree: m.Disagree,
			Total:    m.Total,
		},
		SentimentTrend: m.SentimentTrend,
	}
}

// Encode serializes a tally update.
func Encode(tally types.PostTally) ([]byte, error) {
	data, err := sonic.Marshal(NewMessage(tally))
	if err != nil {
		return nil, fmt.Errorf("failed to encode tally update: %w", err)
	}
	return data, nil
}

// Decode parses a tally update.
func Decode(data []byte) (types.PostTally, error) {
	var msg Message
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return types.PostTally{}, fmt.Errorf("failed to decode tally update: %w", err)
	}
	return msg.PostTally(), nil
}
