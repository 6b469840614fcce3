package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/internal/live"
	"github.com/ora-civic/ora/internal/service"
	"github.com/sourcegraph/conc"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// StreamHandler streams live tally updates as Server-Sent Events.
type StreamHandler struct {
	posts  *service.PostService
	broker live.Broker
	logger *zap.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(posts *service.PostService, broker live.Broker, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		posts:  posts,
		broker: broker,
		logger: logger.Named("stream_handler"),
	}
}

// StreamTally sends the current tally, then every committed update until the
// client disconnects. The subscription is registered before the snapshot is
// read so no vote falls between the two.
func (h *StreamHandler) StreamTally(w http.ResponseWriter, req bunrouter.Request) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return writeError(w, h.logger, errors.New("streaming unsupported"))
	}

	ctx, cancel := context.WithCancel(req.Context())
	postID := req.Param("id")

	updates := make(chan types.PostTally, 16)
	subscribed := make(chan struct{})
	done := make(chan error, 1)

	var wg conc.WaitGroup
	defer wg.Wait()
	defer cancel()

	wg.Go(func() {
		done <- h.broker.Subscribe(ctx, postID, func() { close(subscribed) }, func(tally types.PostTally) {
			select {
			case updates <- tally:
			case <-ctx.Done():
			}
		})
	})

	select {
	case <-subscribed:
	case err := <-done:
		if err == nil {
			return nil
		}
		return writeError(w, h.logger, err)
	case <-ctx.Done():
		return nil
	}

	post, err := h.posts.Get(ctx, postID)
	if err != nil {
		return writeError(w, h.logger, err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(tally types.PostTally) error {
		data, err := live.Encode(tally)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: tally\ndata: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := send(types.NewPostTally(postID, post.Tally())); err != nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case tally := <-updates:
			if err := send(tally); err != nil {
				h.logger.Debug("Failed to write tally event", zap.String("postID", postID), zap.Error(err))
				return nil
			}
		case err := <-done:
			if err != nil {
				h.logger.Warn("Tally subscription ended", zap.String("postID", postID), zap.Error(err))
			}
			return nil
		}
	}
}
