package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/chatrelay/chatrelay/internal/provider"
	"github.com/chatrelay/chatrelay/pkg/types"
)

// eventBuffer bounds the accumulator's event channel so a fast upstream
// cannot grow unbounded state when the consumer writes slowly.
const eventBuffer = 16

// Result is the outcome of one streaming exchange.
type Result struct {
	// Reply is the full accumulated text. Set only on success.
	Reply string
	// Err is non-nil when the upstream failed or the consumer went away.
	Err error
}

// Accumulate consumes the fragment stream, emitting one chunk event per
// fragment with the cumulative reply so far, followed by exactly one
// terminal event: complete on exhaustion or error on upstream failure. The
// events channel is closed after the terminal event, then the Result is
// delivered. Cancelling ctx (the consumer disappeared) stops consumption;
// the partial accumulation is discarded in every failure mode.
func Accumulate(ctx context.Context, requestID string, conversationID int64, stream provider.Stream) (<-chan types.StreamEvent, <-chan Result) {
	events := make(chan types.StreamEvent, eventBuffer)
	result := make(chan Result, 1)

	go func() {
		defer close(events)
		defer stream.Close()

		var reply strings.Builder
		for {
			frag, err := stream.Recv()
			if provider.IsEOF(err) {
				if !emit(ctx, events, types.StreamEvent{
					Type:           types.EventComplete,
					RequestID:      requestID,
					ConversationID: conversationID,
				}) {
					result <- Result{Err: ctx.Err()}
					return
				}
				result <- Result{Reply: reply.String()}
				return
			}
			if err != nil {
				// The client gets a generic detail; the cause goes to
				// the caller for logging.
				emit(ctx, events, types.StreamEvent{
					Type:      types.EventError,
					RequestID: requestID,
					Detail:    "Failed to generate response",
				})
				result <- Result{Err: fmt.Errorf("%w: %v", ErrUpstreamFailure, err)}
				return
			}

			reply.WriteString(frag)
			if !emit(ctx, events, types.StreamEvent{
				Type:           types.EventChunk,
				RequestID:      requestID,
				ConversationID: conversationID,
				Content:        reply.String(),
			}) {
				result <- Result{Err: ctx.Err()}
				return
			}
		}
	}()

	return events, result
}

// emit sends an event unless ctx is cancelled first.
func emit(ctx context.Context, events chan<- types.StreamEvent, e types.StreamEvent) bool {
	select {
	case events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}
