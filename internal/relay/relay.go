// Package relay streams backend token output to the caller, one chunk
// at a time, in arrival order.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/mkoppen/linguachat/internal/inference"
)

// Chunk is one unit of relayed output: either a content delta or a
// terminal error. Chunks are transient and never persisted.
type Chunk struct {
	Content string
	Err     error
}

// Streamer opens a streaming chat-completion call. Satisfied by
// *inference.Client.
type Streamer interface {
	OpenStream(ctx context.Context, req inference.Request) (*inference.Stream, error)
}

const (
	relayTemperature = 0.7
	relayMaxTokens   = 2000
)

// Relay owns one backend connection per call and re-emits content deltas
// as they arrive. Instances are stateless; concurrent callers each get
// their own stream.
type Relay struct {
	backend Streamer
	log     zerolog.Logger
}

// New creates a relay over the given backend.
func New(backend Streamer, log zerolog.Logger) *Relay {
	return &Relay{backend: backend, log: log}
}

// Relay issues one streaming request for the conversation and returns a
// channel of chunks. The channel is closed when the backend finishes,
// on the first fatal error (after emitting exactly one error chunk), or
// when ctx is cancelled; the backend connection is closed on every exit
// path. The sequence is not restartable.
func (r *Relay) Relay(ctx context.Context, messages []inference.Message) <-chan Chunk {
	out := make(chan Chunk)

	go func() {
		defer close(out)

		stream, err := r.backend.OpenStream(ctx, inference.Request{
			Messages:    messages,
			Temperature: relayTemperature,
			MaxTokens:   relayMaxTokens,
		})
		if err != nil {
			r.emit(ctx, out, Chunk{Err: relayError(err)})
			return
		}
		defer stream.Close()

		for {
			content, err := stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					r.log.Warn().Err(err).Msg("relay stream failed mid-flight")
					r.emit(ctx, out, Chunk{Err: relayError(err)})
				}
				return
			}
			if !r.emit(ctx, out, Chunk{Content: content}) {
				return
			}
		}
	}()

	return out
}

// emit delivers a chunk unless the caller has gone away.
func (r *Relay) emit(ctx context.Context, out chan<- Chunk, c Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// relayError converts backend failures into the human-readable form the
// caller renders.
func relayError(err error) error {
	var statusErr *inference.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("backend error: status %d", statusErr.Code)
	}
	return err
}
