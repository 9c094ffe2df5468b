package relay

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoppen/linguachat/internal/inference"
)

func backendServing(t *testing.T, frames ...string) *inference.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			fmt.Fprint(w, f)
		}
	}))
	t.Cleanup(server.Close)
	return inference.NewClient(server.URL, 0)
}

func delta(content string) string {
	return `data: {"choices":[{"delta":{"content":"` + content + `"}}]}` + "\n\n"
}

func collect(t *testing.T, chunks <-chan Chunk) []Chunk {
	t.Helper()
	var got []Chunk
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return got
			}
			got = append(got, chunk)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for chunks")
		}
	}
}

func TestRelay_Relay(t *testing.T) {
	conversation := []inference.Message{{Role: "user", Content: "hi"}}

	t.Run("chunks arrive in backend order", func(t *testing.T) {
		backend := backendServing(t, delta("Hel"), delta("lo"), delta("!"), "data: [DONE]\n\n")
		r := New(backend, zerolog.Nop())

		got := collect(t, r.Relay(context.Background(), conversation))

		require.Len(t, got, 3)
		assert.Equal(t, Chunk{Content: "Hel"}, got[0])
		assert.Equal(t, Chunk{Content: "lo"}, got[1])
		assert.Equal(t, Chunk{Content: "!"}, got[2])
	})

	t.Run("backend refusal yields exactly one error chunk", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		t.Cleanup(server.Close)
		r := New(inference.NewClient(server.URL, 0), zerolog.Nop())

		got := collect(t, r.Relay(context.Background(), conversation))

		require.Len(t, got, 1)
		require.Error(t, got[0].Err)
		assert.Equal(t, "backend error: status 503", got[0].Err.Error())
		assert.Empty(t, got[0].Content)
	})

	t.Run("clean close without done marker ends without error", func(t *testing.T) {
		backend := backendServing(t, delta("partial"))
		r := New(backend, zerolog.Nop())

		got := collect(t, r.Relay(context.Background(), conversation))

		require.Len(t, got, 1)
		assert.Equal(t, Chunk{Content: "partial"}, got[0])
	})

	t.Run("cancelled context stops delivery", func(t *testing.T) {
		backend := backendServing(t, delta("a"), delta("b"), "data: [DONE]\n\n")
		r := New(backend, zerolog.Nop())

		ctx, cancel := context.WithCancel(context.Background())
		chunks := r.Relay(ctx, conversation)
		cancel()

		// The channel closes without the caller reading everything.
		deadline := time.After(5 * time.Second)
		for {
			select {
			case _, ok := <-chunks:
				if !ok {
					return
				}
			case <-deadline:
				t.Fatal("relay did not shut down after cancellation")
			}
		}
	})
}
