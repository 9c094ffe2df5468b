// Package optimizer implements the language-aware prompt transformation
// and verification pipeline that runs over the final user turn before it
// reaches the inference backend.
package optimizer

import (
	"context"

	"github.com/mkoppen/linguachat/internal/inference"
)

// Completer is the single-shot chat-completion dependency of the
// pipeline. Satisfied by *inference.Client.
type Completer interface {
	Complete(ctx context.Context, req inference.Request) (string, error)
}

const (
	transformTemperature = 0.7
	verifyTemperature    = 0.5
	analysisTemperature  = 0.7

	pipelineMaxTokens = 2000
	analysisMaxTokens = 1000
)
