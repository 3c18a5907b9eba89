package ai

import (
	"context"
)

// Provider is a minimal chat-completion surface. Services build their own
// prompts and parse the text that comes back; provider failures must always
// be survivable with a deterministic fallback.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type Message struct {
	Role    string // system, user, assistant
	Content string
}
