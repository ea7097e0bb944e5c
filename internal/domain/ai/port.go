package ai

import "context"

// Client sends a system and a user prompt to a model and returns its raw JSON answer.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
