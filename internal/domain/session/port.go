package session

import "context"

// Decider maps a sealed window and the declared condition to a Verdict.
// Implementations must not mutate the window.
type Decider interface {
	Decide(ctx context.Context, w *SampleWindow, c Condition) (Verdict, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, w *SampleWindow, c Condition) (Verdict, error)

func (f DeciderFunc) Decide(ctx context.Context, w *SampleWindow, c Condition) (Verdict, error) {
	return f(ctx, w, c)
}
