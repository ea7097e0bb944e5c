package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bryanwahyu/ayursense/internal/domain/ai"
	"github.com/bryanwahyu/ayursense/internal/domain/session"
)

// Service is a Decision Function backed by a language model.
type Service struct {
	client ai.Client
	logger *slog.Logger
}

func NewService(client ai.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, logger: logger}
}

// Decide sends the window summary and condition to the model and decodes
// its verdict.
func (s *Service) Decide(ctx context.Context, w *session.SampleWindow, cond session.Condition) (session.Verdict, error) {
	if w == nil || !w.Sealed() {
		return session.Verdict{}, session.ErrWindowNotSealed
	}
	if cond.IsZero() {
		return session.Verdict{}, session.ErrNoCondition
	}

	raw, err := s.client.Complete(ctx, SystemPrompt(), UserPrompt(w, cond))
	if err != nil {
		return session.Verdict{}, fmt.Errorf("ai decide: %w", err)
	}
	v, err := ParseVerdict(raw)
	if err != nil {
		s.logger.Warn("model answer rejected", "condition", cond.String(), "err", err)
		return session.Verdict{}, err
	}
	s.logger.Debug("model verdict", "condition", cond.String(), "safe", v.Safe, "confidence", v.Confidence)
	return v, nil
}
