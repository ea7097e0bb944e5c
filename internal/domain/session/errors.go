package session

import "errors"

var (
	ErrUnknownCondition  = errors.New("unknown condition")
	ErrNoCondition       = errors.New("no condition selected")
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrCancelled         = errors.New("session cancelled")
	ErrWindowSealed      = errors.New("sample window sealed")
	ErrWindowNotSealed   = errors.New("sample window not sealed")
)
