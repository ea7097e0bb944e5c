package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrInvalidResponse indicates the model answer did not match the verdict schema.
var ErrInvalidResponse = errors.New("ai response does not match verdict schema")
