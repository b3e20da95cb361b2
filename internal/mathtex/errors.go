package mathtex

import "errors"

// Sentinel errors for math typesetting.
var (
	// ErrUnknownEngine indicates the configured engine name is not supported.
	ErrUnknownEngine = errors.New("unknown math engine")

	// ErrUnbalancedBraces indicates a formula with mismatched { and }.
	ErrUnbalancedBraces = errors.New("unbalanced braces")

	// ErrUnbalancedEnvironment indicates a \begin without matching \end (or the reverse).
	ErrUnbalancedEnvironment = errors.New("unbalanced environment")

	// ErrTypesetPanic indicates the typesetter panicked on the input.
	ErrTypesetPanic = errors.New("typesetter panic")
)
