package classify

import "context"

// Engine adapts the pure classifier to the interface the write pipeline
// consumes. The pattern engine itself cannot fail; the error return exists
// so callers are written against an engine that might (a remote model, for
// instance) and already handle the fallback.
type Engine struct{}

// NewEngine returns the pattern-based classification engine.
func NewEngine() Engine { return Engine{} }

func (Engine) Classify(_ context.Context, text string) (Classification, error) {
	return Classify(text), nil
}
