package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanicValue logs a value obtained from recover together with the
// current stack. Call it from the deferred function that recovered.
func RecoverPanicValue(logger *Logger, context string, r interface{}) {
	logger.WithField("panic", fmt.Sprint(r)).
		WithField("stack", string(debug.Stack())).
		WithField("context", context).
		Error("PANIC recovered")
}

// MustRecover converts a recovered panic value to an error (nil when r is nil)
func MustRecover(r interface{}) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}
