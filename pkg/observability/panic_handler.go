package observability

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrPanic marks an error converted from a recovered panic
var ErrPanic = errors.New("panic recovered")

// PanicError converts a recovered value into an error wrapping ErrPanic.
// A nil value returns nil.
//
//	defer func() {
//		if err := observability.PanicError(recover()); err != nil {
//			result = err
//		}
//	}()
func PanicError(r any) error {
	switch v := r.(type) {
	case nil:
		return nil
	case error:
		return fmt.Errorf("%w: %w", ErrPanic, v)
	default:
		return fmt.Errorf("%w: %v", ErrPanic, v)
	}
}

// RecoverPanic logs a panic of the calling goroutine with its stack and
// swallows it. It must be deferred directly:
//
//	defer observability.RecoverPanic(logger, "watch rebuild")
func RecoverPanic(logger *Logger, where string) {
	if err := PanicError(recover()); err != nil {
		logger.WithError(err).
			WithField("where", where).
			WithField("stack", string(debug.Stack())).
			Error("Goroutine panicked")
	}
}
