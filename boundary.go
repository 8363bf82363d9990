package vordr

import (
	"log/slog"
	"runtime/debug"
)

// guard runs fn and converts any panic into a logged fault so engine
// bugs surface as fallback values instead of crashing the host
// application. Evaluation logic itself never lives here.
func guard(logger *slog.Logger, op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered from internal fault",
				slog.String("op", op),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn()
}
