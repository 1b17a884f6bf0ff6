package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/avtoscan/reports-backend/internal/logger"
)

// SafeGo запускает горутину с перехватом panic: упавшая фоновая задача
// пишется в лог вместо обрушения процесса.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Errorf("panic в горутине: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и перехватом panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Errorf("panic в горутине: %v\n%s", r, debug.Stack())
			}
		}()
		fn(ctx)
	}()
}
