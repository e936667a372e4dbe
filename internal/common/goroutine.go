// -----------------------------------------------------------------------
// Safe Goroutine - Panic-protected goroutine wrappers
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/ternarybob/arbor"
)

// goroutineCounter tracks spawned goroutines for diagnostics
var goroutineCounter int64

// GetGoroutineCount returns the number of goroutines spawned via SafeGo
func GetGoroutineCount() int64 {
	return atomic.LoadInt64(&goroutineCounter)
}

// PanicHandler receives a recovered panic value and the panicking goroutine's stack.
type PanicHandler func(recovered interface{}, stack string)

// SafeGo runs a function in a goroutine with panic recovery.
// Panics are logged but don't crash the service.
//
// Example:
//
//	common.SafeGo(logger, "janitor", func() {
//	    store.Sweep()
//	})
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	SafeGoWithHandler(logger, name, fn, nil)
}

// SafeGoWithHandler is SafeGo with a callback invoked after a panic is recovered, so the
// owner of the goroutine can record the failure (e.g. mark a job FAILED). A panic inside
// onPanic is itself recovered and logged.
//
// Example:
//
//	common.SafeGoWithHandler(logger, "research:"+jobID, run, func(r interface{}, _ string) {
//	    store.FailJob(ctx, jobID, fmt.Sprintf("internal error: %v", r))
//	})
func SafeGoWithHandler(logger arbor.ILogger, name string, fn func(), onPanic PanicHandler) {
	atomic.AddInt64(&goroutineCounter, 1)

	go func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			stackTrace := string(buf[:n])

			if logger != nil {
				logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", stackTrace).
					Msg("Recovered from panic in goroutine - continuing service operation")
			} else {
				fmt.Fprintf(os.Stderr, "PANIC in goroutine %s: %v\n%s\n", name, r, stackTrace)
			}

			if onPanic != nil {
				runPanicHandler(logger, name, onPanic, r, stackTrace)
			}
		}()

		fn()
	}()
}

func runPanicHandler(logger arbor.ILogger, name string, onPanic PanicHandler, r interface{}, stack string) {
	defer func() {
		if r2 := recover(); r2 != nil && logger != nil {
			logger.Error().
				Str("goroutine", name).
				Str("panic", fmt.Sprintf("%v", r2)).
				Msg("Panic handler itself panicked")
		}
	}()
	onPanic(r, stack)
}
