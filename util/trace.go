package util

import (
	"time"

	"go.uber.org/zap"
)

// Trace logs the time spent between the call and the invocation of the returned func.
//
//	defer util.Trace("segment")()
func Trace(name string) func() {
	start := time.Now()
	return func() {
		Logger.Info("trace", zap.String("name", name), zap.Duration("cost", time.Since(start)))
	}
}
