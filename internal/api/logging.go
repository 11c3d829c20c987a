package api

import (
	"log"
	"sync/atomic"
)

var debugLogging atomic.Bool

// SetDebugLogging включает подробные логи HTTP, WebSocket и сессий.
func SetDebugLogging(enabled bool) {
	debugLogging.Store(enabled)
}

// DebugLogging сообщает, включены ли подробные логи.
func DebugLogging() bool {
	return debugLogging.Load()
}

func logDebugf(format string, args ...any) {
	if debugLogging.Load() {
		log.Printf(format, args...)
	}
}
