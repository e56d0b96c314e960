package log

import (
	"time"

	"go.uber.org/zap"
)

// LogHTTPRequest records one served HTTP request. Server errors are logged
// at error level, everything else at debug.
func LogHTTPRequest(method, path string, status int, duration time.Duration, size int, remoteAddr, userAgent string) {
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Int64("duration_ms", duration.Milliseconds()),
		zap.Int("size", size),
		zap.String("remote_addr", remoteAddr),
		zap.String("user_agent", userAgent),
	}

	l := GetZapLogger()
	if status >= 500 {
		l.Error("http request", fields...)
		return
	}
	l.Debug("http request", fields...)
}
