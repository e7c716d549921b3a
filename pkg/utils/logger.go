package utils

import "go.uber.org/zap"

// ServiceName is attached to every log line.
const ServiceName = "vibematch"

// NewLogger returns a zap logger tagged with the service name. When debug is
// true it uses the development config (human-readable, debug level); otherwise
// the production config (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", ServiceName)), nil
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
