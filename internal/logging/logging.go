// Package logging builds the shared zap logger and scrubs sensitive
// values (DSN credentials, API keys) before they reach log output.
package logging

import "go.uber.org/zap"

// New returns a logger for the given environment. Local environments get
// the human-readable development encoder, everything else gets production
// JSON. Both write to stderr, which keeps stdout clean for the stdio
// transport.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "", "local", "dev", "development":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}
