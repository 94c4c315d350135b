package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer is a ports.Mailer that only logs, for development setups
// without an SMTP relay. It never logs the raw token.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendPasswordReset logs the dispatch and drops the token.
func (m *LogMailer) SendPasswordReset(ctx context.Context, address, rawToken string) error {
	m.logger.Info("password reset email suppressed (no SMTP configured)",
		zap.String("to", address))
	return nil
}
