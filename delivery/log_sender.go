package delivery

import (
	"context"

	"customer-auth/pkg/logger"
)

// LogSender writes codes to the application log. Development only.
type LogSender struct {
	logger *logger.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{logger: log.Named("delivery")}
}

// Send implements Sender
func (s *LogSender) Send(ctx context.Context, phoneNumber, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Infow("OTP issued", "phone_number", phoneNumber, "code", code)
	return nil
}
