package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"customer-auth/pkg/clock"
	"customer-auth/pkg/logger"
	"customer-auth/pkg/uid"

	"github.com/nats-io/nats.go"
)

// ErrSubjectRequired is returned when the sender has no subject to publish on
var ErrSubjectRequired = errors.New("nats subject is required")

// Publisher is the part of *nats.Conn the sender needs
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
}

// Message is the payload published for an SMS gateway to pick up
type Message struct {
	PhoneNumber string    `json:"phone_number"`
	Code        string    `json:"code"`
	RequestedAt time.Time `json:"requested_at"`
}

// NATSSender publishes codes on a NATS subject
type NATSSender struct {
	conn    Publisher
	subject string
	clock   clock.Clocker
	uid     *uid.UUID
	logger  *logger.Logger
}

// NewNATSSender creates a new NATS sender
func NewNATSSender(conn Publisher, subject string, log *logger.Logger) *NATSSender {
	return &NATSSender{
		conn:    conn,
		subject: subject,
		clock:   clock.New(),
		uid:     uid.NewUUID(),
		logger:  log.Named("delivery"),
	}
}

// Send implements Sender. It returns once the server acknowledged the flush.
func (s *NATSSender) Send(ctx context.Context, phoneNumber, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.subject == "" {
		return ErrSubjectRequired
	}

	body, err := json.Marshal(Message{
		PhoneNumber: phoneNumber,
		Code:        code,
		RequestedAt: s.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode OTP message: %w", err)
	}

	msgID := s.uid.Generate()
	msg := nats.NewMsg(s.subject)
	msg.Data = body
	msg.Header.Set(nats.MsgIdHdr, msgID)

	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish OTP message: %w", err)
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush OTP message: %w", err)
	}

	s.logger.Debugw("OTP message published", "subject", s.subject, "msg_id", msgID)
	return nil
}
