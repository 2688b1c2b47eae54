// Package delivery hands freshly issued one-time codes to the channel that
// brings them to the customer.
package delivery

import (
	"context"
	"errors"
	"fmt"

	"customer-auth/config"
	"customer-auth/pkg/logger"

	"github.com/nats-io/nats.go"
)

const (
	DriverLog  = "log"
	DriverNATS = "nats"
)

// Sender delivers a code to a phone number
type Sender interface {
	Send(ctx context.Context, phoneNumber, code string) error
}

// ErrUnknownDriver is returned by New for an unsupported DELIVERY_DRIVER
var ErrUnknownDriver = errors.New("unknown delivery driver")

// New builds the Sender selected by cfg.Driver. The returned close function
// releases any connection the sender holds.
func New(cfg config.Delivery, log *logger.Logger) (Sender, func() error, error) {
	switch cfg.Driver {
	case DriverLog:
		return NewLogSender(log), func() error { return nil }, nil
	case DriverNATS:
		conn, err := nats.Connect(cfg.NATSURL,
			nats.Name("customer-auth"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					log.Warnw("NATS disconnected", "error", err)
				}
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				log.Infow("NATS reconnected", "url", c.ConnectedUrl())
			}),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		closeFn := func() error {
			err := conn.Drain()
			conn.Close()
			return err
		}
		return NewNATSSender(conn, cfg.NATSSubject, log), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
