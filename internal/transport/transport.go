// Package transport publishes analysis frames and carries control messages
// from remote UIs back to the effect's property set.
package transport

import (
	"errors"
	"fmt"

	"echofx/internal/effect"
)

var (
	ErrBadControl = errors.New("invalid control message")
	ErrClosed     = errors.New("transport closed")
)

// Transport defines a generic interface for sending processed data or events.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// ControlMessage is an inbound request from a remote UI, for example
// {"type":"set","key":"Mix","value":0.3}.
type ControlMessage struct {
	Type  string  `json:"type"`
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// ControlHandler applies a control message.
type ControlHandler func(msg ControlMessage) error

// PropertyControl returns a handler that writes "set" messages into props.
// Mix values are clamped to [0, 1].
func PropertyControl(props *effect.PropertySet) ControlHandler {
	return func(msg ControlMessage) error {
		if msg.Type != "set" {
			return fmt.Errorf("%w: unknown type %q", ErrBadControl, msg.Type)
		}
		if msg.Key == "" {
			return fmt.Errorf("%w: missing key", ErrBadControl)
		}

		value := msg.Value
		if msg.Key == effect.MixKey {
			value = min(max(value, 0), 1)
		}
		props.Set(msg.Key, float32(value))
		return nil
	}
}

// Multi fans a message out to several transports.
type Multi []Transport

// Send forwards data to every transport and joins their errors.
func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
