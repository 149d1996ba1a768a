package bus

import (
	"context"

	"github.com/godbus/dbus/v5"
)

// NotifyMatchRule selects every Notify call on the notifications interface,
// whoever sends it.
const NotifyMatchRule = "type='method_call',interface='org.freedesktop.Notifications',member='Notify'"

// MessageSource is the bus capability the listener depends on.
// The godbus implementation is in session.go; tests use hand-written fakes.
type MessageSource interface {
	// Monitor connects and registers as a passive monitor for rules.
	Monitor(ctx context.Context, rules []string) error
	// Next blocks for the next observed message. It returns io.EOF when the
	// stream ends cleanly, ctx.Err() on cancellation, or a transport error.
	Next(ctx context.Context) (*dbus.Message, error)
	Close() error
}

// Signature returns the body signature of msg, preferring the header the bus
// sent over one recomputed from the decoded body.
func Signature(msg *dbus.Message) string {
	if v, ok := msg.Headers[dbus.FieldSignature]; ok {
		if sig, ok := v.Value().(dbus.Signature); ok {
			return sig.String()
		}
	}
	return dbus.SignatureOf(msg.Body...).String()
}
