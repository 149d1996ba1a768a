package domain

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// NotifySignature is the D-Bus body signature of
// org.freedesktop.Notifications.Notify:
// app_name, replaces_id, app_icon, summary, body, actions, hints, expire_timeout.
const NotifySignature = "susssasa{sv}i"

// Notification is one decoded Notify call. It lives for a single pipeline
// traversal and is never mutated after decoding.
type Notification struct {
	AppName string
	ID      uint32
	Icon    string
	Summary string
	Body    string
	Actions []string
	// Hints is carried opaquely; nothing downstream reads it.
	Hints   map[string]dbus.Variant
	Timeout int32
}

// DecodeNotification parses a method-call body against the fixed Notify
// schema. Any other shape yields an error wrapping ErrUnexpectedSignature.
func DecodeNotification(body []interface{}) (Notification, error) {
	sig := dbus.SignatureOf(body...).String()
	if sig != NotifySignature {
		return Notification{}, fmt.Errorf("%w: got %q", ErrUnexpectedSignature, sig)
	}

	var n Notification
	if err := dbus.Store(body,
		&n.AppName, &n.ID, &n.Icon, &n.Summary, &n.Body,
		&n.Actions, &n.Hints, &n.Timeout,
	); err != nil {
		return Notification{}, fmt.Errorf("%w: %v", ErrUnexpectedSignature, err)
	}
	return n, nil
}
