package service

import (
	"github.com/notifyhub/danmaku-bridge/internal/domain"
)

// Decision records what the forwarder did with a decoded notification.
// The string values double as metric label values.
type Decision string

const (
	DecisionForward     Decision = "forward"
	DecisionOtherApp    Decision = "other_app"
	DecisionNoDelimiter Decision = "no_delimiter"
	// DecisionUndecodable is never returned by Translate; the listener uses it
	// for bus messages that failed structural decoding.
	DecisionUndecodable Decision = "undecodable"
)

// Forwarder owns the filtering rules between a decoded notification and a
// danmaku packet: only one application's notifications pass, and only when
// the body follows the "sender：text" convention.
// It holds no mutable state and is safe for concurrent use.
type Forwarder struct {
	appName string
}

func NewForwarder(appName string) *Forwarder {
	return &Forwarder{appName: appName}
}

// AppName returns the application name notifications are filtered on.
func (f *Forwarder) AppName() string { return f.appName }

// Translate converts n into a packet. The packet is only meaningful when the
// decision is DecisionForward.
func (f *Forwarder) Translate(n domain.Notification) (domain.DanmakuPacket, Decision) {
	if n.AppName != f.appName {
		return domain.DanmakuPacket{}, DecisionOtherApp
	}

	sender, text, ok := domain.SplitBody(n.Body)
	if !ok {
		return domain.DanmakuPacket{}, DecisionNoDelimiter
	}

	return domain.NewPacket(n.Summary, sender, text), DecisionForward
}
