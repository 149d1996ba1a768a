package transport

import (
	"context"
	"net/url"
)

// Conn is one outbound message stream. Each Send writes exactly one frame.
type Conn interface {
	Send(ctx context.Context, frame []byte) error
	Close() error
}

// Dialer opens connections to the danmaku endpoint.
// Mocking this interface in tests gives full control over connect and send
// failures without a network.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// Redact strips the password from endpoint for logging.
// Unparseable input is returned as-is.
func Redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	return u.Redacted()
}
