package infrastructure

import "context"

// MessagePublisher sends raw payloads to a subject on the message bus
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}
