package realtime

import "context"

// Broker is the shared publish/subscribe backend all instances talk to.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription is one live subscription to a broker channel. Receive returns
// messages in broker delivery order and fails once the link is lost.
type Subscription interface {
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}
