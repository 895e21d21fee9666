package realtime

import "errors"

var (
	// ErrMissingCredential means the connection attempt carried no token at all.
	ErrMissingCredential = errors.New("authentication token required")
	// ErrInvalidCredential means the token verifier refused the token.
	ErrInvalidCredential = errors.New("invalid or expired token")
	// ErrBrokerUnavailable is returned by Publish while the broker link is down.
	ErrBrokerUnavailable = errors.New("broker unavailable")
	// ErrMalformedEvent marks a broker payload that is not a notification event.
	ErrMalformedEvent = errors.New("malformed notification event")
)
