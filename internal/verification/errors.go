package verification

import "errors"

var (
	// ErrTokenNotFound means the token was well-formed and unexpired but its
	// record is gone, either because it was redeemed already or evicted.
	ErrTokenNotFound = errors.New("token not found")
	// ErrPersistence wraps a failure of the mutation applied on Consume.
	ErrPersistence = errors.New("failed to persist changes")
	// ErrDelivery wraps a mail failure on Start. The token is recorded anyway.
	ErrDelivery = errors.New("failed to deliver email")

	ErrNoLifetime = errors.New("token lifetime must be bigger than 0")
	ErrNoLinkBase = errors.New("no link base provided")
)
