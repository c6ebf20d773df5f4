package payment

import "errors"

// Error taxonomy of the payment package. Coordinator methods also
// return booking package sentinels, storage errors and a formatted
// unknown-gateway error unwrapped; ErrGatewayDeclined and ErrTimeout are
// declared here but no Coordinator method returns them.
var (
	// ErrInvalidSignature means a callback's HMAC did not match the
	// recomputed signature. State is never touched when this is returned.
	ErrInvalidSignature = errors.New("invalid-signature")
	// ErrUnknownOrder means the callback's order reference does not parse
	// or does not match any payment on record.
	ErrUnknownOrder = errors.New("unknown-order")
	// ErrGatewayDeclined means the gateway reported a non-success response
	// code on a verified callback.
	ErrGatewayDeclined = errors.New("gateway-declined")
	// ErrTimeout means an outbound call to storage or the gateway exceeded
	// its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrAlreadyPaid means CreateIntent was called against a booking that
	// already has a COMPLETED payment.
	ErrAlreadyPaid = errors.New("payment: booking already paid")
	// ErrConcurrentIntent means another CreateIntent call superseded the
	// existing PENDING payment first; the caller should retry.
	ErrConcurrentIntent = errors.New("payment: concurrent intent creation")
	// ErrNotFound means the payment referenced by Refund does not exist.
	ErrNotFound = errors.New("payment: not found")
)
