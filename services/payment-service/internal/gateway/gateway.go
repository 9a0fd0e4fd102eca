// Package gateway wraps the external payment processor. The processor is
// a black box: the boundary only sees capture/refund outcomes and whether
// a failure is worth retrying.
package gateway

import "context"

// CaptureResult is the processor's answer. Success=false with a nil error
// is a domain outcome (declined), not a fault; Retriable mirrors the
// processor's own signal.
type CaptureResult struct {
	Success       bool
	TransactionID string
	FailureReason string
	Retriable     bool
}

type Gateway interface {
	// Capture charges amount (minor units) against the payment token.
	// An error return means the processor was unreachable or answered
	// indeterminately; the charge outcome is unknown.
	Capture(ctx context.Context, paymentID string, amount int64, currency, token string) (CaptureResult, error)

	// Refund returns part or all of a captured charge.
	Refund(ctx context.Context, paymentID, transactionID string, amount int64) (CaptureResult, error)
}
