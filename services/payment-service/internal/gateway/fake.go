package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FakeGateway approves everything except tokens carrying a magic suffix.
// It backs local development and the service tests.
//
//	tok_..._declined   hard decline (not retriable)
//	tok_..._flaky      retriable decline
//	tok_..._outage     processor unreachable
type FakeGateway struct {
	mu       sync.Mutex
	captures map[string]CaptureResult
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{captures: map[string]CaptureResult{}}
}

func (g *FakeGateway) Capture(_ context.Context, paymentID string, _ int64, _, token string) (CaptureResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Idempotent per payment id, like the real processor.
	if result, ok := g.captures[paymentID]; ok {
		return result, nil
	}

	var result CaptureResult
	switch {
	case strings.HasSuffix(token, "_outage"):
		return CaptureResult{}, errors.New("processor unreachable")
	case strings.HasSuffix(token, "_declined"):
		result = CaptureResult{Success: false, FailureReason: "card declined", Retriable: false}
	case strings.HasSuffix(token, "_flaky"):
		result = CaptureResult{Success: false, FailureReason: "issuer unavailable", Retriable: true}
	default:
		result = CaptureResult{Success: true, TransactionID: "txn_" + uuid.NewString()}
	}
	g.captures[paymentID] = result
	return result, nil
}

func (g *FakeGateway) Refund(_ context.Context, _, transactionID string, _ int64) (CaptureResult, error) {
	if transactionID == "" {
		return CaptureResult{Success: false, FailureReason: "unknown transaction", Retriable: false}, nil
	}
	return CaptureResult{Success: true, TransactionID: "re_" + uuid.NewString()}, nil
}
