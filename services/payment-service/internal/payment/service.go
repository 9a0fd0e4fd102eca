package payment

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/services/payment-service/internal/gateway"
)

type Service struct {
	handler *es.Handler[Payment]
	gateway gateway.Gateway
	logger  *slog.Logger
}

func NewService(store es.EventStore, gw gateway.Gateway, logger *slog.Logger) *Service {
	return &Service{
		handler: es.NewHandler(store, Aggregate(), "payment-service", logger),
		gateway: gw,
		logger:  logger,
	}
}

func (s *Service) Get(ctx context.Context, paymentID uuid.UUID) (Payment, error) {
	state, _, err := s.handler.Load(ctx, paymentID)
	return state, err
}

// InitiatePayment spawns the payment stream for a placed order. Callers
// absorb es.ErrAlreadyExists as duplicate delivery.
func (s *Service) InitiatePayment(ctx context.Context, paymentID uuid.UUID, orderID, checkoutID, customerID string, amount int64, currency, paymentToken string) (Payment, error) {
	const command = "InitiatePayment"
	if amount <= 0 {
		return Payment{}, es.Reject(command, "amount must be positive")
	}
	if paymentToken == "" {
		return Payment{}, es.Reject(command, "payment token required")
	}
	return s.handler.Start(ctx, paymentID, command, func(p Payment) ([]es.Event, error) {
		return []es.Event{PaymentInitiated{
			PaymentID:    paymentID.String(),
			OrderID:      orderID,
			CheckoutID:   checkoutID,
			CustomerID:   customerID,
			Amount:       amount,
			Currency:     currency,
			PaymentToken: paymentToken,
		}}, nil
	})
}

// RequestPaymentCapture charges through the gateway and records the
// outcome. A payment already settled either way is left untouched, so a
// redelivered request is harmless; the gateway is additionally keyed by
// payment id. A decline is a terminal fact, not an error: the Retriable
// flag travels in the PaymentFailed message for the initiating boundary
// to act on.
func (s *Service) RequestPaymentCapture(ctx context.Context, paymentID uuid.UUID) (Payment, error) {
	const command = "RequestPaymentCapture"

	state, _, err := s.handler.Load(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}
	if state.Status != StatusInitiated {
		return state, nil
	}

	result, err := s.gateway.Capture(ctx, state.ID, state.Amount, state.Currency, state.PaymentToken)
	if err != nil {
		return state, es.External("payment gateway", err, true)
	}

	return s.handler.Execute(ctx, paymentID, command, func(p Payment) ([]es.Event, error) {
		if p.Status != StatusInitiated {
			return nil, nil
		}
		if !result.Success {
			return []es.Event{PaymentFailed{
				PaymentID:  p.ID,
				OrderID:    p.OrderID,
				CheckoutID: p.CheckoutID,
				CustomerID: p.CustomerID,
				Reason:     result.FailureReason,
				Retriable:  result.Retriable,
			}}, nil
		}
		return []es.Event{PaymentCaptured{
			PaymentID:     p.ID,
			OrderID:       p.OrderID,
			CheckoutID:    p.CheckoutID,
			CustomerID:    p.CustomerID,
			TransactionID: result.TransactionID,
			Amount:        p.Amount,
			Currency:      p.Currency,
		}}, nil
	})
}

// RequestRefund returns part of a captured charge. Refunds accumulate and
// may never exceed the captured amount.
func (s *Service) RequestRefund(ctx context.Context, paymentID uuid.UUID, amount int64, reason string) (Payment, error) {
	const command = "RequestRefund"
	if amount <= 0 {
		return Payment{}, es.Reject(command, "refund amount must be positive")
	}

	state, _, err := s.handler.Load(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}
	if state.Status != StatusCaptured && state.Status != StatusRefunded {
		return Payment{}, es.Reject(command, "payment is not captured")
	}
	if state.RefundedAmount+amount > state.Amount {
		return Payment{}, es.Reject(command, "refund exceeds captured amount")
	}

	result, err := s.gateway.Refund(ctx, state.ID, state.TransactionID, amount)
	if err != nil {
		return state, es.External("payment gateway", err, true)
	}
	if !result.Success {
		return state, es.Reject(command, result.FailureReason)
	}

	return s.handler.Execute(ctx, paymentID, command, func(p Payment) ([]es.Event, error) {
		if p.RefundedAmount+amount > p.Amount {
			return nil, es.Reject(command, "refund exceeds captured amount")
		}
		return []es.Event{PaymentRefunded{
			Amount:        amount,
			TransactionID: result.TransactionID,
			Reason:        reason,
		}}, nil
	})
}
