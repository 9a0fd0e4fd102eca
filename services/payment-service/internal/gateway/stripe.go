package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/refund"
)

// StripeGateway charges through Stripe payment intents. The payment id is
// passed as the idempotency key, so a redelivered capture request never
// charges twice.
type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = strings.TrimSpace(secretKey)
	return &StripeGateway{}
}

func (g *StripeGateway) Capture(ctx context.Context, paymentID string, amount int64, currency, token string) (CaptureResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(strings.ToLower(currency)),
		PaymentMethod: stripe.String(token),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String("capture-" + paymentID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return mapStripeError(err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return CaptureResult{
			Success:       false,
			FailureReason: "payment intent status " + string(pi.Status),
			Retriable:     false,
		}, nil
	}
	return CaptureResult{Success: true, TransactionID: pi.ID}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, paymentID, transactionID string, amount int64) (CaptureResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(transactionID),
		Amount:        stripe.Int64(amount),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String("refund-" + paymentID)

	ref, err := refund.New(params)
	if err != nil {
		return mapStripeError(err)
	}
	return CaptureResult{Success: true, TransactionID: ref.ID}, nil
}

// mapStripeError separates declines (domain outcomes) from processor
// faults. Card errors answer the question definitively; everything else
// leaves the outcome unknown and is surfaced as an error.
func mapStripeError(err error) (CaptureResult, error) {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return CaptureResult{}, err
	}
	switch stripeErr.Type {
	case stripe.ErrorTypeCard:
		return CaptureResult{
			Success:       false,
			FailureReason: declineReason(stripeErr),
			Retriable:     stripeErr.DeclineCode == stripe.DeclineCodeTryAgainLater,
		}, nil
	case stripe.ErrorTypeInvalidRequest:
		return CaptureResult{
			Success:       false,
			FailureReason: stripeErr.Msg,
			Retriable:     false,
		}, nil
	default:
		return CaptureResult{}, err
	}
}

func declineReason(stripeErr *stripe.Error) string {
	if stripeErr.DeclineCode != "" {
		return string(stripeErr.DeclineCode)
	}
	if stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return string(stripeErr.Code)
}
