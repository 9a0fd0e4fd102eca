// Package router drives the inventory boundary: placed orders claim
// stock, payment outcomes settle the claim, and Product* messages feed
// the read model.
package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
	"github.com/erikshafer/crittersupply/services/inventory-service/internal/products"
	"github.com/erikshafer/crittersupply/services/inventory-service/internal/reservation"
)

var Topics = []string{
	messages.TypeOrderPlaced,
	messages.TypeReservationCommitRequested,
	messages.TypeReservationReleaseRequested,
	messages.TypeProductAdded,
	messages.TypeProductUpdated,
	messages.TypeProductDiscontinued,
}

type Router struct {
	svc    *reservation.Service
	repo   *products.Repository
	logger *slog.Logger
}

func New(svc *reservation.Service, repo *products.Repository, logger *slog.Logger) *Router {
	return &Router{svc: svc, repo: repo, logger: logger}
}

func (r *Router) Handle(ctx context.Context, msg kafka.Message) error {
	env, err := messages.DecodeEnvelope(msg.Value)
	if err != nil {
		return err
	}

	switch env.Type {
	case messages.TypeOrderPlaced:
		var m messages.OrderPlaced
		if err := env.DecodePayload(&m); err != nil {
			return err
		}
		return r.onOrderPlaced(ctx, m)
	case messages.TypeReservationCommitRequested:
		var m messages.ReservationCommitRequested
		if err := env.DecodePayload(&m); err != nil {
			return err
		}
		_, err := r.svc.CommitReservation(ctx, messages.DeriveStreamID(messages.NamespaceReservation, m.OrderID))
		return err
	case messages.TypeReservationReleaseRequested:
		var m messages.ReservationReleaseRequested
		if err := env.DecodePayload(&m); err != nil {
			return err
		}
		_, err := r.svc.ReleaseReservation(ctx, messages.DeriveStreamID(messages.NamespaceReservation, m.OrderID), m.Reason)
		return err
	case messages.TypeProductAdded:
		var m messages.ProductAdded
		if err := env.DecodePayload(&m); err != nil {
			return err
		}
		return r.repo.Upsert(ctx, products.Product{
			SKU: m.SKU, Name: m.Name, Price: m.Price, Currency: m.Currency, Stock: m.Stock,
		})
	case messages.TypeProductUpdated:
		var m messages.ProductUpdated
		if err := env.DecodePayload(&m); err != nil {
			return err
		}
		return r.repo.Upsert(ctx, products.Product{
			SKU: m.SKU, Name: m.Name, Price: m.Price, Currency: m.Currency, Stock: m.Stock,
		})
	case messages.TypeProductDiscontinued:
		var m messages.ProductDiscontinued
		if err := env.DecodePayload(&m); err != nil {
			return err
		}
		return r.repo.Discontinue(ctx, m.SKU)
	default:
		r.logger.Warn("unexpected message type on inventory topics", "type", env.Type)
		return nil
	}
}

// onOrderPlaced spawns the reservation and immediately resolves it
// against available stock. Both steps are idempotent, so redelivery at
// any point replays harmlessly.
func (r *Router) onOrderPlaced(ctx context.Context, m messages.OrderPlaced) error {
	reservationID := messages.DeriveStreamID(messages.NamespaceReservation, m.OrderID)

	_, err := r.svc.RequestReservation(ctx, reservationID, m.OrderID, m.Lines)
	if err != nil && !errors.Is(err, es.ErrAlreadyExists) {
		return err
	}

	_, err = r.svc.ConfirmReservation(ctx, reservationID)
	return err
}
