package reservation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/messages"
	"github.com/erikshafer/crittersupply/services/inventory-service/internal/products"
)

// Stock is the products read model's reservation surface. All three
// operations are idempotent per order id.
type Stock interface {
	Reserve(ctx context.Context, orderID string, lines []messages.Line) error
	Commit(ctx context.Context, orderID string) error
	Release(ctx context.Context, orderID string) error
}

type Service struct {
	handler *es.Handler[Reservation]
	stock   Stock
	logger  *slog.Logger
}

func NewService(store es.EventStore, stock Stock, logger *slog.Logger) *Service {
	return &Service{
		handler: es.NewHandler(store, Aggregate(), "inventory-service", logger),
		stock:   stock,
		logger:  logger,
	}
}

func (s *Service) Get(ctx context.Context, reservationID uuid.UUID) (Reservation, error) {
	state, _, err := s.handler.Load(ctx, reservationID)
	return state, err
}

// RequestReservation spawns the reservation for a placed order. Callers
// absorb es.ErrAlreadyExists as duplicate delivery.
func (s *Service) RequestReservation(ctx context.Context, reservationID uuid.UUID, orderID string, lines []messages.Line) (Reservation, error) {
	const command = "RequestReservation"
	if len(lines) == 0 {
		return Reservation{}, es.Reject(command, "reservation requires at least one line")
	}
	return s.handler.Start(ctx, reservationID, command, func(r Reservation) ([]es.Event, error) {
		return []es.Event{ReservationRequested{
			ReservationID: reservationID.String(),
			OrderID:       orderID,
			Lines:         lines,
		}}, nil
	})
}

// ConfirmReservation places the stock hold and records the outcome. An
// uncoverable line is a fact (Failed), not a fault; the hold itself is
// idempotent, so rerunning after a crash between hold and append is safe.
func (s *Service) ConfirmReservation(ctx context.Context, reservationID uuid.UUID) (Reservation, error) {
	const command = "ConfirmReservation"

	state, _, err := s.handler.Load(ctx, reservationID)
	if err != nil {
		return Reservation{}, err
	}
	if state.Status != StatusPending {
		return state, nil
	}

	var insufficient products.ErrInsufficientStock
	reserveErr := s.stock.Reserve(ctx, state.OrderID, state.Lines)
	if reserveErr != nil && !errors.As(reserveErr, &insufficient) {
		return state, es.External("product store", reserveErr, true)
	}

	return s.handler.Execute(ctx, reservationID, command, func(r Reservation) ([]es.Event, error) {
		if r.Status != StatusPending {
			return nil, nil
		}
		if reserveErr != nil {
			return []es.Event{ReservationFailed{
				ReservationID: r.ID,
				OrderID:       r.OrderID,
				Reason:        reserveErr.Error(),
			}}, nil
		}
		return []es.Event{ReservationConfirmed{
			ReservationID: r.ID,
			OrderID:       r.OrderID,
			Lines:         r.Lines,
		}}, nil
	})
}

// CommitReservation turns the hold into a sale once payment captured.
func (s *Service) CommitReservation(ctx context.Context, reservationID uuid.UUID) (Reservation, error) {
	const command = "CommitReservation"

	state, _, err := s.handler.Load(ctx, reservationID)
	if err != nil {
		return Reservation{}, err
	}
	switch state.Status {
	case StatusCommitted:
		return state, nil
	case StatusConfirmed:
	default:
		return Reservation{}, es.Reject(command, "reservation is "+string(state.Status))
	}

	if err := s.stock.Commit(ctx, state.OrderID); err != nil {
		return state, es.External("product store", err, true)
	}

	return s.handler.Execute(ctx, reservationID, command, func(r Reservation) ([]es.Event, error) {
		if r.Status != StatusConfirmed {
			return nil, nil
		}
		return []es.Event{ReservationCommitted{
			ReservationID: r.ID,
			OrderID:       r.OrderID,
		}}, nil
	})
}

// ReleaseReservation drops the hold after a failed payment. Releasing a
// reservation that never held stock (pending or failed) only records the
// fact; releasing twice is a no-op.
func (s *Service) ReleaseReservation(ctx context.Context, reservationID uuid.UUID, reason string) (Reservation, error) {
	const command = "ReleaseReservation"

	state, _, err := s.handler.Load(ctx, reservationID)
	if err != nil {
		return Reservation{}, err
	}
	switch state.Status {
	case StatusReleased, StatusFailed:
		return state, nil
	case StatusCommitted:
		return Reservation{}, es.Reject(command, "reservation already committed")
	}

	if state.Status == StatusConfirmed {
		if err := s.stock.Release(ctx, state.OrderID); err != nil {
			return state, es.External("product store", err, true)
		}
	}

	return s.handler.Execute(ctx, reservationID, command, func(r Reservation) ([]es.Event, error) {
		switch r.Status {
		case StatusReleased, StatusFailed:
			return nil, nil
		}
		return []es.Event{ReservationReleased{
			ReservationID: r.ID,
			OrderID:       r.OrderID,
			Reason:        reason,
		}}, nil
	})
}
