// Package products maintains the product read model: catalog facts fed by
// Product* messages plus the stock counters reservations operate on.
package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/erikshafer/crittersupply/libs/db"
	"github.com/erikshafer/crittersupply/libs/messages"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotFound = errors.New("product not found")

// ErrInsufficientStock carries the first SKU that could not be covered.
type ErrInsufficientStock struct {
	SKU string
}

func (e ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.SKU)
}

type Product struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	Currency     string `json:"currency"`
	Stock        int    `json:"stock"`
	Reserved     int    `json:"reserved"`
	Discontinued bool   `json:"discontinued"`
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, sku string) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `
		SELECT sku, name, price, currency, stock, reserved, discontinued
		FROM products WHERE sku = $1`, sku,
	).Scan(&p.SKU, &p.Name, &p.Price, &p.Currency, &p.Stock, &p.Reserved, &p.Discontinued)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *Repository) Upsert(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (sku, name, price, currency, stock, reserved, discontinued, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, false, now())
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			stock = EXCLUDED.stock,
			discontinued = false,
			updated_at = now()`,
		p.SKU, p.Name, p.Price, p.Currency, p.Stock)
	return err
}

func (r *Repository) Discontinue(ctx context.Context, sku string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE products SET discontinued = true, updated_at = now() WHERE sku = $1`, sku)
	return err
}

// Reserve places a hold for an order. Idempotent per order id: a second
// call finds the hold row and changes nothing. Any line that cannot be
// covered rolls the whole hold back.
func (r *Repository) Reserve(ctx context.Context, orderID string, lines []messages.Line) error {
	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO reservation_holds (order_id, lines, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (order_id) DO NOTHING`, orderID, linesJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Hold already placed by an earlier delivery.
		return nil
	}

	for _, l := range lines {
		tag, err := tx.Exec(ctx, `
			UPDATE products SET reserved = reserved + $1, updated_at = now()
			WHERE sku = $2 AND NOT discontinued AND stock - reserved >= $1`,
			l.Quantity, l.SKU)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrInsufficientStock{SKU: l.SKU}
		}
	}
	return tx.Commit(ctx)
}

// Commit turns a hold into a sale: stock and reserved both drop. A missing
// hold means the order was already settled; nothing happens.
func (r *Repository) Commit(ctx context.Context, orderID string) error {
	return r.settle(ctx, orderID, true)
}

// Release drops the hold without touching stock.
func (r *Repository) Release(ctx context.Context, orderID string) error {
	return r.settle(ctx, orderID, false)
}

func (r *Repository) settle(ctx context.Context, orderID string, sold bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var linesJSON []byte
	err = tx.QueryRow(ctx, `
		SELECT lines FROM reservation_holds WHERE order_id = $1 FOR UPDATE`, orderID,
	).Scan(&linesJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	var lines []messages.Line
	if err := json.Unmarshal(linesJSON, &lines); err != nil {
		return err
	}

	for _, l := range lines {
		if sold {
			_, err = tx.Exec(ctx, `
				UPDATE products SET stock = stock - $1, reserved = reserved - $1, updated_at = now()
				WHERE sku = $2`, l.Quantity, l.SKU)
		} else {
			_, err = tx.Exec(ctx, `
				UPDATE products SET reserved = reserved - $1, updated_at = now()
				WHERE sku = $2`, l.Quantity, l.SKU)
		}
		if err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM reservation_holds WHERE order_id = $1`, orderID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
