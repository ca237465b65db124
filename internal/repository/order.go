package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"platoo/storefront/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderRepository keeps a local history of orders placed from this storefront
type OrderRepository interface {
	SaveOrder(ctx context.Context, order *domain.Order) error
	UpdateStatus(ctx context.Context, orderID, status string) (bool, error)
	ListOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error)
}

type orderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) OrderRepository {
	return &orderRepository{
		db: db,
	}
}

const createPlacedOrders = `
CREATE TABLE IF NOT EXISTS placed_orders (
	order_id   TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	total      NUMERIC(12, 2) NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the history table when missing
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, createPlacedOrders); err != nil {
		return fmt.Errorf("failed to create placed_orders table: %w", err)
	}
	return nil
}

func (r *orderRepository) SaveOrder(ctx context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to serialize order %s: %w", order.OrderID, err)
	}

	query := `
	INSERT INTO placed_orders (order_id, user_id, total, data, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (order_id)
	DO UPDATE SET user_id = $2, total = $3, data = $4`
	_, err = r.db.Exec(ctx, query, order.OrderID, order.UserID, order.Pricing.Total.String(), data, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save order %s: %w", order.OrderID, err)
	}

	return nil
}

// UpdateStatus changes only the status of a recorded order and reports
// whether the order was known
func (r *orderRepository) UpdateStatus(ctx context.Context, orderID, status string) (bool, error) {
	query := `
	UPDATE placed_orders
	SET data = jsonb_set(data, '{status}', to_jsonb($2::text))
	WHERE order_id = $1`
	tag, err := r.db.Exec(ctx, query, orderID, status)
	if err != nil {
		return false, fmt.Errorf("failed to update status of order %s: %w", orderID, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
	SELECT data FROM placed_orders
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		var data []byte
		if err := row.Scan(&data); err != nil {
			return domain.Order{}, err
		}
		var order domain.Order
		err := json.Unmarshal(data, &order)
		return order, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read orders for user %s: %w", userID, err)
	}

	return orders, nil
}
