package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	customerJSON, restaurantJSON, courierJSON, locationJSON, err := marshalOrderBlobs(order)
	if err != nil {
		return err
	}

	var courierID any
	if order.Courier != nil {
		courierID = order.Courier.ID
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, status, customer_id, customer, restaurant_id, restaurant,
			courier_id, courier, amount_minor, payment_status, priority,
			location, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		order.ID, string(order.Status), order.Customer.ID, customerJSON,
		order.Restaurant.ID, restaurantJSON, courierID, courierJSON,
		order.AmountMinor, string(order.PaymentStatus), string(order.Priority),
		locationJSON, order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderExists
		}
		return fmt.Errorf("insert order: %w", err)
	}

	if err = insertItems(ctx, tx, order.ID, order.Items); err != nil {
		return err
	}
	if err = insertHistory(ctx, tx, order.ID, order.History); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, selectOrderSQL+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, err
	}

	if err := r.loadAggregates(ctx, &order); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (r *orderRepository) List(filter domain.OrderFilter) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := selectOrderSQL
	var (
		conds []string
		args  []any
	)
	appendCond := func(column, value string) {
		args = append(args, value)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		appendCond("status", string(filter.Status))
	}
	if filter.RestaurantID != "" {
		appendCond("restaurant_id", filter.RestaurantID)
	}
	if filter.CustomerID != "" {
		appendCond("customer_id", filter.CustomerID)
	}
	if filter.CourierID != "" {
		appendCond("courier_id", filter.CourierID)
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY seq ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		if err := r.loadAggregates(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *orderRepository) Save(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	customerJSON, restaurantJSON, courierJSON, locationJSON, err := marshalOrderBlobs(order)
	if err != nil {
		return err
	}

	var courierID any
	if order.Courier != nil {
		courierID = order.Courier.ID
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    customer_id = $2,
		    customer = $3,
		    restaurant_id = $4,
		    restaurant = $5,
		    courier_id = $6,
		    courier = $7,
		    amount_minor = $8,
		    payment_status = $9,
		    priority = $10,
		    location = $11,
		    version = version + 1,
		    updated_at = $12
		WHERE id = $13
		  AND version = $14
	`,
		string(order.Status), order.Customer.ID, customerJSON,
		order.Restaurant.ID, restaurantJSON, courierID, courierJSON,
		order.AmountMinor, string(order.PaymentStatus), string(order.Priority),
		locationJSON, order.UpdatedAt, order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, existsErr := orderExistsTx(ctx, tx, order.ID)
		if existsErr != nil {
			err = existsErr
			return err
		}
		if !exists {
			err = domain.ErrOrderNotFound
			return err
		}
		err = domain.ErrOrderVersionConflict
		return err
	}

	// История append-only: перезаписываем её целиком состоянием агрегата.
	// Позиции заказа после создания не меняются.
	if _, err = tx.ExecContext(ctx, `DELETE FROM order_status_history WHERE order_id = $1`, order.ID); err != nil {
		return fmt.Errorf("reset order history: %w", err)
	}
	if err = insertHistory(ctx, tx, order.ID, order.History); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save order: %w", err)
	}

	return nil
}

const selectOrderSQL = `
	SELECT id, status, customer, restaurant, courier, amount_minor,
	       payment_status, priority, location, version, created_at, updated_at
	FROM orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *orderRepository) scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order          domain.Order
		status         string
		payment        string
		priority       string
		customerJSON   []byte
		restaurantJSON []byte
		courierJSON    []byte
		locationJSON   []byte
	)

	if err := row.Scan(
		&order.ID, &status, &customerJSON, &restaurantJSON, &courierJSON,
		&order.AmountMinor, &payment, &priority, &locationJSON,
		&order.Version, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("scan order row: %w", err)
	}

	order.Status = domain.OrderStatus(status)
	order.PaymentStatus = domain.PaymentStatus(payment)
	order.Priority = domain.Priority(priority)

	if err := json.Unmarshal(customerJSON, &order.Customer); err != nil {
		return domain.Order{}, fmt.Errorf("unmarshal customer: %w", err)
	}
	if err := json.Unmarshal(restaurantJSON, &order.Restaurant); err != nil {
		return domain.Order{}, fmt.Errorf("unmarshal restaurant: %w", err)
	}
	if len(courierJSON) > 0 {
		var courier domain.Courier
		if err := json.Unmarshal(courierJSON, &courier); err != nil {
			return domain.Order{}, fmt.Errorf("unmarshal courier: %w", err)
		}
		order.Courier = &courier
	}
	if len(locationJSON) > 0 {
		var loc domain.Location
		if err := json.Unmarshal(locationJSON, &loc); err != nil {
			return domain.Order{}, fmt.Errorf("unmarshal location: %w", err)
		}
		order.Location = &loc
	}

	return order, nil
}

func (r *orderRepository) loadAggregates(ctx context.Context, order *domain.Order) error {
	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return err
	}
	order.Items = items

	history, err := r.loadHistory(ctx, order.ID)
	if err != nil {
		return err
	}
	order.History = history

	return nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, name, qty, price_minor, image_ref
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Qty, &item.PriceMinor, &item.ImageRef); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) loadHistory(ctx context.Context, orderID string) ([]domain.StatusEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, actor, note, at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order history: %w", err)
	}
	defer rows.Close()

	history := make([]domain.StatusEntry, 0)
	for rows.Next() {
		var entry domain.StatusEntry
		var status string
		if err := rows.Scan(&status, &entry.Actor, &entry.Note, &entry.At); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.Status = domain.OrderStatus(status)
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history entries: %w", err)
	}

	return history, nil
}

func insertItems(ctx context.Context, tx *sql.Tx, orderID string, items []domain.OrderItem) error {
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, item_id, name, qty, price_minor, image_ref)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, orderID, item.ID, item.Name, item.Qty, item.PriceMinor, item.ImageRef); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, orderID string, history []domain.StatusEntry) error {
	for _, entry := range history {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_status_history (order_id, status, actor, note, at)
			VALUES ($1,$2,$3,$4,$5)
		`, orderID, string(entry.Status), entry.Actor, entry.Note, entry.At); err != nil {
			return fmt.Errorf("insert history entry: %w", err)
		}
	}
	return nil
}

func marshalOrderBlobs(order domain.Order) (customer, restaurant, courier, location []byte, err error) {
	customer, err = json.Marshal(order.Customer)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal customer: %w", err)
	}
	restaurant, err = json.Marshal(order.Restaurant)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal restaurant: %w", err)
	}
	if order.Courier != nil {
		courier, err = json.Marshal(order.Courier)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("marshal courier: %w", err)
		}
	}
	if order.Location != nil {
		location, err = json.Marshal(order.Location)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("marshal location: %w", err)
		}
	}
	return customer, restaurant, courier, location, nil
}

func orderExistsTx(ctx context.Context, tx *sql.Tx, orderID string) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
