package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/tuition-lms/database"
	"github.com/irsalhamdi/tuition-lms/validate"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("order not found")

type dbOrder struct {
	ID                 string         `db:"order_id"`
	BuyerID            string         `db:"buyer_id"`
	Total              int            `db:"total"`
	PaymentMethod      string         `db:"payment_method"`
	Status             string         `db:"status"`
	PaymentReference   string         `db:"payment_reference"`
	PaymentVerified    bool           `db:"payment_verified"`
	PaymentComplete    bool           `db:"payment_complete"`
	PaymentSlipURL     sql.NullString `db:"payment_slip_url"`
	PaymentConfirmedBy sql.NullString `db:"payment_confirmed_by"`
	PaymentConfirmedAt sql.NullTime   `db:"payment_confirmed_at"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

type dbItem struct {
	OrderID   string    `db:"order_id"`
	Position  int       `db:"position"`
	MonthID   string    `db:"month_id"`
	Name      string    `db:"name"`
	Price     int       `db:"price"`
	CreatedAt time.Time `db:"created_at"`
}

// dbOrderItem is one row of the orders/order_items join.
type dbOrderItem struct {
	dbOrder
	ItemPosition sql.NullInt64  `db:"item_position"`
	ItemMonthID  sql.NullString `db:"item_month_id"`
	ItemName     sql.NullString `db:"item_name"`
	ItemPrice    sql.NullInt64  `db:"item_price"`
}

func toDBOrder(o Order) dbOrder {
	d := dbOrder{
		ID:               o.ID,
		BuyerID:          o.BuyerID,
		Total:            o.Total,
		PaymentMethod:    string(o.PaymentMethod),
		Status:           string(o.Status),
		PaymentReference: o.Payment.Reference,
		PaymentVerified:  o.Payment.Verified,
		PaymentComplete:  o.Payment.Complete,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	if o.Payment.SlipURL != nil {
		d.PaymentSlipURL = sql.NullString{String: *o.Payment.SlipURL, Valid: true}
	}
	if o.Payment.ConfirmedBy != nil {
		d.PaymentConfirmedBy = sql.NullString{String: *o.Payment.ConfirmedBy, Valid: true}
	}
	if o.Payment.ConfirmedAt != nil {
		d.PaymentConfirmedAt = sql.NullTime{Time: *o.Payment.ConfirmedAt, Valid: true}
	}
	return d
}

func toOrder(d dbOrder) Order {
	o := Order{
		ID:            d.ID,
		BuyerID:       d.BuyerID,
		Items:         []Item{},
		Total:         d.Total,
		PaymentMethod: Method(d.PaymentMethod),
		Status:        Status(d.Status),
		Payment: Payment{
			Reference: d.PaymentReference,
			Verified:  d.PaymentVerified,
			Complete:  d.PaymentComplete,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.PaymentSlipURL.Valid {
		s := d.PaymentSlipURL.String
		o.Payment.SlipURL = &s
	}
	if d.PaymentConfirmedBy.Valid {
		s := d.PaymentConfirmedBy.String
		o.Payment.ConfirmedBy = &s
	}
	if d.PaymentConfirmedAt.Valid {
		t := d.PaymentConfirmedAt.Time
		o.Payment.ConfirmedAt = &t
	}
	return o
}

// groupRows folds joined rows, already sorted by order then position, back
// into orders.
func groupRows(rows []dbOrderItem) []Order {
	orders := make([]Order, 0)
	index := make(map[string]int)

	for _, r := range rows {
		i, ok := index[r.ID]
		if !ok {
			orders = append(orders, toOrder(r.dbOrder))
			i = len(orders) - 1
			index[r.ID] = i
		}

		if r.ItemMonthID.Valid {
			orders[i].Items = append(orders[i].Items, Item{
				MonthID: r.ItemMonthID.String,
				Name:    r.ItemName.String,
				Price:   int(r.ItemPrice.Int64),
			})
		}
	}
	return orders
}

func Create(ctx context.Context, db sqlx.ExtContext, o Order) error {
	const q = `
	INSERT INTO orders
		(order_id, buyer_id, total, payment_method, status, payment_reference, payment_verified,
		 payment_complete, payment_slip_url, created_at, updated_at)
	VALUES
		(:order_id, :buyer_id, :total, :payment_method, :status, :payment_reference, :payment_verified,
		 :payment_complete, :payment_slip_url, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, toDBOrder(o)); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func CreateItem(ctx context.Context, db sqlx.ExtContext, orderID string, position int, it Item, now time.Time) error {
	const q = `
	INSERT INTO order_items
		(order_id, position, month_id, name, price, created_at)
	VALUES
		(:order_id, :position, :month_id, :name, :price, :created_at)`

	d := dbItem{
		OrderID:   orderID,
		Position:  position,
		MonthID:   it.MonthID,
		Name:      it.Name,
		Price:     it.Price,
		CreatedAt: now,
	}

	if err := database.NamedExecContext(ctx, db, q, d); err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

const selectJoined = `
	SELECT
		o.*,
		i.position AS item_position,
		i.month_id AS item_month_id,
		i.name     AS item_name,
		i.price    AS item_price
	FROM orders AS o
	LEFT JOIN order_items AS i ON i.order_id = o.order_id`

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Order, error) {
	if err := validate.CheckID(id); err != nil {
		return Order{}, ErrNotFound
	}

	in := struct {
		ID string `db:"order_id"`
	}{id}

	q := selectJoined + `
	WHERE o.order_id = :order_id
	ORDER BY i.position`

	var rows []dbOrderItem
	if err := database.NamedQuerySlice(ctx, db, q, in, &rows); err != nil {
		return Order{}, fmt.Errorf("selecting order[%s]: %w", id, err)
	}

	orders := groupRows(rows)
	if len(orders) == 0 {
		return Order{}, ErrNotFound
	}
	return orders[0], nil
}

// FetchByBuyer returns every order of the buyer, newest first. Orders and
// their items come from a single statement, so a reader never sees an order
// without the items it was created with.
func FetchByBuyer(ctx context.Context, db sqlx.ExtContext, buyerID string) ([]Order, error) {
	if err := validate.CheckID(buyerID); err != nil {
		return []Order{}, nil
	}

	in := struct {
		BuyerID string `db:"buyer_id"`
	}{buyerID}

	q := selectJoined + `
	WHERE o.buyer_id = :buyer_id
	ORDER BY o.created_at DESC, o.order_id, i.position`

	var rows []dbOrderItem
	if err := database.NamedQuerySlice(ctx, db, q, in, &rows); err != nil {
		return nil, fmt.Errorf("selecting orders of buyer[%s]: %w", buyerID, err)
	}
	return groupRows(rows), nil
}

// Query pages through orders, newest first, optionally filtered by status.
func Query(ctx context.Context, db sqlx.ExtContext, status Status, page int, rowsPerPage int) ([]Order, error) {
	in := struct {
		Status string `db:"status"`
		Offset int    `db:"offset"`
		Rows   int    `db:"rows"`
	}{
		Status: string(status),
		Offset: (page - 1) * rowsPerPage,
		Rows:   rowsPerPage,
	}

	q := `
	WITH page AS (
		SELECT order_id, created_at
		FROM orders
		WHERE :status = '' OR status = :status
		ORDER BY created_at DESC, order_id
		OFFSET :offset ROWS FETCH NEXT :rows ROWS ONLY
	)` + selectJoined + `
	JOIN page AS p ON p.order_id = o.order_id
	ORDER BY o.created_at DESC, o.order_id, i.position`

	var rows []dbOrderItem
	if err := database.NamedQuerySlice(ctx, db, q, in, &rows); err != nil {
		return nil, fmt.Errorf("selecting orders: %w", err)
	}
	return groupRows(rows), nil
}

// SettleVerified moves a pending order to status with the gateway's
// reference. It reports false when the order was not pending.
func SettleVerified(ctx context.Context, db sqlx.ExtContext, id string, status Status, reference string, verified bool, now time.Time) (bool, error) {
	in := struct {
		ID        string    `db:"order_id"`
		Status    string    `db:"status"`
		Reference string    `db:"payment_reference"`
		Verified  bool      `db:"payment_verified"`
		UpdatedAt time.Time `db:"updated_at"`
	}{id, string(status), reference, verified, now}

	const q = `
	UPDATE orders SET
		status = :status,
		payment_reference = :payment_reference,
		payment_verified = :payment_verified,
		updated_at = :updated_at
	WHERE order_id = :order_id AND status = 'pending'`

	n, err := database.NamedExecContextRows(ctx, db, q, in)
	if err != nil {
		return false, fmt.Errorf("settling order[%s]: %w", id, err)
	}
	return n == 1, nil
}

// SettleConfirmed completes a pending order on an administrator's word.
func SettleConfirmed(ctx context.Context, db sqlx.ExtContext, id string, adminID string, now time.Time) (bool, error) {
	in := struct {
		ID          string    `db:"order_id"`
		ConfirmedBy string    `db:"payment_confirmed_by"`
		ConfirmedAt time.Time `db:"payment_confirmed_at"`
	}{id, adminID, now}

	const q = `
	UPDATE orders SET
		status = 'completed',
		payment_complete = TRUE,
		payment_confirmed_by = :payment_confirmed_by,
		payment_confirmed_at = :payment_confirmed_at,
		updated_at = :payment_confirmed_at
	WHERE order_id = :order_id AND status = 'pending'`

	n, err := database.NamedExecContextRows(ctx, db, q, in)
	if err != nil {
		return false, fmt.Errorf("confirming order[%s]: %w", id, err)
	}
	return n == 1, nil
}

// SettleCancelled cancels a pending order on an administrator's word.
func SettleCancelled(ctx context.Context, db sqlx.ExtContext, id string, now time.Time) (bool, error) {
	in := struct {
		ID        string    `db:"order_id"`
		UpdatedAt time.Time `db:"updated_at"`
	}{id, now}

	const q = `
	UPDATE orders SET
		status = 'cancelled',
		updated_at = :updated_at
	WHERE order_id = :order_id AND status = 'pending'`

	n, err := database.NamedExecContextRows(ctx, db, q, in)
	if err != nil {
		return false, fmt.Errorf("cancelling order[%s]: %w", id, err)
	}
	return n == 1, nil
}
