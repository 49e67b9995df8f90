// Package payment reconciles gateway notifications and administrator
// decisions with the order state machine. An order leaves pending exactly
// once; every later notification or decision is absorbed.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/irsalhamdi/tuition-lms/core/order"
	"github.com/irsalhamdi/tuition-lms/database"
	"github.com/irsalhamdi/tuition-lms/gateway"
	"github.com/irsalhamdi/tuition-lms/outbox"
	"github.com/jmoiron/sqlx"
)

const StatusTopic = "order.status"

var (
	ErrUnknownOrder   = errors.New("notification for unknown order")
	ErrAmountMismatch = errors.New("paid amount does not match order total")
	ErrConflict       = errors.New("order already settled")
	ErrNotPending     = errors.New("order is not pending")
)

// Result says what a notification did to its order.
type Result string

const (
	Applied   Result = "applied"
	Duplicate Result = "duplicate"
	Ignored   Result = "ignored"
	Absorbed  Result = "absorbed"
)

// StatusChanged is published on StatusTopic for every transition.
type StatusChanged struct {
	OrderID    string           `json:"orderId"`
	BuyerID    string           `json:"buyerId"`
	From       order.Status     `json:"from"`
	To         order.Status     `json:"to"`
	Source     gateway.Provider `json:"source"`
	Reference  string           `json:"reference"`
	Months     []string         `json:"months"`
	OccurredAt time.Time        `json:"occurredAt"`
}

func publish(ctx context.Context, tx sqlx.ExtContext, ord order.Order, to order.Status, src gateway.Provider, ref string, now time.Time) error {
	months := make([]string, 0, len(ord.Items))
	for _, it := range ord.Items {
		months = append(months, it.MonthID)
	}

	ev := StatusChanged{
		OrderID:    ord.ID,
		BuyerID:    ord.BuyerID,
		From:       ord.Status,
		To:         to,
		Source:     src,
		Reference:  ref,
		Months:     months,
		OccurredAt: now,
	}
	return outbox.Add(ctx, tx, StatusTopic, ord.ID, ev)
}

// recordEvent stores the notification's idempotency key and reports whether
// it was seen for the first time.
func recordEvent(ctx context.Context, tx sqlx.ExtContext, n gateway.Notification, now time.Time) (bool, error) {
	in := struct {
		Provider   string    `db:"provider"`
		OrderID    string    `db:"order_id"`
		Reference  string    `db:"reference"`
		Outcome    string    `db:"outcome"`
		ReceivedAt time.Time `db:"received_at"`
	}{string(n.Provider), n.OrderID, n.Reference, string(n.Outcome), now}

	const q = `
	INSERT INTO payment_events
		(provider, order_id, reference, outcome, received_at)
	VALUES
		(:provider, :order_id, :reference, :outcome, :received_at)
	ON CONFLICT DO NOTHING`

	rows, err := database.NamedExecContextRows(ctx, tx, q, in)
	if err != nil {
		return false, fmt.Errorf("recording payment event: %w", err)
	}
	return rows == 1, nil
}

// ApplyNotification settles the order named by a verified notification.
// A repeated notification, a pending outcome and a notification for an
// order that already left pending change nothing.
func ApplyNotification(ctx context.Context, db *sqlx.DB, n gateway.Notification) (Result, order.Order, error) {
	var (
		res Result
		ord order.Order
	)

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		var err error
		ord, err = order.Fetch(ctx, tx, n.OrderID)
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				return fmt.Errorf("%w: order[%s] from %s", ErrUnknownOrder, n.OrderID, n.Provider)
			}
			return err
		}

		now := time.Now().UTC()

		fresh, err := recordEvent(ctx, tx, n, now)
		if err != nil {
			return err
		}
		if !fresh {
			res = Duplicate
			return nil
		}

		to, ok := n.Outcome.Status()
		if !ok {
			res = Ignored
			return nil
		}

		if n.Outcome == gateway.Success && n.Amount != nil && math.Abs(*n.Amount-float64(ord.Total)) > 0.005 {
			return fmt.Errorf("%w: order[%s] total %d, paid %.2f", ErrAmountMismatch, ord.ID, ord.Total, *n.Amount)
		}

		won, err := order.SettleVerified(ctx, tx, ord.ID, to, n.Reference, n.Outcome == gateway.Success, now)
		if err != nil {
			return err
		}
		if !won {
			res = Absorbed
			ord, err = order.Fetch(ctx, tx, ord.ID)
			return err
		}

		if err := publish(ctx, tx, ord, to, n.Provider, n.Reference, now); err != nil {
			return err
		}

		res = Applied
		ord, err = order.Fetch(ctx, tx, ord.ID)
		return err
	})

	if err != nil {
		return "", order.Order{}, err
	}
	return res, ord, nil
}

// ConfirmManually completes a pending order on behalf of an administrator.
// Confirming an order that is already completed succeeds without a change.
func ConfirmManually(ctx context.Context, db *sqlx.DB, orderID string, adminID string) (order.Order, error) {
	return decide(ctx, db, orderID, order.Completed, func(tx sqlx.ExtContext, now time.Time) (bool, error) {
		return order.SettleConfirmed(ctx, tx, orderID, adminID, now)
	})
}

// CancelManually cancels a pending order, e.g. when a bank slip is rejected.
func CancelManually(ctx context.Context, db *sqlx.DB, orderID string, adminID string) (order.Order, error) {
	return decide(ctx, db, orderID, order.Cancelled, func(tx sqlx.ExtContext, now time.Time) (bool, error) {
		return order.SettleCancelled(ctx, tx, orderID, now)
	})
}

func decide(ctx context.Context, db *sqlx.DB, orderID string, to order.Status, settle func(sqlx.ExtContext, time.Time) (bool, error)) (order.Order, error) {
	var ord order.Order

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		var err error
		ord, err = order.Fetch(ctx, tx, orderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()

		won, err := settle(tx, now)
		if err != nil {
			return err
		}

		if !won {
			ord, err = order.Fetch(ctx, tx, orderID)
			if err != nil {
				return err
			}
			if ord.Status == to {
				return nil
			}
			return fmt.Errorf("%w: order[%s] is %s", ErrConflict, orderID, ord.Status)
		}

		if err := publish(ctx, tx, ord, to, gateway.Admin, ord.Payment.Reference, now); err != nil {
			return err
		}

		ord, err = order.Fetch(ctx, tx, orderID)
		return err
	})

	if err != nil {
		return order.Order{}, err
	}
	return ord, nil
}
