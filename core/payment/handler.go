package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/tuition-lms/api/web"
	"github.com/irsalhamdi/tuition-lms/api/weberr"
	"github.com/irsalhamdi/tuition-lms/core/claims"
	"github.com/irsalhamdi/tuition-lms/core/order"
	"github.com/irsalhamdi/tuition-lms/core/user"
	"github.com/irsalhamdi/tuition-lms/gateway"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type Ack struct {
	Success bool   `json:"success"`
	Result  Result `json:"result,omitempty"`
}

type CheckoutResponse struct {
	Success  bool             `json:"success"`
	Checkout gateway.Checkout `json:"checkout"`
}

// HandleCheckout hands the buyer's pending order to the gateway it was
// placed with.
func HandleCheckout(db *sqlx.DB, adapters map[order.Method]gateway.Adapter) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")

		ord, err := order.Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", id, err)
		}

		if ord.BuyerID != clm.UserID {
			return weberr.NotFound(fmt.Errorf("order[%s] does not belong to user[%s]", id, clm.UserID))
		}

		if ord.Status != order.Pending {
			return weberr.Conflict(fmt.Errorf("%w: order[%s] is %s", ErrNotPending, id, ord.Status), "order is no longer pending")
		}

		adapter, ok := adapters[ord.PaymentMethod]
		if !ok {
			err := fmt.Errorf("order[%s] is paid by %s", id, ord.PaymentMethod)
			return weberr.NewError(err, "order has no online checkout", http.StatusUnprocessableEntity)
		}

		buyer, err := user.Fetch(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching buyer[%s]: %w", clm.UserID, err)
		}

		c, err := adapter.Checkout(ctx, ord, buyer)
		if err != nil {
			return fmt.Errorf("building checkout for order[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, CheckoutResponse{Success: true, Checkout: c}, http.StatusOK)
	}
}

// HandleNotify is the provider facing callback. Only unreadable or unsigned
// requests are refused; anything the provider should not retry is
// acknowledged with 200.
func HandleNotify(log logrus.FieldLogger, db *sqlx.DB, ntf gateway.Notifier) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		body, err := web.ReadBody(w, r, web.MaxNotificationBytes)
		if err != nil {
			return weberr.BadRequest(err)
		}

		n, err := ntf.ParseNotification(r.Header, body)
		switch {
		case errors.Is(err, gateway.ErrIgnored):
			log.WithError(err).Debug("notification ignored")
			return web.Respond(ctx, w, Ack{Success: true, Result: Ignored}, http.StatusOK)

		case errors.Is(err, gateway.ErrMalformed), errors.Is(err, gateway.ErrInvalidSignature):
			return weberr.BadRequest(err, weberr.WithField("remote", r.RemoteAddr))

		case err != nil:
			return err
		}

		res, _, err := ApplyNotification(ctx, db, n)

		l := log.WithFields(logrus.Fields{
			"provider":  n.Provider,
			"order_id":  n.OrderID,
			"outcome":   n.Outcome,
			"reference": n.Reference,
		})

		switch {
		case errors.Is(err, ErrUnknownOrder):
			l.WithError(err).Warn("notification for unknown order")
			return web.Respond(ctx, w, Ack{Success: true}, http.StatusOK)

		case errors.Is(err, ErrAmountMismatch):
			l.WithError(err).Error("notification amount mismatch")
			return web.Respond(ctx, w, Ack{Success: true}, http.StatusOK)

		case err != nil:
			return fmt.Errorf("applying %s notification: %w", n.Provider, err)
		}

		l.WithField("result", res).Info("notification reconciled")
		return web.Respond(ctx, w, Ack{Success: true, Result: res}, http.StatusOK)
	}
}

// HandlePaypalCapture captures an approved PayPal order and settles the
// order it references. Only the buyer of that order may capture it.
func HandlePaypalCapture(log logrus.FieldLogger, db *sqlx.DB, pp *gateway.PaypalGateway) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		paypalID := web.Param(r, "id")

		orderID, err := pp.OrderReference(ctx, paypalID)
		if err != nil {
			switch {
			case errors.Is(err, gateway.ErrUnknownPayment):
				return weberr.NotFound(err)
			case errors.Is(err, gateway.ErrMalformed):
				return weberr.NewError(err, "payment could not be captured", http.StatusUnprocessableEntity)
			}
			return err
		}

		ord, err := order.Fetch(ctx, db, orderID)
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", orderID, err)
		}

		if ord.BuyerID != clm.UserID {
			return weberr.NotFound(fmt.Errorf("order[%s] does not belong to user[%s]", ord.ID, clm.UserID))
		}

		n, err := pp.Capture(ctx, paypalID)
		if err != nil {
			if errors.Is(err, gateway.ErrMalformed) {
				return weberr.NewError(err, "payment could not be captured", http.StatusUnprocessableEntity)
			}
			return err
		}

		if n.OrderID != ord.ID {
			err := fmt.Errorf("%w: paypal order[%s] captured for order[%s], expected order[%s]", gateway.ErrMalformed, paypalID, n.OrderID, ord.ID)
			return weberr.NewError(err, "payment could not be captured", http.StatusUnprocessableEntity)
		}

		res, ord, err := ApplyNotification(ctx, db, n)
		if err != nil {
			return fmt.Errorf("applying paypal capture: %w", err)
		}

		log.WithFields(logrus.Fields{
			"provider":  n.Provider,
			"order_id":  n.OrderID,
			"reference": n.Reference,
			"result":    res,
		}).Info("paypal capture reconciled")

		return web.Respond(ctx, w, order.OrderResponse{Success: true, Order: ord}, http.StatusOK)
	}
}

func HandleConfirm(db *sqlx.DB) web.Handler {
	return handleDecision(db, ConfirmManually)
}

func HandleCancel(db *sqlx.DB) web.Handler {
	return handleDecision(db, CancelManually)
}

type decision func(ctx context.Context, db *sqlx.DB, orderID string, adminID string) (order.Order, error)

func handleDecision(db *sqlx.DB, decide decision) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")

		ord, err := decide(ctx, db, id, clm.UserID)
		if err != nil {
			switch {
			case errors.Is(err, order.ErrNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrConflict):
				return weberr.Conflict(err, "order is already settled")
			}
			return fmt.Errorf("deciding order[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, order.OrderResponse{Success: true, Order: ord}, http.StatusOK)
	}
}
