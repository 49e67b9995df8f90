package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/tuition-lms/api/web"
	"github.com/irsalhamdi/tuition-lms/api/weberr"
	"github.com/irsalhamdi/tuition-lms/core/claims"
	"github.com/irsalhamdi/tuition-lms/core/month"
	"github.com/irsalhamdi/tuition-lms/database"
	"github.com/irsalhamdi/tuition-lms/random"
	"github.com/irsalhamdi/tuition-lms/validate"
	"github.com/jmoiron/sqlx"
)

// ErrValidation marks orders rejected because of the request itself.
var ErrValidation = errors.New("invalid order")

type OrderResponse struct {
	Success bool  `json:"success"`
	Order   Order `json:"order"`
}

type OrdersResponse struct {
	Success bool    `json:"success"`
	Orders  []Order `json:"orders"`
}

// Place records a pending order for the buyer. Names and prices are taken
// from the catalog, never from the request.
func Place(ctx context.Context, db *sqlx.DB, buyerID string, on OrderNew) (Order, error) {
	if err := validate.Check(on); err != nil {
		return Order{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	if on.SlipURL != "" && on.PaymentMethod != MethodBankTransfer {
		return Order{}, fmt.Errorf("%w: a payment slip is only accepted for bank transfers", ErrValidation)
	}

	ids := make([]string, 0, len(on.Items))
	seen := make(map[string]bool, len(on.Items))
	for _, it := range on.Items {
		id, err := validate.NormalizeID(it.MonthID)
		if err != nil {
			return Order{}, fmt.Errorf("%w: month[%s]: %s", ErrValidation, it.MonthID, err)
		}
		if seen[id] {
			return Order{}, fmt.Errorf("%w: month[%s] is ordered twice", ErrValidation, id)
		}
		seen[id] = true
		ids = append(ids, id)
	}

	months, err := month.FetchMany(ctx, db, ids)
	if err != nil {
		return Order{}, fmt.Errorf("fetching ordered months: %w", err)
	}

	now := time.Now().UTC()
	ord := Order{
		ID:            validate.GenerateID(),
		BuyerID:       buyerID,
		Items:         make([]Item, 0, len(on.Items)),
		PaymentMethod: on.PaymentMethod,
		Status:        Pending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, id := range ids {
		m, ok := months[id]
		if !ok {
			return Order{}, fmt.Errorf("%w: month[%s] does not exist", ErrValidation, id)
		}
		if !m.Purchasable {
			return Order{}, fmt.Errorf("%w: month[%s] is not open for purchase", ErrValidation, id)
		}

		ord.Items = append(ord.Items, Item{MonthID: m.ID, Name: m.Name, Price: m.Price})
		ord.Total += m.Price
	}

	if ord.PaymentMethod == MethodBankTransfer {
		ref, err := random.Reference("BT", 10)
		if err != nil {
			return Order{}, err
		}
		ord.Payment.Reference = ref

		if on.SlipURL != "" {
			slip := on.SlipURL
			ord.Payment.SlipURL = &slip
		}
	}

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := Create(ctx, tx, ord); err != nil {
			return err
		}

		for i, it := range ord.Items {
			if err := CreateItem(ctx, tx, ord.ID, i, it, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, fmt.Errorf("creating order for buyer[%s]: %w", buyerID, err)
	}

	return ord, nil
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var on OrderNew
		if err := web.Decode(w, r, &on); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		ord, err := Place(ctx, db, clm.UserID, on)
		if err != nil {
			if errors.Is(err, ErrValidation) {
				return weberr.Unprocessable(err)
			}
			return err
		}

		return web.Respond(ctx, w, OrderResponse{Success: true, Order: ord}, http.StatusCreated)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orders, err := FetchByBuyer(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching order history: %w", err)
		}

		return web.Respond(ctx, w, OrdersResponse{Success: true, Orders: orders}, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		ord, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", id, err)
		}

		if !claims.CanRead(ctx, ord.BuyerID) {
			return weberr.NotFound(fmt.Errorf("order[%s] does not belong to the caller", id))
		}

		return web.Respond(ctx, w, OrderResponse{Success: true, Order: ord}, http.StatusOK)
	}
}

// HandleQuery lists orders for administrators, e.g. ?status=pending&page=2.
func HandleQuery(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		status := Status(r.URL.Query().Get("status"))
		switch status {
		case "", Pending, Completed, Cancelled, Failed:
		default:
			return weberr.BadRequest(fmt.Errorf("unknown order status %q", status))
		}

		page, err := web.QueryInt(r, "page", 1)
		if err != nil {
			return weberr.BadRequest(err)
		}
		if page < 1 {
			return weberr.BadRequest(fmt.Errorf("page %d out of range", page))
		}

		rows, err := web.QueryInt(r, "rows", 20)
		if err != nil {
			return weberr.BadRequest(err)
		}
		if rows < 1 || rows > 100 {
			return weberr.BadRequest(fmt.Errorf("rows %d out of range", rows))
		}

		orders, err := Query(ctx, db, status, page, rows)
		if err != nil {
			return fmt.Errorf("querying orders: %w", err)
		}

		return web.Respond(ctx, w, OrdersResponse{Success: true, Orders: orders}, http.StatusOK)
	}
}
