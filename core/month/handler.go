package month

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/tuition-lms/api/web"
	"github.com/irsalhamdi/tuition-lms/api/weberr"
	"github.com/irsalhamdi/tuition-lms/validate"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ms, err := Query(ctx, db, r.URL.Query().Get("batch"))
		if err != nil {
			return fmt.Errorf("listing months: %w", err)
		}
		if ms == nil {
			ms = []Month{}
		}

		return web.Respond(ctx, w, ms, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		m, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching month[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, m, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var mn MonthNew
		if err := web.Decode(w, r, &mn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(mn); err != nil {
			return weberr.Unprocessable(err)
		}

		purchasable := true
		if mn.Purchasable != nil {
			purchasable = *mn.Purchasable
		}

		now := time.Now().UTC()
		m := Month{
			ID:          validate.GenerateID(),
			Batch:       mn.Batch,
			Name:        mn.Name,
			Description: mn.Description,
			ImageURL:    mn.ImageURL,
			Price:       mn.Price,
			Purchasable: purchasable,
			CreatedAt:   now,
			UpdatedAt:   now,
			Version:     1,
		}

		if err := Create(ctx, db, m); err != nil {
			return fmt.Errorf("creating month: %w", err)
		}

		return web.Respond(ctx, w, m, http.StatusCreated)
	}
}
