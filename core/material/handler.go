package material

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/tuition-lms/api/web"
	"github.com/irsalhamdi/tuition-lms/api/weberr"
	"github.com/irsalhamdi/tuition-lms/core/claims"
	"github.com/irsalhamdi/tuition-lms/core/enrollment"
	"github.com/irsalhamdi/tuition-lms/core/month"
	"github.com/irsalhamdi/tuition-lms/validate"
	"github.com/jmoiron/sqlx"
)

// authorize lets administrators through and asks enrollment for everyone
// else.
func authorize(ctx context.Context, db sqlx.ExtContext, monthID string) error {
	clm, err := claims.Get(ctx)
	if err != nil {
		return weberr.NotAuthorized(errors.New("user not authenticated"))
	}
	if clm.IsAdmin() {
		return nil
	}

	if err := enrollment.Require(ctx, db, clm.UserID, monthID); err != nil {
		if errors.Is(err, enrollment.ErrNotEntitled) {
			return weberr.Forbidden(err)
		}
		return fmt.Errorf("checking enrollment: %w", err)
	}
	return nil
}

func HandleListByMonth(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		monthID := web.Param(r, "month_id")

		mth, err := month.Fetch(ctx, db, monthID)
		if err != nil {
			if errors.Is(err, month.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching month[%s]: %w", monthID, err)
		}

		if err := authorize(ctx, db, mth.ID); err != nil {
			return err
		}

		ms, err := QueryByMonth(ctx, db, mth.ID)
		if err != nil {
			return err
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
			return err
		}

		if err := authorize(ctx, db, m.MonthID); err != nil {
			return err
		}

		return web.Respond(ctx, w, m, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var mn MaterialNew
		if err := web.Decode(w, r, &mn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(mn); err != nil {
			return weberr.Unprocessable(err)
		}

		mth, err := month.Fetch(ctx, db, mn.MonthID)
		if err != nil {
			if errors.Is(err, month.ErrNotFound) {
				return weberr.Unprocessable(err)
			}
			return fmt.Errorf("fetching month[%s]: %w", mn.MonthID, err)
		}

		now := time.Now().UTC()
		m := Material{
			ID:          validate.GenerateID(),
			MonthID:     mth.ID,
			Index:       mn.Index,
			Name:        mn.Name,
			Description: mn.Description,
			Kind:        mn.Kind,
			URL:         mn.URL,
			CreatedAt:   now,
			UpdatedAt:   now,
			Version:     1,
		}

		if err := Create(ctx, db, m); err != nil {
			return err
		}

		return web.Respond(ctx, w, m, http.StatusCreated)
	}
}
