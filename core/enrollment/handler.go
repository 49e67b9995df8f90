package enrollment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/tuition-lms/api/web"
	"github.com/irsalhamdi/tuition-lms/api/weberr"
	"github.com/irsalhamdi/tuition-lms/core/claims"
	"github.com/irsalhamdi/tuition-lms/core/month"
	"github.com/jmoiron/sqlx"
)

// HandleListOwned lists the months the current user has access to.
func HandleListOwned(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		set, err := EntitledMonths(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		ids := set.Slice()
		byID, err := month.FetchMany(ctx, db, ids)
		if err != nil {
			return fmt.Errorf("fetching owned months: %w", err)
		}

		ms := make([]month.Month, 0, len(ids))
		for _, id := range ids {
			if m, ok := byID[id]; ok {
				ms = append(ms, m)
			}
		}

		return web.Respond(ctx, w, ms, http.StatusOK)
	}
}
