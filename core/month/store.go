package month

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/tuition-lms/database"
	"github.com/irsalhamdi/tuition-lms/validate"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrNotFound = errors.New("month not found")

func Create(ctx context.Context, db sqlx.ExtContext, m Month) error {
	const q = `
	INSERT INTO months
		(month_id, batch, name, description, image_url, price, purchasable, created_at, updated_at)
	VALUES
		(:month_id, :batch, :name, :description, :image_url, :price, :purchasable, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, m); err != nil {
		return fmt.Errorf("inserting month: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Month, error) {
	if err := validate.CheckID(id); err != nil {
		return Month{}, ErrNotFound
	}

	in := struct {
		ID string `db:"month_id"`
	}{id}

	const q = `
	SELECT *
	FROM months
	WHERE month_id = :month_id`

	var m Month
	if err := database.NamedQueryStruct(ctx, db, q, in, &m); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Month{}, ErrNotFound
		}
		return Month{}, fmt.Errorf("selecting month[%s]: %w", id, err)
	}
	return m, nil
}

// FetchMany returns the months whose ids are known, keyed by the
// normalized id. Ids that are not uuids are skipped.
func FetchMany(ctx context.Context, db sqlx.ExtContext, ids []string) (map[string]Month, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if nid, err := validate.NormalizeID(id); err == nil {
			valid = append(valid, nid)
		}
	}

	out := make(map[string]Month, len(valid))
	if len(valid) == 0 {
		return out, nil
	}

	in := map[string]interface{}{"ids": pq.Array(valid)}

	const q = `
	SELECT *
	FROM months
	WHERE month_id = ANY(:ids)`

	var ms []Month
	if err := database.NamedQuerySlice(ctx, db, q, in, &ms); err != nil {
		return nil, fmt.Errorf("selecting months: %w", err)
	}

	for _, m := range ms {
		out[m.ID] = m
	}
	return out, nil
}

func Query(ctx context.Context, db sqlx.ExtContext, batch string) ([]Month, error) {
	in := struct {
		Batch string `db:"batch"`
	}{batch}

	const q = `
	SELECT *
	FROM months
	WHERE :batch = '' OR batch = :batch
	ORDER BY batch, created_at`

	var ms []Month
	if err := database.NamedQuerySlice(ctx, db, q, in, &ms); err != nil {
		return nil, fmt.Errorf("selecting months: %w", err)
	}
	return ms, nil
}
