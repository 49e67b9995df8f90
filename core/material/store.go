package material

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/tuition-lms/database"
	"github.com/irsalhamdi/tuition-lms/validate"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("material not found")

func Create(ctx context.Context, db sqlx.ExtContext, m Material) error {
	const q = `
	INSERT INTO materials
		(material_id, month_id, index, name, description, kind, url, created_at, updated_at)
	VALUES
		(:material_id, :month_id, :index, :name, :description, :kind, :url, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, m); err != nil {
		return fmt.Errorf("inserting material: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Material, error) {
	if err := validate.CheckID(id); err != nil {
		return Material{}, ErrNotFound
	}

	in := struct {
		ID string `db:"material_id"`
	}{id}

	const q = `
	SELECT *
	FROM materials
	WHERE material_id = :material_id`

	var m Material
	if err := database.NamedQueryStruct(ctx, db, q, in, &m); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Material{}, ErrNotFound
		}
		return Material{}, fmt.Errorf("selecting material[%s]: %w", id, err)
	}
	return m, nil
}

// QueryByMonth returns the materials of a month in release order.
func QueryByMonth(ctx context.Context, db sqlx.ExtContext, monthID string) ([]Material, error) {
	if err := validate.CheckID(monthID); err != nil {
		return []Material{}, nil
	}

	in := struct {
		MonthID string `db:"month_id"`
	}{monthID}

	const q = `
	SELECT *
	FROM materials
	WHERE month_id = :month_id
	ORDER BY index`

	var ms []Material
	if err := database.NamedQuerySlice(ctx, db, q, in, &ms); err != nil {
		return nil, fmt.Errorf("selecting materials of month[%s]: %w", monthID, err)
	}
	if ms == nil {
		ms = []Material{}
	}
	return ms, nil
}
