package sequence

import (
	"context"

	"github.com/irsalhamdi/tuition-lms/database"
	"github.com/jmoiron/sqlx"
)

// Postgres keeps counters in the counters table. The upsert creates and
// increments in one statement, so concurrent callers never share a value.
type Postgres struct {
	db sqlx.ExtContext
}

func NewPostgres(db sqlx.ExtContext) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Increment(ctx context.Context, name string) (int64, error) {
	const q = `
	INSERT INTO counters
		(name, seq)
	VALUES
		(:name, 1)
	ON CONFLICT (name) DO UPDATE SET
		seq = counters.seq + 1
	RETURNING name, seq`

	var c Counter
	if err := database.NamedQueryStruct(ctx, p.db, q, Counter{Name: name}, &c); err != nil {
		return 0, err
	}
	return c.Seq, nil
}
