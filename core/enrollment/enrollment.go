// Package enrollment derives which course-months a student may access from
// the student's orders. It is the only place that answers that question;
// content handlers call Require instead of inspecting orders themselves.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/irsalhamdi/tuition-lms/core/order"
	"github.com/jmoiron/sqlx"
)

var ErrNotEntitled = errors.New("month not purchased")

// Set is a set of month ids.
type Set map[string]struct{}

func (s Set) Has(monthID string) bool {
	_, ok := s[monthID]
	return ok
}

// Slice returns the ids in ascending order.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Entitles reports whether the order grants access to its months. Any one
// of the completed status, an admin confirmation or a gateway verification
// is enough.
func Entitles(o order.Order) bool {
	return o.Status == order.Completed || o.Payment.Complete || o.Payment.Verified
}

// Months unions the months of every entitling order.
func Months(orders []order.Order) Set {
	set := make(Set)
	for _, o := range orders {
		if !Entitles(o) {
			continue
		}
		for _, it := range o.Items {
			set[it.MonthID] = struct{}{}
		}
	}
	return set
}

// EntitledMonths recomputes the buyer's months from the order history on
// every call.
func EntitledMonths(ctx context.Context, db sqlx.ExtContext, buyerID string) (Set, error) {
	orders, err := order.FetchByBuyer(ctx, db, buyerID)
	if err != nil {
		return nil, fmt.Errorf("fetching orders of buyer[%s]: %w", buyerID, err)
	}
	return Months(orders), nil
}

// Require returns ErrNotEntitled unless the buyer has paid for the month.
func Require(ctx context.Context, db sqlx.ExtContext, buyerID string, monthID string) error {
	set, err := EntitledMonths(ctx, db, buyerID)
	if err != nil {
		return err
	}
	if !set.Has(monthID) {
		return fmt.Errorf("%w: month[%s] for buyer[%s]", ErrNotEntitled, monthID, buyerID)
	}
	return nil
}
