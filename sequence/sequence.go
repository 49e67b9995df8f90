// Package sequence issues human-readable sequential identifiers, such as
// student ids, from a counter that lives outside the process.
package sequence

import (
	"context"
	"errors"
	"fmt"
)

// StudentID is the counter used when creating student accounts.
const StudentID = "studentId"

// ErrStorage is returned when the counter could not be incremented. Callers
// must fail the operation that needed the id.
var ErrStorage = errors.New("sequence storage unavailable")

// Counter is the persisted state of a sequence.
type Counter struct {
	Name string `db:"name"`
	Seq  int64  `db:"seq"`
}

// Incrementer atomically increments the named counter and returns its new
// value. A missing counter starts at 1.
type Incrementer interface {
	Increment(ctx context.Context, name string) (int64, error)
}

type Issuer struct {
	inc    Incrementer
	prefix string
	width  int
}

func NewIssuer(inc Incrementer, prefix string, width int) *Issuer {
	return &Issuer{inc: inc, prefix: prefix, width: width}
}

// Next returns the next formatted id of the named sequence.
func (i *Issuer) Next(ctx context.Context, name string) (string, error) {
	n, err := i.inc.Increment(ctx, name)
	if err != nil {
		return "", fmt.Errorf("%w: incrementing %q: %w", ErrStorage, name, err)
	}
	if n < 1 {
		return "", fmt.Errorf("%w: counter %q returned %d", ErrStorage, name, n)
	}
	return Format(i.prefix, i.width, n), nil
}

// Format zero pads n to width digits behind prefix. Values wider than width
// are kept whole.
func Format(prefix string, width int, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}
