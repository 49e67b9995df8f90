// Package gateway talks to the payment providers. Adapters start a checkout
// for a pending order; notifiers turn a provider callback into a
// Notification after checking that the provider really sent it.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/irsalhamdi/tuition-lms/core/order"
	"github.com/irsalhamdi/tuition-lms/core/user"
)

type Provider string

const (
	Payhere Provider = "payhere"
	Stripe  Provider = "stripe"
	Paypal  Provider = "paypal"
	Admin   Provider = "admin"
)

type Outcome string

const (
	Success   Outcome = "success"
	Failed    Outcome = "failed"
	Cancelled Outcome = "cancelled"
	Pending   Outcome = "pending"
)

// Status is the order status a terminal outcome settles to.
func (o Outcome) Status() (order.Status, bool) {
	switch o {
	case Success:
		return order.Completed, true
	case Failed:
		return order.Failed, true
	case Cancelled:
		return order.Cancelled, true
	}
	return "", false
}

var (
	ErrMalformed        = errors.New("malformed notification")
	ErrInvalidSignature = errors.New("invalid notification signature")
	ErrIgnored          = errors.New("notification carries no payment outcome")
	ErrUnknownPayment   = errors.New("payment unknown to the provider")
)

// Notification is a verified statement from a provider about one order.
type Notification struct {
	Provider  Provider
	OrderID   string
	Outcome   Outcome
	Reference string

	// Amount is in major currency units, nil when the provider did not say.
	Amount   *float64
	Currency string
}

// Checkout tells the client how to hand the buyer over to the provider.
// PayHere expects a form POST, the others a redirect.
type Checkout struct {
	Provider  Provider          `json:"provider"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Fields    map[string]string `json:"fields,omitempty"`
	Reference string            `json:"reference,omitempty"`
}

type Adapter interface {
	Checkout(ctx context.Context, o order.Order, buyer user.User) (Checkout, error)
}

type Notifier interface {
	ParseNotification(h http.Header, body []byte) (Notification, error)
}

func itemNames(o order.Order) string {
	names := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		names = append(names, it.Name)
	}
	return strings.Join(names, ", ")
}
