package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/irsalhamdi/tuition-lms/config"
	"github.com/irsalhamdi/tuition-lms/core/order"
	"github.com/irsalhamdi/tuition-lms/core/user"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

type StripeGateway struct {
	api *stripecl.API
	cfg config.Stripe
}

func NewStripe(api *stripecl.API, cfg config.Stripe) *StripeGateway {
	return &StripeGateway{api: api, cfg: cfg}
}

// Checkout opens a Checkout Session bound to the order through its client
// reference.
func (s *StripeGateway) Checkout(ctx context.Context, o order.Order, buyer user.User) (Checkout, error) {
	li := make([]*stripe.CheckoutSessionLineItemParams, 0, len(o.Items))
	for _, it := range o.Items {
		li = append(li, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),

			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(strings.ToLower(s.cfg.Currency)),
				TaxBehavior: stripe.String("inclusive"),
				UnitAmount:  stripe.Int64(int64(it.Price) * 100),

				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(it.Name),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(o.ID),
		CustomerEmail:     stripe.String(buyer.Email),
		LineItems:         li,
	}
	params.Context = ctx
	params.AddMetadata("order_id", o.ID)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return Checkout{}, fmt.Errorf("creating stripe session for order[%s]: %w", o.ID, err)
	}

	return Checkout{
		Provider:  Stripe,
		URL:       sess.URL,
		Method:    http.MethodGet,
		Reference: sess.ID,
	}, nil
}

// ParseNotification verifies a webhook event and maps the checkout session
// events onto outcomes. Other event types yield ErrIgnored.
func (s *StripeGateway) ParseNotification(h http.Header, body []byte) (Notification, error) {
	sig := h.Get("Stripe-Signature")
	if sig == "" {
		return Notification{}, fmt.Errorf("%w: stripe event is not signed", ErrInvalidSignature)
	}

	event, err := webhook.ConstructEvent(body, sig, s.cfg.WebhookSecret)
	if err != nil {
		return Notification{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var outcome Outcome
	switch event.Type {
	case "checkout.session.completed":
		outcome = Success
	case "checkout.session.async_payment_succeeded":
		outcome = Success
	case "checkout.session.async_payment_failed":
		outcome = Failed
	case "checkout.session.expired":
		outcome = Cancelled
	default:
		return Notification{}, fmt.Errorf("%w: event type %s", ErrIgnored, event.Type)
	}

	if event.Data == nil {
		return Notification{}, fmt.Errorf("%w: event[%s] has no data", ErrMalformed, event.ID)
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return Notification{}, fmt.Errorf("%w: decoding session: %v", ErrMalformed, err)
	}

	if session.Mode != "" && session.Mode != stripe.CheckoutSessionModePayment {
		return Notification{}, fmt.Errorf("%w: session mode %s", ErrIgnored, session.Mode)
	}

	if session.ClientReferenceID == "" || session.ID == "" {
		return Notification{}, fmt.Errorf("%w: session[%s] carries no order reference", ErrMalformed, session.ID)
	}

	// A delayed payment method completes the session unpaid and settles later.
	if event.Type == "checkout.session.completed" && session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		outcome = Pending
	}

	n := Notification{
		Provider:  Stripe,
		OrderID:   session.ClientReferenceID,
		Outcome:   outcome,
		Reference: session.ID,
		Currency:  string(session.Currency),
	}
	if session.AmountTotal > 0 {
		v := float64(session.AmountTotal) / 100
		n.Amount = &v
	}

	return n, nil
}
