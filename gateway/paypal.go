package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/irsalhamdi/tuition-lms/config"
	"github.com/irsalhamdi/tuition-lms/core/order"
	"github.com/irsalhamdi/tuition-lms/core/user"
	"github.com/plutov/paypal/v4"
)

type PaypalGateway struct {
	client *paypal.Client
	cfg    config.Paypal
}

func NewPaypal(client *paypal.Client, cfg config.Paypal) *PaypalGateway {
	return &PaypalGateway{client: client, cfg: cfg}
}

// Checkout creates a PayPal order whose purchase unit references ours.
func (p *PaypalGateway) Checkout(ctx context.Context, o order.Order, buyer user.User) (Checkout, error) {
	items := make([]paypal.Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, paypal.Item{
			Quantity: "1",
			Name:     it.Name,

			UnitAmount: &paypal.Money{
				Currency: p.cfg.Currency,
				Value:    strconv.Itoa(it.Price),
			},
		})
	}

	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: o.ID,
		Items:       items,

		Amount: &paypal.PurchaseUnitAmount{
			Currency: p.cfg.Currency,
			Value:    strconv.Itoa(o.Total),

			Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{
				Currency: p.cfg.Currency,
				Value:    strconv.Itoa(o.Total),
			}},
		},
	}}

	app := &paypal.ApplicationContext{
		ReturnURL: p.cfg.ReturnURL,
		CancelURL: p.cfg.CancelURL,
	}

	ord, err := p.client.CreateOrder(ctx, "CAPTURE", units, nil, app)
	if err != nil {
		return Checkout{}, fmt.Errorf("creating paypal order for order[%s]: %w", o.ID, err)
	}

	var approve string
	for _, l := range ord.Links {
		if l.Rel == "approve" {
			approve = l.Href
		}
	}

	return Checkout{
		Provider:  Paypal,
		URL:       approve,
		Method:    http.MethodGet,
		Reference: ord.ID,
	}, nil
}

// OrderReference returns the id of our order that a PayPal order was
// created for, without capturing it.
func (p *PaypalGateway) OrderReference(ctx context.Context, paypalOrderID string) (string, error) {
	if paypalOrderID == "" || strings.ContainsAny(paypalOrderID, "/?#%") {
		return "", fmt.Errorf("%w: paypal order id %q", ErrMalformed, paypalOrderID)
	}

	po, err := p.client.GetOrder(ctx, paypalOrderID)
	if err != nil {
		var perr *paypal.ErrorResponse
		if errors.As(err, &perr) && perr.Response != nil && perr.Response.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: paypal order[%s]", ErrUnknownPayment, paypalOrderID)
		}
		return "", fmt.Errorf("fetching paypal order[%s]: %w", paypalOrderID, err)
	}

	if len(po.PurchaseUnits) == 0 || po.PurchaseUnits[0].ReferenceID == "" {
		return "", fmt.Errorf("%w: paypal order[%s] carries no order reference", ErrMalformed, paypalOrderID)
	}
	return po.PurchaseUnits[0].ReferenceID, nil
}

// Capture captures an approved PayPal order and reports the result for the
// order it references.
func (p *PaypalGateway) Capture(ctx context.Context, paypalOrderID string) (Notification, error) {
	resp, err := p.client.CaptureOrder(ctx, paypalOrderID, paypal.CaptureOrderRequest{})
	if err != nil {
		var perr *paypal.ErrorResponse
		if errors.As(err, &perr) && perr.Response != nil && perr.Response.StatusCode == http.StatusUnprocessableEntity {
			return Notification{}, fmt.Errorf("%w: paypal refused capture of order[%s]: %v", ErrMalformed, paypalOrderID, err)
		}
		return Notification{}, fmt.Errorf("capturing paypal order[%s]: %w", paypalOrderID, err)
	}

	if len(resp.PurchaseUnits) == 0 || resp.PurchaseUnits[0].ReferenceID == "" {
		return Notification{}, fmt.Errorf("%w: paypal order[%s] carries no order reference", ErrMalformed, paypalOrderID)
	}

	n := Notification{
		Provider:  Paypal,
		OrderID:   resp.PurchaseUnits[0].ReferenceID,
		Reference: paypalOrderID,
	}

	switch resp.Status {
	case "COMPLETED":
		n.Outcome = Success
	case "VOIDED":
		n.Outcome = Cancelled
	default:
		n.Outcome = Pending
	}

	return n, nil
}
