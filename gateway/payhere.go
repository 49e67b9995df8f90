package gateway

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/irsalhamdi/tuition-lms/config"
	"github.com/irsalhamdi/tuition-lms/core/order"
	"github.com/irsalhamdi/tuition-lms/core/user"
)

// PayHere status codes as sent in the notify callback.
const (
	payhereSuccess    = "2"
	payherePending    = "0"
	payhereCancelled  = "-1"
	payhereFailed     = "-2"
	payhereChargeback = "-3"
)

type PayhereGateway struct {
	cfg config.Payhere
}

func NewPayhere(cfg config.Payhere) *PayhereGateway {
	return &PayhereGateway{cfg: cfg}
}

func md5Upper(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func payhereAmount(total int) string {
	return strconv.FormatFloat(float64(total), 'f', 2, 64)
}

// CheckoutHash signs the checkout form so PayHere accepts it.
func (p *PayhereGateway) CheckoutHash(orderID string, amount string, currency string) string {
	return md5Upper(p.cfg.MerchantID + orderID + amount + currency + md5Upper(p.cfg.MerchantSecret))
}

// NotifySignature is the md5sig PayHere attaches to a notification.
func (p *PayhereGateway) NotifySignature(orderID, amount, currency, statusCode string) string {
	return md5Upper(p.cfg.MerchantID + orderID + amount + currency + statusCode + md5Upper(p.cfg.MerchantSecret))
}

func (p *PayhereGateway) Checkout(ctx context.Context, o order.Order, buyer user.User) (Checkout, error) {
	amount := payhereAmount(o.Total)

	first, last := buyer.Name, ""
	if i := strings.IndexByte(buyer.Name, ' '); i > 0 {
		first, last = buyer.Name[:i], strings.TrimSpace(buyer.Name[i+1:])
	}

	fields := map[string]string{
		"merchant_id": p.cfg.MerchantID,
		"return_url":  p.cfg.ReturnURL,
		"cancel_url":  p.cfg.CancelURL,
		"notify_url":  p.cfg.NotifyURL,
		"order_id":    o.ID,
		"items":       itemNames(o),
		"currency":    p.cfg.Currency,
		"amount":      amount,
		"first_name":  first,
		"last_name":   last,
		"email":       buyer.Email,
		"phone":       "",
		"address":     "",
		"city":        "",
		"country":     "Sri Lanka",
		"custom_1":    buyer.StudentID,
		"hash":        p.CheckoutHash(o.ID, amount, p.cfg.Currency),
	}

	return Checkout{
		Provider: Payhere,
		URL:      p.cfg.CheckoutURL,
		Method:   http.MethodPost,
		Fields:   fields,
	}, nil
}

// ParseNotification reads the form encoded notify callback.
func (p *PayhereGateway) ParseNotification(h http.Header, body []byte) (Notification, error) {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return Notification{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var (
		merchantID = form.Get("merchant_id")
		orderID    = form.Get("order_id")
		paymentID  = form.Get("payment_id")
		amount     = form.Get("payhere_amount")
		currency   = form.Get("payhere_currency")
		statusCode = form.Get("status_code")
		sig        = form.Get("md5sig")
	)

	if orderID == "" || statusCode == "" || sig == "" || amount == "" {
		return Notification{}, fmt.Errorf("%w: missing fields", ErrMalformed)
	}

	if merchantID != p.cfg.MerchantID {
		return Notification{}, fmt.Errorf("%w: unknown merchant[%s]", ErrInvalidSignature, merchantID)
	}

	want := p.NotifySignature(orderID, amount, currency, statusCode)
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToUpper(sig))) != 1 {
		return Notification{}, fmt.Errorf("%w: order[%s]", ErrInvalidSignature, orderID)
	}

	n := Notification{
		Provider:  Payhere,
		OrderID:   orderID,
		Reference: paymentID,
		Currency:  currency,
	}

	switch statusCode {
	case payhereSuccess:
		n.Outcome = Success
	case payherePending:
		n.Outcome = Pending
	case payhereCancelled:
		n.Outcome = Cancelled
	case payhereFailed, payhereChargeback:
		n.Outcome = Failed
	default:
		return Notification{}, fmt.Errorf("%w: unknown status code %q", ErrMalformed, statusCode)
	}

	v, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return Notification{}, fmt.Errorf("%w: amount %q", ErrMalformed, amount)
	}
	n.Amount = &v

	return n, nil
}
