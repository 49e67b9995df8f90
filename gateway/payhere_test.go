package gateway

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/irsalhamdi/tuition-lms/config"
	"github.com/irsalhamdi/tuition-lms/core/order"
	"github.com/irsalhamdi/tuition-lms/core/user"
)

var payhereCfg = config.Payhere{
	MerchantID:     "1211149",
	MerchantSecret: "secret",
	CheckoutURL:    "https://sandbox.payhere.lk/pay/checkout",
	Currency:       "LKR",
}

func notifyBody(p *PayhereGateway, orderID, amount, status string, tamper bool) []byte {
	sig := p.NotifySignature(orderID, amount, "LKR", status)
	if tamper {
		sig = "0" + sig[1:]
		if sig == p.NotifySignature(orderID, amount, "LKR", status) {
			sig = "1" + sig[1:]
		}
	}

	form := url.Values{}
	form.Set("merchant_id", payhereCfg.MerchantID)
	form.Set("order_id", orderID)
	form.Set("payment_id", "320025071278")
	form.Set("payhere_amount", amount)
	form.Set("payhere_currency", "LKR")
	form.Set("status_code", status)
	form.Set("md5sig", sig)
	return []byte(form.Encode())
}

func TestPayhereSignatureKnownValue(t *testing.T) {
	p := NewPayhere(payhereCfg)

	// md5("secret") = 5EBE2294ECD0E0F08EAB7690D2A6EE69
	want := md5Upper("1211149" + "ORD1" + "1000.00" + "LKR" + "2" + "5EBE2294ECD0E0F08EAB7690D2A6EE69")
	if got := p.NotifySignature("ORD1", "1000.00", "LKR", "2"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	if got := md5Upper("secret"); got != "5EBE2294ECD0E0F08EAB7690D2A6EE69" {
		t.Fatalf("unexpected md5: %s", got)
	}
}

func TestPayhereParseNotification(t *testing.T) {
	p := NewPayhere(payhereCfg)

	tests := []struct {
		name    string
		status  string
		outcome Outcome
	}{
		{"success", "2", Success},
		{"pending", "0", Pending},
		{"cancelled", "-1", Cancelled},
		{"failed", "-2", Failed},
		{"chargeback", "-3", Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := p.ParseNotification(nil, notifyBody(p, "ORD1", "1500.00", tt.status, false))
			if err != nil {
				t.Fatal(err)
			}

			amount := 1500.0
			want := Notification{
				Provider:  Payhere,
				OrderID:   "ORD1",
				Outcome:   tt.outcome,
				Reference: "320025071278",
				Amount:    &amount,
				Currency:  "LKR",
			}

			if diff := cmp.Diff(want, n); diff != "" {
				t.Fatalf("notification mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPayhereRejectsBadNotifications(t *testing.T) {
	p := NewPayhere(payhereCfg)

	other := NewPayhere(config.Payhere{MerchantID: payhereCfg.MerchantID, MerchantSecret: "other"})

	tests := []struct {
		name string
		body []byte
		want error
	}{
		{"tampered signature", notifyBody(p, "ORD1", "1500.00", "2", true), ErrInvalidSignature},
		{"signed with another secret", notifyBody(other, "ORD1", "1500.00", "2", false), ErrInvalidSignature},
		{"unknown status", notifyBody(p, "ORD1", "1500.00", "7", false), ErrMalformed},
		{"empty body", []byte(""), ErrMalformed},
		{"bad encoding", []byte("%zz"), ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseNotification(nil, tt.body)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPayhereCheckout(t *testing.T) {
	p := NewPayhere(payhereCfg)

	o := order.Order{
		ID:    "ORD1",
		Total: 3000,
		Items: []order.Item{{MonthID: "M1", Name: "January", Price: 1000}, {MonthID: "M2", Name: "February", Price: 2000}},
	}
	buyer := user.User{Name: "Kasun Perera", Email: "kasun@example.com", StudentID: "PPP0001"}

	c, err := p.Checkout(context.Background(), o, buyer)
	if err != nil {
		t.Fatal(err)
	}

	if c.URL != payhereCfg.CheckoutURL || c.Method != "POST" {
		t.Fatalf("unexpected target %s %s", c.Method, c.URL)
	}

	checks := map[string]string{
		"order_id":   "ORD1",
		"amount":     "3000.00",
		"currency":   "LKR",
		"items":      "January, February",
		"first_name": "Kasun",
		"last_name":  "Perera",
		"hash":       p.CheckoutHash("ORD1", "3000.00", "LKR"),
	}
	for k, v := range checks {
		if c.Fields[k] != v {
			t.Errorf("field %s: expected %q, got %q", k, v, c.Fields[k])
		}
	}
}
