package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/tuition-lms/api/web"
	"github.com/plutov/paypal/v4"
	mock "github.com/stripe/stripe-mock/param"
)

type mockPaypal struct {
	mu       sync.Mutex
	seq      int
	orders   map[string]string
	totals   map[string]string
	captures map[string]int
}

func newMockPaypal() *mockPaypal {
	return &mockPaypal{orders: make(map[string]string), totals: make(map[string]string), captures: make(map[string]int)}
}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := map[string]any{
			"access_token": "A21AAtest",
			"token_type":   "Bearer",
			"expires_in":   32400,
		}
		web.Respond(context.Background(), w, tok, 200)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if len(pu.Units) != 1 || pu.Units[0].ReferenceID == "" || pu.Units[0].Amount == nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		m.mu.Lock()
		m.seq++
		id := fmt.Sprintf("PAYPAL-%04d", m.seq)
		m.orders[id] = pu.Units[0].ReferenceID
		m.totals[id] = pu.Units[0].Amount.Value
		m.mu.Unlock()

		ord := map[string]any{
			"id":     id,
			"status": "CREATED",
			"links": []map[string]string{
				{"href": "https://www.sandbox.paypal.com/checkoutnow?token=" + id, "rel": "approve", "method": "GET"},
			},
		}
		web.Respond(context.Background(), w, ord, 201)
	})

	show := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		m.mu.Lock()
		ref, ok := m.orders[id]
		m.mu.Unlock()

		if !ok {
			e := map[string]any{"name": "RESOURCE_NOT_FOUND", "message": "order not found"}
			web.Respond(context.Background(), w, e, 404)
			return
		}

		ord := map[string]any{
			"id":     id,
			"status": "APPROVED",
			"purchase_units": []map[string]any{
				{"reference_id": ref},
			},
		}
		web.Respond(context.Background(), w, ord, 200)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		m.mu.Lock()
		ref, ok := m.orders[id]
		if ok {
			m.captures[id]++
		}
		m.mu.Unlock()

		if !ok {
			e := map[string]any{"name": "RESOURCE_NOT_FOUND", "message": "order not found"}
			web.Respond(context.Background(), w, e, 404)
			return
		}

		resp := map[string]any{
			"id":     id,
			"status": "COMPLETED",
			"purchase_units": []map[string]any{
				{"reference_id": ref},
			},
		}
		web.Respond(context.Background(), w, resp, 201)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}", show).Methods("GET")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}

func (m *mockPaypal) captured(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captures[id]
}

type mockStripe struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]int
}

func newMockStripe() *mockStripe {
	return &mockStripe{sessions: make(map[string]int)}
}

func (m *mockStripe) handle() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, err := mock.ParseParams(r)
		if err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		ref, _ := params["client_reference_id"].(string)
		lines, ok := params["line_items"].(map[string]any)
		if ref == "" || !ok {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		tot := 0
		for _, li := range lines {
			it := li.(map[string]any)
			pd := it["price_data"].(map[string]any)

			var amount int
			if _, err := fmt.Sscan(pd["unit_amount"].(string), &amount); err != nil {
				web.Respond(context.Background(), w, nil, 400)
				return
			}
			tot += amount
		}

		m.mu.Lock()
		m.seq++
		id := fmt.Sprintf("cs_test_%04d", m.seq)
		m.sessions[ref] = tot
		m.mu.Unlock()

		sess := map[string]any{
			"id":                  id,
			"object":              "checkout.session",
			"client_reference_id": ref,
			"amount_total":        tot,
			"url":                 "https://checkout.stripe.com/c/pay/" + id,
		}
		web.Respond(context.Background(), w, sess, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/checkout/sessions", checkout).Methods("POST")
	return r
}

// payhereForm builds a notify callback for the order signed with the
// environment's merchant secret.
func (env *TestEnv) payhereForm(orderID string, amount string, status string, paymentID string) url.Values {
	form := url.Values{}
	form.Set("merchant_id", "1211149")
	form.Set("order_id", orderID)
	form.Set("payment_id", paymentID)
	form.Set("payhere_amount", amount)
	form.Set("payhere_currency", "LKR")
	form.Set("status_code", status)
	form.Set("md5sig", env.Payhere.NotifySignature(orderID, amount, "LKR", status))
	return form
}

func (env *TestEnv) notifyPayhere(form url.Values) (int, error) {
	w, err := env.Client().PostForm(env.URL+"/payments/payhere/notify", form)
	if err != nil {
		return 0, err
	}
	defer w.Body.Close()
	return w.StatusCode, nil
}
