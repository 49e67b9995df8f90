package test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/irsalhamdi/tuition-lms/core/month"
	"github.com/irsalhamdi/tuition-lms/core/order"
	"github.com/irsalhamdi/tuition-lms/validate"
)

type orderTest struct {
	*TestEnv
}

func TestOrder(t *testing.T) {
	env, err := NewTestEnv(t, "order_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ot := &orderTest{env}

	jan := ot.createMonth(t, "January", 1500, true)
	feb := ot.createMonth(t, "February", 2000, true)
	closed := ot.createMonth(t, "December", 1000, false)

	ot.createOrderUnauthenticated(t, jan)

	ot.login(t, ot.UserEmail, ot.UserPass)

	first := ot.createOrderOK(t, order.MethodPayhere, jan, feb)
	ot.createOrderInvalid(t, jan, closed)
	second := ot.createOrderOK(t, order.MethodBankTransfer, feb)

	ot.listOrdersOK(t, []order.Order{second, first})
	ot.showOrderOK(t, first)

	ot.logout(t)

	ot.login(t, ot.OtherEmail, ot.OtherPass)
	ot.call(t, http.MethodGet, "/orders/"+first.ID, nil, http.StatusNotFound, nil)
	ot.listOrdersOK(t, []order.Order{})
	ot.call(t, http.MethodGet, "/admin/orders", nil, http.StatusForbidden, nil)
	ot.logout(t)

	ot.login(t, ot.AdminEmail, ot.AdminPass)
	ot.queryOrdersOK(t, "pending", []order.Order{second, first})
	ot.queryOrdersOK(t, "completed", []order.Order{})
	ot.call(t, http.MethodGet, "/admin/orders?status=paid", nil, http.StatusBadRequest, nil)
	ot.showOrderOK(t, first)
	ot.logout(t)
}

// TestOrderMonthIDCase orders a month by its id in upper case. The order
// resolves the month and stores its canonical id.
func TestOrderMonthIDCase(t *testing.T) {
	env, err := NewTestEnv(t, "order_id_case_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ot := &orderTest{env}

	jan := ot.createMonth(t, "January", 1500, true)

	ot.login(t, ot.UserEmail, ot.UserPass)
	defer ot.logout(t)

	on := order.OrderNew{
		Items:         []order.ItemNew{{MonthID: strings.ToUpper(jan.ID)}},
		PaymentMethod: order.MethodPayhere,
	}

	var resp order.OrderResponse
	ot.call(t, http.MethodPost, "/orders", on, http.StatusCreated, &resp)

	want := []order.Item{{MonthID: jan.ID, Name: jan.Name, Price: jan.Price}}
	if diff := cmp.Diff(want, resp.Order.Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if resp.Order.Total != jan.Price {
		t.Fatalf("expected total %d, got %d", jan.Price, resp.Order.Total)
	}
}

func (ot *orderTest) createOrderUnauthenticated(t *testing.T, m month.Month) {
	on := order.OrderNew{
		Items:         []order.ItemNew{{MonthID: m.ID}},
		PaymentMethod: order.MethodPayhere,
	}
	ot.call(t, http.MethodPost, "/orders", on, http.StatusUnauthorized, nil)
}

func (ot *orderTest) createOrderOK(t *testing.T, method order.Method, months ...month.Month) order.Order {
	on := order.OrderNew{PaymentMethod: method}
	for _, m := range months {
		on.Items = append(on.Items, order.ItemNew{MonthID: m.ID})
	}
	if method == order.MethodBankTransfer {
		on.SlipURL = "https://cdn.example.com/slips/1.jpg"
	}

	var resp order.OrderResponse
	ot.call(t, http.MethodPost, "/orders", on, http.StatusCreated, &resp)

	ord := resp.Order
	if !resp.Success {
		t.Fatal("expected success flag")
	}
	if ord.Status != order.Pending {
		t.Fatalf("expected pending order, got %s", ord.Status)
	}
	if ord.BuyerID != ot.UserID {
		t.Fatalf("expected buyer %s, got %s", ot.UserID, ord.BuyerID)
	}

	var total int
	want := make([]order.Item, 0, len(months))
	for _, m := range months {
		want = append(want, order.Item{MonthID: m.ID, Name: m.Name, Price: m.Price})
		total += m.Price
	}

	if diff := cmp.Diff(want, ord.Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if ord.Total != total {
		t.Fatalf("expected total %d, got %d", total, ord.Total)
	}

	if method == order.MethodBankTransfer {
		if len(ord.Payment.Reference) == 0 || ord.Payment.SlipURL == nil {
			t.Fatalf("bank transfer order without reference or slip: %+v", ord.Payment)
		}
	}

	return ord
}

func (ot *orderTest) createOrderInvalid(t *testing.T, open month.Month, closed month.Month) {
	tests := []struct {
		name string
		on   order.OrderNew
	}{
		{"no items", order.OrderNew{PaymentMethod: order.MethodPayhere}},
		{"duplicate month", order.OrderNew{
			Items:         []order.ItemNew{{MonthID: open.ID}, {MonthID: open.ID}},
			PaymentMethod: order.MethodPayhere,
		}},
		{"duplicate month in another case", order.OrderNew{
			Items:         []order.ItemNew{{MonthID: open.ID}, {MonthID: strings.ToUpper(open.ID)}},
			PaymentMethod: order.MethodPayhere,
		}},
		{"unknown month", order.OrderNew{
			Items:         []order.ItemNew{{MonthID: validate.GenerateID()}},
			PaymentMethod: order.MethodPayhere,
		}},
		{"month not for sale", order.OrderNew{
			Items:         []order.ItemNew{{MonthID: closed.ID}},
			PaymentMethod: order.MethodPayhere,
		}},
		{"unknown method", order.OrderNew{
			Items:         []order.ItemNew{{MonthID: open.ID}},
			PaymentMethod: "cash",
		}},
		{"slip on gateway order", order.OrderNew{
			Items:         []order.ItemNew{{MonthID: open.ID}},
			PaymentMethod: order.MethodStripe,
			SlipURL:       "https://cdn.example.com/slips/2.jpg",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ot.call(t, http.MethodPost, "/orders", tt.on, http.StatusUnprocessableEntity, nil)
		})
	}
}

var orderCmp = cmpopts.EquateApproxTime(time.Millisecond)

func (ot *orderTest) listOrdersOK(t *testing.T, want []order.Order) {
	var resp order.OrdersResponse
	ot.call(t, http.MethodGet, "/orders", nil, http.StatusOK, &resp)

	if diff := cmp.Diff(want, resp.Orders, cmpopts.EquateEmpty(), orderCmp); diff != "" {
		t.Fatalf("order history mismatch (-want +got):\n%s", diff)
	}
}

func (ot *orderTest) showOrderOK(t *testing.T, want order.Order) {
	var resp order.OrderResponse
	ot.call(t, http.MethodGet, "/orders/"+want.ID, nil, http.StatusOK, &resp)

	if diff := cmp.Diff(want, resp.Order, orderCmp); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func (ot *orderTest) queryOrdersOK(t *testing.T, status string, want []order.Order) {
	var resp order.OrdersResponse
	ot.call(t, http.MethodGet, "/admin/orders?status="+status, nil, http.StatusOK, &resp)

	if diff := cmp.Diff(want, resp.Orders, cmpopts.EquateEmpty(), orderCmp); diff != "" {
		t.Fatalf("admin listing mismatch (-want +got):\n%s", diff)
	}
}
