package order

import "time"

type Status string

const (
	Pending   Status = "pending"
	Completed Status = "completed"
	Cancelled Status = "cancelled"
	Failed    Status = "failed"
)

// Terminal reports whether no further transition is accepted.
func (s Status) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

type Method string

const (
	MethodPayhere      Method = "payhere"
	MethodStripe       Method = "stripe"
	MethodPaypal       Method = "paypal"
	MethodBankTransfer Method = "bank_transfer"
)

// Payment holds the evidence of payment. Verified is set by a gateway,
// Complete by an administrator; either one is enough.
type Payment struct {
	Reference   string     `json:"reference"`
	Verified    bool       `json:"verified"`
	Complete    bool       `json:"complete"`
	SlipURL     *string    `json:"slipUrl,omitempty"`
	ConfirmedBy *string    `json:"confirmedBy,omitempty"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}

type Order struct {
	ID            string    `json:"id"`
	BuyerID       string    `json:"buyerId"`
	Items         []Item    `json:"items"`
	Total         int       `json:"total"`
	PaymentMethod Method    `json:"paymentMethod"`
	Status        Status    `json:"status"`
	Payment       Payment   `json:"payment"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Item struct {
	MonthID string `json:"monthId"`
	Name    string `json:"name"`
	Price   int    `json:"price"`
}

type OrderNew struct {
	Items         []ItemNew `json:"items" validate:"required,min=1,unique=MonthID,dive"`
	PaymentMethod Method    `json:"paymentMethod" validate:"required,oneof=payhere stripe paypal bank_transfer"`
	SlipURL       string    `json:"slipUrl" validate:"omitempty,url"`
}

type ItemNew struct {
	MonthID string `json:"monthId" validate:"required,id"`
}
