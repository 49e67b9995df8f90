package month

import "time"

// Month is the purchasable unit of content access: one month of a class batch.
type Month struct {
	ID          string    `json:"id" db:"month_id"`
	Batch       string    `json:"batch" db:"batch"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	Price       int       `json:"price" db:"price"`
	Purchasable bool      `json:"purchasable" db:"purchasable"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Version     int       `json:"-" db:"version"`
}

type MonthNew struct {
	Batch       string `json:"batch" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Price       int    `json:"price" validate:"gte=0,lte=1000000"`
	ImageURL    string `json:"imageUrl" validate:"required"`
	Purchasable *bool  `json:"purchasable"`
}
