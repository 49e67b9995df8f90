package material

import "time"

const (
	KindVideo    = "video"
	KindDocument = "document"
	KindLink     = "link"
)

// Material is a piece of content released inside a month.
type Material struct {
	ID          string    `json:"id" db:"material_id"`
	MonthID     string    `json:"monthId" db:"month_id"`
	Index       int       `json:"index" db:"index"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Kind        string    `json:"kind" db:"kind"`
	URL         string    `json:"url" db:"url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Version     int       `json:"-" db:"version"`
}

type MaterialNew struct {
	MonthID     string `json:"monthId" validate:"required,id"`
	Index       int    `json:"index" validate:"gte=0"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Kind        string `json:"kind" validate:"required,oneof=video document link"`
	URL         string `json:"url" validate:"required,url"`
}
