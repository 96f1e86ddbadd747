package models

import "time"

type Area struct {
	Size float64 `json:"size" binding:"required,gt=0"`
	Unit string  `json:"unit"`
}

type Price struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Type   string  `json:"type" binding:"required,oneof=sale rent"`
}

type Location struct {
	Address string `json:"address"`
	City    string `json:"city"`
}

type PropertyContact struct {
	Phone string `json:"phone"`
}

// PropertyInput is the body of property create and update requests.
type PropertyInput struct {
	Title        string          `json:"title" binding:"required"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description" binding:"required"`
	PropertyType string          `json:"propertyType" binding:"required,oneof=apartment villa office shop warehouse"`
	BHK          string          `json:"bhk" binding:"required"`
	Area         Area            `json:"area"`
	Price        Price           `json:"price"`
	Status       string          `json:"status" binding:"omitempty,oneof=available sold rented"`
	Location     Location        `json:"location"`
	Contact      PropertyContact `json:"contact"`
}

type Property struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	PropertyType string          `json:"propertyType"`
	BHK          string          `json:"bhk"`
	Area         Area            `json:"area"`
	Price        Price           `json:"price"`
	Status       string          `json:"status"`
	Location     Location        `json:"location"`
	Contact      PropertyContact `json:"contact"`
	ViewCount    int64           `json:"viewCount"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Normalize fills the defaults the listing schema declares.
func (in *PropertyInput) Normalize() {
	if in.Area.Unit == "" {
		in.Area.Unit = "sqft"
	}
	if in.Status == "" {
		in.Status = "available"
	}
}
