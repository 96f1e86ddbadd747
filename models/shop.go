package models

import "time"

type ShopContact struct {
	Phone string `json:"phone"`
	Email string `json:"email" binding:"omitempty,email"`
}

// ShopInput is the body of shop create and update requests.
type ShopInput struct {
	Name        string      `json:"name" binding:"required"`
	Slug        string      `json:"slug"`
	Category    string      `json:"category"`
	Floor       string      `json:"floor"`
	Description string      `json:"description"`
	Amenities   []string    `json:"amenities"`
	Keywords    []string    `json:"keywords"`
	Images      []string    `json:"images"`
	Contact     ShopContact `json:"contact"`
	Status      string      `json:"status" binding:"omitempty,oneof=open closed coming_soon"`
}

type Shop struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Category    string      `json:"category"`
	Floor       string      `json:"floor"`
	Description string      `json:"description"`
	Amenities   []string    `json:"amenities"`
	Keywords    []string    `json:"keywords"`
	Images      []string    `json:"images"`
	Contact     ShopContact `json:"contact"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func (in *ShopInput) Normalize() {
	if in.Status == "" {
		in.Status = "open"
	}
	if in.Amenities == nil {
		in.Amenities = []string{}
	}
	if in.Keywords == nil {
		in.Keywords = []string{}
	}
	if in.Images == nil {
		in.Images = []string{}
	}
}
