package models

import "time"

type MenuItem struct {
	ID          string
	ClientID    string
	Name        string
	Description string
	Price       float64
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
