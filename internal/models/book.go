package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Book struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Title       string
	Author      string
	Genre       string
	Description string
	ImageURL    string
	ViewCount   int64

	// Derived from reviews, zero when the book has none
	AverageRating decimal.Decimal
}
