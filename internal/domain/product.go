package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the result of a successful parsing task. SourceURL links it
// back to the task by value.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	PublicationDate time.Time       `json:"publication_date"`
	SourceURL       string          `json:"source_url"`
}

// EnrichmentInfo is the optional data returned by the external product info service.
type EnrichmentInfo struct {
	Category string   `json:"category"`
	Currency string   `json:"currency"`
	Rating   *float64 `json:"rating"`
}
