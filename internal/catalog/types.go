package catalog

import (
	"strings"
	"time"
)

// Sentinel values stored in place of fields a listing did not provide
const (
	NoID    = "No ID found"
	NoTitle = "No title found"
	NoPrice = "No price found"
	NoImage = "No image found"
	NoBrand = "No brand found"
	NoLink  = "No link found"
)

// StatusNotFound marks a stored product missing from the latest monitoring pass
const StatusNotFound = "not_found"

// Product represents one catalog entry for a site
type Product struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Price        string    `json:"price"`
	Image        string    `json:"image"`
	Brand        string    `json:"brand,omitempty"`
	Link         string    `json:"link,omitempty"`
	LastUpdated  time.Time `json:"lastUpdated"`
	PriceChanged *bool     `json:"priceChanged,omitempty"`
	Status       string    `json:"status,omitempty"`
}

// HasID reports whether the product carries a real identifier
func (p Product) HasID() bool {
	id := strings.TrimSpace(p.ID)
	return id != "" && id != NoID
}

// HasPrice reports whether the product carries a real price
func (p Product) HasPrice() bool {
	price := strings.TrimSpace(p.Price)
	return price != "" && price != NoPrice
}

// PriceEntry is one observation in a product's price time series
type PriceEntry struct {
	Price         string    `json:"price"`
	Timestamp     time.Time `json:"timestamp"`
	IsInitial     bool      `json:"isInitial,omitempty"`
	PreviousPrice string    `json:"previousPrice,omitempty"`
}

// ProductHistory holds the price series of one product
type ProductHistory struct {
	Title  string       `json:"title"`
	Prices []PriceEntry `json:"prices"`
}
