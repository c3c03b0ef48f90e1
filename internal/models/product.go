package models

// Product is the catalog service's view of a product, as returned by the
// validate_products call. The catalog is the authority for name, price and
// availability; nothing about products is persisted locally.
type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
