package shopify

import (
	"errors"
	"fmt"
	"strings"
)

// Product is a remote catalog entry with its nested variants, as
// returned by GET /products.json.
type Product struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Status   string    `json:"status"`
	Variants []Variant `json:"variants"`
}

type Variant struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"product_id"`
	Title           string `json:"title"`
	SKU             string `json:"sku"`
	InventoryItemID int64  `json:"inventory_item_id"`
}

type InventoryLevel struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	Available       int   `json:"available"`
}

// ErrVariantNotFound signals a SKU with no remote match. Callers record
// it per item and continue the batch.
var ErrVariantNotFound = errors.New("variant not found remotely")

// APIError preserves the HTTP status of a failed remote call so callers
// can classify it (conflict vs not-found vs exhausted throttling).
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("shopify request failed: %s", e.Status)
	}
	return fmt.Sprintf("shopify request failed: %s: %s", e.Status, e.Body)
}

func newAPIError(statusCode int, status string, body []byte) error {
	return &APIError{
		StatusCode: statusCode,
		Status:     status,
		Body:       strings.TrimSpace(string(body)),
	}
}

// IsConflict reports whether err is a remote 409/422, e.g. a SKU update
// refused because the target SKU is already in use.
func IsConflict(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 409 || apiErr.StatusCode == 422
	}
	return false
}
