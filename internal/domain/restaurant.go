package domain

import "fmt"

// RestaurantIDWidth is the number of digits in a restaurant identifier.
// Identifiers look like "r0042"; the width is a contract with the storage
// schema and the audit tables, so it must never change silently.
const RestaurantIDWidth = 4

// Restaurant is a row of the ingestion-owned restaurants table. The core only
// reads it.
type Restaurant struct {
	ID        string  `json:"restaurant_id" db:"restaurant_id"`
	Latitude  float64 `json:"latitude"      db:"latitude"`
	Longitude float64 `json:"longitude"     db:"longitude"`
}

// FormatRestaurantID translates a dense similarity-index position into the
// fixed-width identifier used by the restaurants table. An index that does not
// fit the identifier width is an unrepresentable state and fails loudly rather
// than truncating.
func FormatRestaurantID(index int) (string, error) {
	if index < 0 || index > 9999 {
		return "", fmt.Errorf("restaurant index %d outside identifier range [0, 9999]", index)
	}
	return fmt.Sprintf("r%0*d", RestaurantIDWidth, index), nil
}
