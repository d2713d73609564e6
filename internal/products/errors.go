package products

import "errors"

// Repository errors.
var (
	ErrProductNotFound = errors.New("product not found")

	// ErrDuplicateSerial is returned when a serial number collides with any
	// stored product, soft-deleted ones included: the uniqueness constraint
	// is global, so a deleted product's serial blocks reuse until purged.
	ErrDuplicateSerial = errors.New("product with this serial number already exists")
)
