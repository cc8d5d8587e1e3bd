package model

import "errors"

// Error kinds surfaced to callers. Concrete errors wrap one of these with %w,
// so presentation code can switch on errors.Is.
var (
	// ErrValidation a caller-supplied field violates an invariant.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound the referenced SKU does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrConstraint duplicate SKU on insert.
	ErrConstraint = errors.New("constraint violation")
	// ErrInsufficientStock sale quantity exceeds available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrImport malformed bulk-import payload or unreadable source.
	ErrImport = errors.New("import failed")
	// ErrStorage underlying store I/O or transaction failure.
	ErrStorage = errors.New("storage failure")
)

// Kinds lists every error kind above.
var Kinds = []error{
	ErrValidation, ErrNotFound, ErrConstraint,
	ErrInsufficientStock, ErrImport, ErrStorage,
}

// IsKind reports whether err wraps one of Kinds.
func IsKind(err error) bool {
	for _, kind := range Kinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
