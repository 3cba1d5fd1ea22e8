package nn

import "errors"

// Errors returned when restoring parameters.
var (
	ErrMissingParameter = errors.New("missing parameter in state dict")
	ErrShapeMismatch    = errors.New("parameter shape mismatch")
	ErrDTypeMismatch    = errors.New("parameter dtype mismatch")
)
