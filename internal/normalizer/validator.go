package normalizer

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"bulliondeals/internal/models"
)

// Validation errors. Each one drops the candidate before it reaches the catalog.
var (
	ErrMissingWeight     = errors.New("weight not found in name")
	ErrNonPositiveWeight = errors.New("weight must be positive")
	ErrMissingBuyPrice   = errors.New("buy price could not be parsed")
	ErrNonPositivePrice  = errors.New("buy price must be positive")
	ErrInvalidProduct    = errors.New("product failed validation")
)

// Validator checks built products against the catalog invariants.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate returns ErrInvalidProduct (wrapped with the failing fields) when p breaks an invariant.
func (v *Validator) Validate(p *models.Product) error {
	if err := v.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, err)
	}

	if !p.BuyPrice.Valid {
		return ErrMissingBuyPrice
	}

	if !p.BuyPrice.Decimal.IsPositive() {
		return ErrNonPositivePrice
	}

	return nil
}

// RejectReason maps a validation error to a short metrics label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingWeight):
		return "missing_weight"
	case errors.Is(err, ErrNonPositiveWeight):
		return "non_positive_weight"
	case errors.Is(err, ErrMissingBuyPrice):
		return "missing_price"
	case errors.Is(err, ErrNonPositivePrice):
		return "non_positive_price"
	case errors.Is(err, ErrInvalidProduct):
		return "invalid_product"
	}

	return "other"
}
