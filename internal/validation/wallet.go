package validation

import (
	"propwallet/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ValidAmount reports whether d is positive with at most two decimal places.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Truncate(2))
}

// validateMoney runs on the decimal's string form.
func validateMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return ValidAmount(d)
}

// validatePaymentMethod accepts an empty value; pair it with required to forbid that.
func validatePaymentMethod(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return v == "" || models.PaymentMethod(v).Valid()
}
