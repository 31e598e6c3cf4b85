// Package moneypkg provides common money related functionality for apps.
package moneypkg

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// maxAbs is the exclusive bound of NUMERIC(18,2) values.
var maxAbs = decimal.New(1, 16)

// InRange reports whether d fits the NUMERIC(18,2) money columns.
func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThan(maxAbs)
}

// Parse converts s into a decimal fitting the ledger's money representation.
func Parse(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}

	if !domain.IsMoney(d) || !InRange(d) {
		return decimal.Decimal{}, false
	}

	return d, true
}

// ValidMoney validates whether the field holds a decimal number with at most
// two fractional digits. The sign is not checked.
var ValidMoney validator.Func = func(fl validator.FieldLevel) bool {
	_, ok := Parse(fl.Field().String())
	return ok
}
