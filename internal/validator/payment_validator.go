package validator

import (
	"unicode/utf8"

	"ecshop/internal/usecase"

	"github.com/shopspring/decimal"
)

const (
	paymentMethodMax = 50
	idempotencyMax   = 255
)

type paymentValidator struct{}

func NewPaymentValidator() usecase.PaymentValidator {
	return &paymentValidator{}
}

// 金額の正負はusecase側（INVALID_AMOUNT）で見る
func (v *paymentValidator) ValidateCharge(in usecase.ChargeInput) error {
	if in.OrderID <= 0 {
		return invalid("order_id is required")
	}
	if !hasCents(in.Amount) {
		return invalid("amount must have at most 2 decimal places")
	}
	if in.Amount.GreaterThanOrEqual(amountLimit) {
		return invalid("amount must be less than %s", amountLimit.String())
	}
	if !isCurrency(in.Currency) {
		return invalid("currency must be a 3-letter code")
	}
	n := utf8.RuneCountInString(in.PaymentMethod)
	if n == 0 || n > paymentMethodMax {
		return invalid("payment_method must be 1-%d characters", paymentMethodMax)
	}
	if len(in.IdempotencyKey) > idempotencyMax {
		return invalid("idempotency key too long")
	}
	return nil
}

func isCurrency(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// numeric(.., 2) に入るか
func hasCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
