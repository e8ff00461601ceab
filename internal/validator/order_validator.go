package validator

import (
	"unicode/utf8"

	"ecshop/internal/usecase"

	"github.com/shopspring/decimal"
)

const (
	productNameMax = 200
	maxOrderItems  = 100
	maxQuantity    = 1_000_000
)

type orderValidator struct{}

func NewOrderValidator() usecase.OrderValidator {
	return &orderValidator{}
}

func (v *orderValidator) ValidateItems(items []usecase.OrderItemInput) error {
	if len(items) == 0 {
		return invalid("items must not be empty")
	}
	if len(items) > maxOrderItems {
		return invalid("too many items (max %d)", maxOrderItems)
	}

	total := decimal.Zero
	for i, it := range items {
		n := utf8.RuneCountInString(it.Name)
		if n == 0 || n > productNameMax {
			return invalid("items[%d].name must be 1-%d characters", i, productNameMax)
		}
		if it.Quantity <= 0 {
			return invalid("items[%d].quantity must be greater than 0", i)
		}
		if it.Quantity > maxQuantity {
			return invalid("items[%d].quantity must be at most %d", i, maxQuantity)
		}
		if it.Price.IsNegative() {
			return invalid("items[%d].price must not be negative", i)
		}
		if !hasCents(it.Price) {
			return invalid("items[%d].price must have at most 2 decimal places", i)
		}
		if it.Price.GreaterThanOrEqual(priceLimit) {
			return invalid("items[%d].price must be less than %s", i, priceLimit.String())
		}
		total = total.Add(it.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}
	if total.GreaterThanOrEqual(amountLimit) {
		return invalid("order total must be less than %s", amountLimit.String())
	}
	return nil
}
