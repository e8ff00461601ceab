// Package validator は各usecaseの入力チェック。
package validator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// 入力が不正
var ErrInvalidInput = errors.New("invalid input")

// 金額の上限（未満）。列の桁数に合わせる
var (
	priceLimit  = decimal.New(1, 10) // numeric(12,2)
	amountLimit = decimal.New(1, 12) // numeric(14,2)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
