package upstream

import (
	"context"
	"net/http"

	"ecshop/internal/domain/model"

	"github.com/shopspring/decimal"
)

const IdempotencyKeyHeader = "X-Idempotency-Key"

type ChargeRequest struct {
	OrderID       int64           `json:"order_id"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
}

type PaymentClient struct {
	baseClient
}

func NewPaymentClient(cfg Config) *PaymentClient {
	return &PaymentClient{baseClient: newBaseClient(cfg)}
}

// POST /。決済の成否はエラーではなく返ってきたPaymentのStatusで見る
func (c *PaymentClient) Charge(ctx context.Context, in ChargeRequest, idempotencyKey string) (model.Payment, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set(IdempotencyKeyHeader, idempotencyKey)
	}

	var p model.Payment
	if err := c.do(ctx, http.MethodPost, "/", in, header, &p); err != nil {
		return model.Payment{}, err
	}
	return p, nil
}
