package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

// 確定時に一緒に書く値
type OrderFinalization struct {
	Status        model.OrderStatus
	PaymentID     *int64
	FailureReason *string
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, offset int, limit int) ([]model.Order, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	// pending の注文だけを終端ステータスにする。pendingでなければErrStateChanged
	Finalize(ctx context.Context, orderID int64, f OrderFinalization) error

	// 管理者用の上書き
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
}
