package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

// 決済結果
type PaymentResolution struct {
	Status        model.PaymentStatus
	TransactionID *string
	FailureReason *string
}

type PaymentRepository interface {
	//pendingで作成。idempotency_keyの重複はErrDuplicate
	Create(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, paymentID int64) (model.Payment, error)

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Payment, bool, error)

	ListByUserID(ctx context.Context, userID int64, offset int, limit int) ([]model.Payment, error)

	// pending -> completed / failed。pendingでなければErrStateChanged
	Resolve(ctx context.Context, paymentID int64, r PaymentResolution) error

	// completed -> refunded。completedでなければErrStateChanged
	MarkRefunded(ctx context.Context, paymentID int64) error
}
