package repository

import (
	"context"
	"errors"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"

	"gorm.io/gorm"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

func (r *PaymentGormRepository) Create(ctx context.Context, p *model.Payment) error {
	return translateError(r.db.WithContext(ctx).Create(p).Error)
}

func (r *PaymentGormRepository) FindByID(ctx context.Context, paymentID int64) (model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", paymentID).First(&p).Error; err != nil {
		return model.Payment{}, translateError(err)
	}
	return p, nil
}

func (r *PaymentGormRepository) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Payment, bool, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&p).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, false, nil
	}
	if err != nil {
		return model.Payment{}, false, err
	}
	return p, true, nil
}

func (r *PaymentGormRepository) ListByUserID(ctx context.Context, userID int64, offset int, limit int) ([]model.Payment, error) {
	var items []model.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Payment{}, err
	}
	return items, nil
}

func (r *PaymentGormRepository) Resolve(ctx context.Context, paymentID int64, res repo.PaymentResolution) error {
	return r.transition(ctx, paymentID, model.PaymentStatusPending, map[string]interface{}{
		"status":         res.Status,
		"transaction_id": res.TransactionID,
		"failure_reason": res.FailureReason,
	})
}

func (r *PaymentGormRepository) MarkRefunded(ctx context.Context, paymentID int64) error {
	return r.transition(ctx, paymentID, model.PaymentStatusCompleted, map[string]interface{}{
		"status": model.PaymentStatusRefunded,
	})
}

// fromの状態のときだけ更新する（二重返金などを防ぐ）
func (r *PaymentGormRepository) transition(ctx context.Context, paymentID int64, from model.PaymentStatus, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", paymentID, from).
		Updates(values)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Payment{}).Where("id = ?", paymentID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return repo.ErrStateChanged
}
