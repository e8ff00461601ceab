package repository

import (
	"context"

	"ecshop/internal/domain/model"

	"gorm.io/gorm"
)

// 1注文の明細は最大100件なので1バッチで入る
const itemBatchSize = 100

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

// 採番したIDはitemsに書き戻る
func (r *OrderItemGormRepository) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].OrderID = orderID
	}
	return translateError(r.db.WithContext(ctx).CreateInBatches(&items, itemBatchSize).Error)
}

// 登録した順
func (r *OrderItemGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	items := []model.OrderItem{}
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return []model.OrderItem{}, translateError(err)
	}
	return items, nil
}
