package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64           `gorm:"not null;index" json:"order_id"`
	UserID        int64           `gorm:"not null;index" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency      string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	PaymentMethod string          `gorm:"type:varchar(50);not null;default:'credit_card'" json:"payment_method"`
	Status        PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`

	//成功時だけ採番される
	TransactionID *string `gorm:"type:varchar(64);uniqueIndex" json:"transaction_id"`
	FailureReason *string `gorm:"type:varchar(255)" json:"failure_reason"`

	//同じキーなら同じ決済を返す（NULLは重複扱いしない）
	IdempotencyKey *string `gorm:"type:varchar(255);uniqueIndex" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
