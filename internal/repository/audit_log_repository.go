package repository

import (
	"context"
	"time"

	"ecshop/internal/domain/model"
)

const (
	AuditLogDefaultLimit = 50
	AuditLogMaxLimit     = 200
)

// 管理者操作ログの絞り込み。nilの条件は見ない
type AuditLogFilter struct {
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// 範囲外のlimitは既定値、負のoffsetは0に寄せる（どのドライバでも同じ件数になる）
func (f AuditLogFilter) Window() (offset int, limit int) {
	limit = f.Limit
	if limit <= 0 || limit > AuditLogMaxLimit {
		limit = AuditLogDefaultLimit
	}
	return max(f.Offset, 0), limit
}

// 注文ステータス上書きの記録。書き込みは上書きと同じTxで行う
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error

	// 新しい順
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
