package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
	logger    *slog.Logger
	now       func() time.Time
}

func NewAdminOrderUsecase(tx repo.TransactionManager, auditRepo repo.AuditLogRepository, logger *slog.Logger) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, auditRepo: auditRepo, logger: logger, now: time.Now}
}

type AdminUpdateOrderStatusInput struct {
	Status string `json:"status"`

	// 指定された時だけ、現在値と一致しなければ拒否する
	ExpectedStatus string `json:"expected_status"`
}

// 管理者によるステータスの上書き（confirmed / failed のみ）
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(CodeUnauthenticated, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, errNotFound("order")
	}

	newStatus := model.OrderStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if !newStatus.IsTerminal() {
		return OrderOutput{}, NewHTTPError(CodeInvalidTransition, "status must be confirmed or failed")
	}
	expected := model.OrderStatus(strings.ToLower(strings.TrimSpace(in.ExpectedStatus)))

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound("order")
		}
		if err != nil {
			return errDB()
		}

		if expected != "" && o.Status != expected {
			return NewHTTPError(CodeInvalidTransition, "order status is "+string(o.Status)+", expected "+string(expected))
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return errDB()
		}

		// すでに同じなら何もしない
		if o.Status == newStatus {
			out = toOrderOutput(o, items)
			return nil
		}

		before := o.Status
		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errNotFound("order")
			}
			return errDB()
		}

		now := u.now()
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   statusJSON(before),
			AfterJSON:    statusJSON(newStatus),
			CreatedAt:    now,
		}); err != nil {
			return errDB()
		}

		o.Status = newStatus
		o.UpdatedAt = now
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.logger.InfoContext(ctx, "order status overwritten",
		slog.Int64("order_id", orderID),
		slog.Int64("actor_user_id", actorAdminUserID),
		slog.String("status", out.Status),
	)
	return out, nil
}

func (u *AdminOrderUsecase) ListAuditLogs(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Offset < 0 {
		return []model.AuditLog{}, NewHTTPError(CodeMalformed, "invalid skip")
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedFrom.After(*f.CreatedTo) {
		return []model.AuditLog{}, NewHTTPError(CodeMalformed, "from must be before to")
	}

	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return []model.AuditLog{}, errDB()
	}
	return logs, nil
}

func statusJSON(s model.OrderStatus) string {
	b, _ := json.Marshal(map[string]string{"status": string(s)})
	return string(b)
}
