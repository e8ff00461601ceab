package usecase

import (
	"context"
	"log/slog"
)

// 注文作成の各ステップの結果をログに残す
type orderWorkflow struct {
	logger  *slog.Logger
	userID  int64
	orderID int64
}

func newOrderWorkflow(logger *slog.Logger, userID int64) *orderWorkflow {
	return &orderWorkflow{logger: logger, userID: userID}
}

func (w *orderWorkflow) step(ctx context.Context, name string, err error, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("step", name),
		slog.Int64("user_id", w.userID),
	}
	if w.orderID > 0 {
		base = append(base, slog.Int64("order_id", w.orderID))
	}
	attrs = append(base, attrs...)

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		w.logger.LogAttrs(ctx, slog.LevelWarn, "order workflow step failed", attrs...)
		return
	}
	w.logger.LogAttrs(ctx, slog.LevelInfo, "order workflow step", attrs...)
}
