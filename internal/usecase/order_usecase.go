package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
	"ecshop/internal/upstream"

	"github.com/shopspring/decimal"
)

type OrderItemInput struct {
	Name     string          `json:"name"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// 旧クライアントのproduct_nameも受ける（nameがあればそちら優先）
func (in *OrderItemInput) UnmarshalJSON(b []byte) error {
	type plain OrderItemInput
	var raw struct {
		plain
		ProductName string `json:"product_name"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*in = OrderItemInput(raw.plain)
	if strings.TrimSpace(in.Name) == "" {
		in.Name = raw.ProductName
	}
	return nil
}

type CreateOrderInput struct {
	Items []OrderItemInput `json:"items"`
}

type OrderValidator interface {
	ValidateItems(items []OrderItemInput) error
}

type OrderItemOutput struct {
	ID          int64           `json:"id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type OrderOutput struct {
	ID            int64             `json:"id"`
	UserID        int64             `json:"user_id"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	Status        string            `json:"status"`
	PaymentID     *int64            `json:"payment_id"`
	FailureReason *string           `json:"failure_reason"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Items         []OrderItemOutput `json:"items"`
}

// 決済呼び出しの方針。Retries=0なら再試行しない
type ChargePolicy struct {
	Retries       int
	Backoff       time.Duration
	Currency      string
	PaymentMethod string
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	items     repo.OrderItemRepository
	users     UserDirectory
	payments  PaymentGateway
	validator OrderValidator
	policy    ChargePolicy
	created   OutcomeCounter
	logger    *slog.Logger

	now   func() time.Time
	sleep func(d time.Duration)
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	users UserDirectory,
	payments PaymentGateway,
	validator OrderValidator,
	policy ChargePolicy,
	created OutcomeCounter,
	logger *slog.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:        tx,
		orders:    orders,
		items:     items,
		users:     users,
		payments:  payments,
		validator: validator,
		policy:    policy,
		created:   counterOrNoop(created),
		logger:    logger,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// ユーザー確認 -> pendingで保存 -> 決済 -> confirmed/failedで確定。
// 返す注文は必ず終端ステータス
func (u *OrderUsecase) Create(ctx context.Context, callerID int64, in CreateOrderInput) (OrderOutput, error) {
	if callerID <= 0 {
		return OrderOutput{}, NewHTTPError(CodeUnauthenticated, "unauthorized")
	}
	for i := range in.Items {
		in.Items[i].Name = strings.TrimSpace(in.Items[i].Name)
	}
	if err := u.validator.ValidateItems(in.Items); err != nil {
		return OrderOutput{}, NewHTTPError(CodeMalformed, err.Error())
	}

	//クライアントが切断しても最後まで進めてpendingを残さない
	ctx = context.WithoutCancel(ctx)
	wf := newOrderWorkflow(u.logger, callerID)

	//ユーザー確認（注文を書く前に必ず終わらせる）
	if _, err := u.users.GetUser(ctx, callerID); err != nil {
		wf.step(ctx, "verify_user", err)
		var se *upstream.StatusError
		switch {
		case errors.Is(err, upstream.ErrNotFound):
			return OrderOutput{}, NewHTTPError(CodeInvalidReference, "user does not exist")
		case errors.Is(err, upstream.ErrRejected):
			//つながってはいる（認証や入力の食い違い）
			msg := "user service rejected the request"
			if errors.As(err, &se) {
				msg = fmt.Sprintf("%s (status %d)", msg, se.StatusCode)
			}
			return OrderOutput{}, NewHTTPError(CodeUpstreamRejected, msg)
		default:
			return OrderOutput{}, NewHTTPError(CodeUpstreamUnavailable, "user service unavailable")
		}
	}
	wf.step(ctx, "verify_user", nil)

	items := make([]model.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, model.OrderItem{
			ProductName: it.Name,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}

	now := u.now()
	order := model.Order{
		UserID:      callerID,
		TotalAmount: model.TotalOf(items),
		Status:      model.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	//注文と明細はまとめて（明細が欠けた注文を見せない）
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		id, err := r.Orders().Create(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		return r.OrderItems().CreateBulk(ctx, id, items)
	})
	if err != nil {
		wf.step(ctx, "persist_order", err)
		return OrderOutput{}, errDB()
	}
	wf.orderID = order.ID
	wf.step(ctx, "persist_order", nil, slog.String("total_amount", order.TotalAmount.StringFixed(2)))

	fin := u.charge(ctx, wf, order)

	if err := u.orders.Finalize(ctx, order.ID, fin); err != nil {
		wf.step(ctx, "finalize", err)
		if fin.Status == model.OrderStatusConfirmed && fin.PaymentID != nil {
			u.logger.ErrorContext(ctx, "orphan payment: charge completed but order was not finalized",
				slog.Int64("order_id", order.ID),
				slog.Int64("payment_id", *fin.PaymentID),
			)
		}
		return OrderOutput{}, NewHTTPError(CodeInternal, "failed to finalize order")
	}
	wf.step(ctx, "finalize", nil, slog.String("status", string(fin.Status)))

	order.Status = fin.Status
	order.PaymentID = fin.PaymentID
	order.FailureReason = fin.FailureReason
	order.UpdatedAt = u.now()

	u.created.Inc(string(order.Status))
	return toOrderOutput(order, items), nil
}

// 決済を呼んで確定値を決める。上流のエラーもfailedとして扱う
func (u *OrderUsecase) charge(ctx context.Context, wf *orderWorkflow, order model.Order) repo.OrderFinalization {
	failed := func(reason string) repo.OrderFinalization {
		return repo.OrderFinalization{Status: model.OrderStatusFailed, FailureReason: &reason}
	}

	if !order.TotalAmount.IsPositive() {
		wf.step(ctx, "charge", errors.New("zero total"))
		return failed("order total must be greater than 0")
	}

	req := upstream.ChargeRequest{
		OrderID:       order.ID,
		UserID:        order.UserID,
		Amount:        order.TotalAmount,
		Currency:      u.policy.Currency,
		PaymentMethod: u.policy.PaymentMethod,
	}

	var (
		p   model.Payment
		err error
	)
	attempts := 1 + max(u.policy.Retries, 0)
	for attempt := 1; attempt <= attempts; attempt++ {
		//試行ごとに別キー（再試行は新しい決済レコードになる）
		key := fmt.Sprintf("order-%d-attempt-%d", order.ID, attempt)
		p, err = u.payments.Charge(ctx, req, key)
		if err == nil || !errors.Is(err, upstream.ErrUnavailable) || attempt == attempts {
			break
		}
		wf.step(ctx, "charge", err, slog.Int("attempt", attempt))
		u.sleep(retryDelay(u.policy.Backoff, attempt))
	}

	if err != nil {
		wf.step(ctx, "charge", err)
		var se *upstream.StatusError
		switch {
		case errors.As(err, &se) && errors.Is(err, upstream.ErrRejected):
			return failed("payment rejected: " + se.Message)
		case errors.Is(err, upstream.ErrUnavailable):
			return failed("payment service unavailable")
		default:
			return failed("payment error")
		}
	}

	//別の注文の決済を掴んだら確定させない
	if p.OrderID != order.ID || !p.Amount.Equal(order.TotalAmount) {
		wf.step(ctx, "charge", errors.New("payment does not match order"),
			slog.Int64("payment_id", p.ID), slog.Int64("payment_order_id", p.OrderID))
		return failed("payment rejected: payment does not match order")
	}

	paymentID := p.ID
	if p.Status == model.PaymentStatusCompleted {
		wf.step(ctx, "charge", nil, slog.Int64("payment_id", p.ID), slog.String("payment_status", string(p.Status)))
		return repo.OrderFinalization{Status: model.OrderStatusConfirmed, PaymentID: &paymentID}
	}

	wf.step(ctx, "charge", errors.New("payment not completed"), slog.Int64("payment_id", p.ID), slog.String("payment_status", string(p.Status)))
	reason := "payment failed"
	if p.FailureReason != nil && *p.FailureReason != "" {
		reason = *p.FailureReason
	}
	fin := failed(reason)
	fin.PaymentID = &paymentID
	return fin
}

// base * 2^(attempt-1)、上限1分
func retryDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	delay := base * time.Duration(1<<(attempt-1))
	if delay > time.Minute {
		delay = time.Minute
	}
	return delay
}

// 他人の注文は「存在しない扱い」にする
func (u *OrderUsecase) Get(ctx context.Context, callerID int64, orderID int64) (OrderOutput, error) {
	if callerID <= 0 {
		return OrderOutput{}, NewHTTPError(CodeUnauthenticated, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, errNotFound("order")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, errNotFound("order")
	}
	if err != nil {
		return OrderOutput{}, errDB()
	}
	if o.UserID != callerID {
		return OrderOutput{}, errNotFound("order")
	}

	items, err := u.items.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, errDB()
	}
	return toOrderOutput(o, items), nil
}

func (u *OrderUsecase) List(ctx context.Context, callerID int64, offset int, limit int) ([]OrderOutput, error) {
	if callerID <= 0 {
		return []OrderOutput{}, NewHTTPError(CodeUnauthenticated, "unauthorized")
	}
	if err := checkPage(offset, limit); err != nil {
		return []OrderOutput{}, err
	}

	orders, err := u.orders.ListByUserID(ctx, callerID, offset, limit)
	if err != nil {
		return []OrderOutput{}, errDB()
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := u.items.ListByOrderID(ctx, o.ID)
		if err != nil {
			return []OrderOutput{}, errDB()
		}
		outs = append(outs, toOrderOutput(o, items))
	}
	return outs, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ID:          it.ID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}

	return OrderOutput{
		ID:            o.ID,
		UserID:        o.UserID,
		TotalAmount:   o.TotalAmount,
		Status:        string(o.Status),
		PaymentID:     o.PaymentID,
		FailureReason: o.FailureReason,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Items:         outItems,
	}
}
