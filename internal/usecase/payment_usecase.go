package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"

	"github.com/shopspring/decimal"
)

type ChargeInput struct {
	OrderID       int64           `json:"order_id"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`

	// X-Idempotency-Keyヘッダから
	IdempotencyKey string `json:"-"`
}

type PaymentValidator interface {
	ValidateCharge(in ChargeInput) error
}

// 省略時の通貨と支払い方法
type PaymentDefaults struct {
	Currency      string
	PaymentMethod string
}

type PaymentUsecase struct {
	payments   repo.PaymentRepository
	validator  PaymentValidator
	authorizer PaymentAuthorizer
	processed  OutcomeCounter
	defaults   PaymentDefaults
	logger     *slog.Logger
}

func NewPaymentUsecase(
	payments repo.PaymentRepository,
	validator PaymentValidator,
	authorizer PaymentAuthorizer,
	processed OutcomeCounter,
	defaults PaymentDefaults,
	logger *slog.Logger,
) *PaymentUsecase {
	return &PaymentUsecase{
		payments:   payments,
		validator:  validator,
		authorizer: authorizer,
		processed:  counterOrNoop(processed),
		defaults:   defaults,
		logger:     logger,
	}
}

// pendingで保存してから承認結果で確定させる。
// 承認されなかった場合もエラーではなくfailedの決済を返す
func (u *PaymentUsecase) Charge(ctx context.Context, callerID int64, in ChargeInput) (model.Payment, error) {
	if callerID <= 0 {
		return model.Payment{}, NewHTTPError(CodeUnauthenticated, "unauthorized")
	}
	if in.UserID == 0 {
		in.UserID = callerID
	}
	if in.UserID != callerID {
		return model.Payment{}, NewHTTPError(CodeMalformed, "user_id does not match the authenticated user")
	}
	if !in.Amount.IsPositive() {
		return model.Payment{}, NewHTTPError(CodeInvalidAmount, "amount must be greater than 0")
	}

	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = u.defaults.Currency
	}
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if in.PaymentMethod == "" {
		in.PaymentMethod = u.defaults.PaymentMethod
	}
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)

	if err := u.validator.ValidateCharge(in); err != nil {
		return model.Payment{}, NewHTTPError(CodeMalformed, err.Error())
	}

	//呼び出し元が切れてもpendingのまま残さない
	ctx = context.WithoutCancel(ctx)

	// 同じキーなら同じ結果
	if in.IdempotencyKey != "" {
		existing, found, err := u.payments.FindByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
		if err != nil {
			return model.Payment{}, errDB()
		}
		if found {
			return replay(existing, in)
		}
	}

	p := model.Payment{
		OrderID:       in.OrderID,
		UserID:        in.UserID,
		Amount:        in.Amount,
		Currency:      in.Currency,
		PaymentMethod: in.PaymentMethod,
		Status:        model.PaymentStatusPending,
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		p.IdempotencyKey = &key
	}

	if err := u.payments.Create(ctx, &p); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			//同時に同じキーが入った
			existing, found, err2 := u.payments.FindByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
			if err2 == nil && found {
				return replay(existing, in)
			}
			return model.Payment{}, NewHTTPError(CodeConflict, "idempotency key already used")
		}
		return model.Payment{}, errDB()
	}

	res := u.authorizer.Authorize(p)
	if err := u.payments.Resolve(ctx, p.ID, res); err != nil {
		u.logger.ErrorContext(ctx, "resolve payment failed",
			slog.Int64("payment_id", p.ID),
			slog.String("error", err.Error()),
		)
		return model.Payment{}, errDB()
	}
	p.Status = res.Status
	p.TransactionID = res.TransactionID
	p.FailureReason = res.FailureReason

	u.processed.Inc(string(p.Status))
	u.logger.InfoContext(ctx, "payment processed",
		slog.Int64("payment_id", p.ID),
		slog.Int64("order_id", p.OrderID),
		slog.String("status", string(p.Status)),
	)
	return p, nil
}

// キーが同じでも中身が違う依頼は別物として弾く
func replay(existing model.Payment, in ChargeInput) (model.Payment, error) {
	if existing.OrderID != in.OrderID ||
		!existing.Amount.Equal(in.Amount) ||
		existing.Currency != in.Currency ||
		existing.PaymentMethod != in.PaymentMethod {
		return model.Payment{}, NewHTTPError(CodeConflict, "idempotency key reused with a different request")
	}
	return existing, nil
}

// 他人の決済は「存在しない扱い」にする
func (u *PaymentUsecase) Get(ctx context.Context, callerID int64, paymentID int64) (model.Payment, error) {
	if callerID <= 0 {
		return model.Payment{}, NewHTTPError(CodeUnauthenticated, "unauthorized")
	}
	if paymentID <= 0 {
		return model.Payment{}, errNotFound("payment")
	}

	p, err := u.payments.FindByID(ctx, paymentID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Payment{}, errNotFound("payment")
	}
	if err != nil {
		return model.Payment{}, errDB()
	}
	if p.UserID != callerID {
		return model.Payment{}, errNotFound("payment")
	}
	return p, nil
}

func (u *PaymentUsecase) List(ctx context.Context, callerID int64, offset int, limit int) ([]model.Payment, error) {
	if callerID <= 0 {
		return []model.Payment{}, NewHTTPError(CodeUnauthenticated, "unauthorized")
	}
	if err := checkPage(offset, limit); err != nil {
		return []model.Payment{}, err
	}

	ps, err := u.payments.ListByUserID(ctx, callerID, offset, limit)
	if err != nil {
		return []model.Payment{}, errDB()
	}
	return ps, nil
}

// completed -> refunded の一方向。二回目はINVALID_STATE
func (u *PaymentUsecase) Refund(ctx context.Context, callerID int64, paymentID int64) (model.Payment, error) {
	p, err := u.Get(ctx, callerID, paymentID)
	if err != nil {
		return model.Payment{}, err
	}
	if p.Status != model.PaymentStatusCompleted {
		return model.Payment{}, NewHTTPError(CodeInvalidState, "only completed payments can be refunded")
	}

	if err := u.payments.MarkRefunded(ctx, p.ID); err != nil {
		if errors.Is(err, repo.ErrStateChanged) {
			return model.Payment{}, NewHTTPError(CodeInvalidState, "only completed payments can be refunded")
		}
		return model.Payment{}, errDB()
	}

	updated, err := u.payments.FindByID(ctx, p.ID)
	if err != nil {
		return model.Payment{}, errDB()
	}

	u.logger.InfoContext(ctx, "payment refunded", slog.Int64("payment_id", p.ID))
	return updated, nil
}
