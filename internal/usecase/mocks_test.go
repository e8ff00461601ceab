package usecase

import (
	"context"
	"io"
	"log/slog"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
	"ecshop/internal/upstream"

	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =====================
// 上流サービス
// =====================

type UserDirectoryMock struct{ mock.Mock }

func (m *UserDirectoryMock) GetUser(ctx context.Context, userID int64) (upstream.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(upstream.User)
	return u, args.Error(1)
}

type PaymentGatewayMock struct{ mock.Mock }

func (m *PaymentGatewayMock) Charge(ctx context.Context, in upstream.ChargeRequest, key string) (model.Payment, error) {
	args := m.Called(ctx, in, key)
	p, _ := args.Get(0).(model.Payment)
	//未指定なら依頼どおりの決済として返す
	if args.Error(1) == nil {
		if p.OrderID == 0 {
			p.OrderID = in.OrderID
		}
		if p.Amount.IsZero() {
			p.Amount = in.Amount
		}
	}
	return p, args.Error(1)
}

type CounterMock struct{ mock.Mock }

func (m *CounterMock) Inc(label string) {
	m.Called(label)
}

// =====================
// validator（中身はvalidatorパッケージでテストする）
// =====================

type stubValidator struct {
	err error
}

func (v stubValidator) ValidateRegister(RegisterInput) error { return v.err }
func (v stubValidator) ValidateLogin(LoginInput) error       { return v.err }
func (v stubValidator) ValidateItems([]OrderItemInput) error { return v.err }
func (v stubValidator) ValidateCharge(ChargeInput) error     { return v.err }

// =====================
// TxManager / TxRepos
// =====================

// WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	auditLogs  repo.AuditLogRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, offset int, limit int) ([]model.Order, error) {
	panic("not used")
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	panic("not used")
}

func (m *OrderRepoMock) Finalize(ctx context.Context, orderID int64, f repo.OrderFinalization) error {
	panic("not used")
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	panic("not used")
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, f)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}
