// Package memory はrepositoryの約束をプロセス内のmapで満たす実装。
// DATABASE_URL=memory のローカル起動とテストで使う。
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type state struct {
	users    map[int64]model.User
	orders   map[int64]model.Order
	items    map[int64][]model.OrderItem
	payments map[int64]model.Payment
	audit    []model.AuditLog

	userSeq    int64
	orderSeq   int64
	itemSeq    int64
	paymentSeq int64
	auditSeq   int64
}

func newState() *state {
	return &state{
		users:    make(map[int64]model.User),
		orders:   make(map[int64]model.Order),
		items:    make(map[int64][]model.OrderItem),
		payments: make(map[int64]model.Payment),
	}
}

// Tx用の作業コピー
func (s *state) clone() *state {
	c := *s
	c.users = make(map[int64]model.User, len(s.users))
	for k, v := range s.users {
		c.users[k] = v
	}
	c.orders = make(map[int64]model.Order, len(s.orders))
	for k, v := range s.orders {
		c.orders[k] = v
	}
	c.items = make(map[int64][]model.OrderItem, len(s.items))
	for k, v := range s.items {
		c.items[k] = append([]model.OrderItem(nil), v...)
	}
	c.payments = make(map[int64]model.Payment, len(s.payments))
	for k, v := range s.payments {
		c.payments[k] = v
	}
	c.audit = append([]model.AuditLog(nil), s.audit...)
	return &c
}

type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

// access はTx中なら作業コピーを、そうでなければロックを取って本体を触る
type access struct {
	s  *Store
	tx *state
}

func (a access) read(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return fn(a.s.st)
}

func (a access) write(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return fn(a.s.st)
}

func (s *Store) Users() repo.UserRepository           { return &userRepo{access{s: s}} }
func (s *Store) Orders() repo.OrderRepository         { return &orderRepo{access{s: s}} }
func (s *Store) OrderItems() repo.OrderItemRepository { return &orderItemRepo{access{s: s}} }
func (s *Store) Payments() repo.PaymentRepository     { return &paymentRepo{access{s: s}} }
func (s *Store) AuditLogs() repo.AuditLogRepository   { return &auditLogRepo{access{s: s}} }

type txRepos struct {
	a access
}

func (r *txRepos) Orders() repo.OrderRepository         { return &orderRepo{r.a} }
func (r *txRepos) OrderItems() repo.OrderItemRepository { return &orderItemRepo{r.a} }
func (r *txRepos) AuditLogs() repo.AuditLogRepository   { return &auditLogRepo{r.a} }

// fnがエラーを返したら作業コピーを捨てる（全部反映か、何も反映しないか）
func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&txRepos{a: access{s: s, tx: work}}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func page[T any](xs []T, offset int, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(xs) {
		return []T{}
	}
	end := len(xs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]T{}, xs[offset:end]...)
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
