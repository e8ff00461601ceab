package memory

import (
	"context"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type orderRepo struct {
	access
}

func (r *orderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var out model.Order
	err := r.read(func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return repo.ErrNotFound
		}
		out = o
		return nil
	})
	return out, err
}

func (r *orderRepo) ListByUserID(ctx context.Context, userID int64, offset int, limit int) ([]model.Order, error) {
	var out []model.Order
	err := r.read(func(st *state) error {
		mine := make([]model.Order, 0)
		for _, id := range sortedKeys(st.orders) {
			if o := st.orders[id]; o.UserID == userID {
				mine = append(mine, o)
			}
		}
		out = page(mine, offset, limit)
		return nil
	})
	return out, err
}

func (r *orderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	var id int64
	err := r.write(func(st *state) error {
		st.orderSeq++
		now := r.s.now()
		order.ID = st.orderSeq
		if order.CreatedAt.IsZero() {
			order.CreatedAt = now
		}
		if order.UpdatedAt.IsZero() {
			order.UpdatedAt = now
		}
		st.orders[order.ID] = order
		id = order.ID
		return nil
	})
	return id, err
}

func (r *orderRepo) Finalize(ctx context.Context, orderID int64, f repo.OrderFinalization) error {
	return r.write(func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return repo.ErrNotFound
		}
		if o.Status != model.OrderStatusPending {
			return repo.ErrStateChanged
		}
		o.Status = f.Status
		o.PaymentID = f.PaymentID
		o.FailureReason = f.FailureReason
		o.UpdatedAt = r.s.now()
		st.orders[orderID] = o
		return nil
	})
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	return r.write(func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return repo.ErrNotFound
		}
		o.Status = status
		o.UpdatedAt = r.s.now()
		st.orders[orderID] = o
		return nil
	})
}

type orderItemRepo struct {
	access
}

func (r *orderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.write(func(st *state) error {
		now := r.s.now()
		for i := range items {
			st.itemSeq++
			items[i].ID = st.itemSeq
			items[i].OrderID = orderID
			items[i].CreatedAt = now
		}
		st.items[orderID] = append(st.items[orderID], items...)
		return nil
	})
}

func (r *orderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var out []model.OrderItem
	err := r.read(func(st *state) error {
		out = append([]model.OrderItem{}, st.items[orderID]...)
		return nil
	})
	return out, err
}
