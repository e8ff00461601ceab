package memory

import (
	"context"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type paymentRepo struct {
	access
}

func (r *paymentRepo) Create(ctx context.Context, p *model.Payment) error {
	return r.write(func(st *state) error {
		if p.IdempotencyKey != nil {
			for _, existing := range st.payments {
				if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *p.IdempotencyKey {
					return repo.ErrDuplicate
				}
			}
		}
		st.paymentSeq++
		now := r.s.now()
		p.ID = st.paymentSeq
		p.CreatedAt = now
		p.UpdatedAt = now
		st.payments[p.ID] = *p
		return nil
	})
}

func (r *paymentRepo) FindByID(ctx context.Context, paymentID int64) (model.Payment, error) {
	var out model.Payment
	err := r.read(func(st *state) error {
		p, ok := st.payments[paymentID]
		if !ok {
			return repo.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r *paymentRepo) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Payment, bool, error) {
	var out model.Payment
	var found bool
	err := r.read(func(st *state) error {
		for _, p := range st.payments {
			if p.UserID == userID && p.IdempotencyKey != nil && *p.IdempotencyKey == key {
				out, found = p, true
				return nil
			}
		}
		return nil
	})
	return out, found, err
}

func (r *paymentRepo) ListByUserID(ctx context.Context, userID int64, offset int, limit int) ([]model.Payment, error) {
	var out []model.Payment
	err := r.read(func(st *state) error {
		mine := make([]model.Payment, 0)
		for _, id := range sortedKeys(st.payments) {
			if p := st.payments[id]; p.UserID == userID {
				mine = append(mine, p)
			}
		}
		out = page(mine, offset, limit)
		return nil
	})
	return out, err
}

func (r *paymentRepo) Resolve(ctx context.Context, paymentID int64, res repo.PaymentResolution) error {
	return r.transition(paymentID, model.PaymentStatusPending, func(p *model.Payment) {
		p.Status = res.Status
		p.TransactionID = res.TransactionID
		p.FailureReason = res.FailureReason
	})
}

func (r *paymentRepo) MarkRefunded(ctx context.Context, paymentID int64) error {
	return r.transition(paymentID, model.PaymentStatusCompleted, func(p *model.Payment) {
		p.Status = model.PaymentStatusRefunded
	})
}

func (r *paymentRepo) transition(paymentID int64, from model.PaymentStatus, apply func(p *model.Payment)) error {
	return r.write(func(st *state) error {
		p, ok := st.payments[paymentID]
		if !ok {
			return repo.ErrNotFound
		}
		if p.Status != from {
			return repo.ErrStateChanged
		}
		apply(&p)
		p.UpdatedAt = r.s.now()
		st.payments[paymentID] = p
		return nil
	})
}
