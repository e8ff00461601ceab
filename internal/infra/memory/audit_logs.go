package memory

import (
	"context"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type auditLogRepo struct {
	access
}

func (r *auditLogRepo) Create(ctx context.Context, log model.AuditLog) error {
	return r.write(func(st *state) error {
		st.auditSeq++
		log.ID = st.auditSeq
		if log.CreatedAt.IsZero() {
			log.CreatedAt = r.s.now()
		}
		st.audit = append(st.audit, log)
		return nil
	})
}

func (r *auditLogRepo) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	offset, limit := f.Window()

	var out []model.AuditLog
	err := r.read(func(st *state) error {
		matched := make([]model.AuditLog, 0)
		//新しい順
		for i := len(st.audit) - 1; i >= 0; i-- {
			l := st.audit[i]
			if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
				continue
			}
			if f.Action != nil && l.Action != *f.Action {
				continue
			}
			if f.ResourceType != nil && l.ResourceType != *f.ResourceType {
				continue
			}
			if f.ResourceID != nil && l.ResourceID != *f.ResourceID {
				continue
			}
			if f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom) {
				continue
			}
			if f.CreatedTo != nil && l.CreatedAt.After(*f.CreatedTo) {
				continue
			}
			matched = append(matched, l)
		}
		out = page(matched, offset, limit)
		return nil
	})
	return out, err
}
