package repository

import (
	"context"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"

	"gorm.io/gorm"
)

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	return translateError(r.db.WithContext(ctx).Create(&log).Error)
}

func (r *auditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLog{})

	conds := []struct {
		set   bool
		query string
		arg   func() any
	}{
		{f.ActorUserID != nil, "actor_user_id = ?", func() any { return *f.ActorUserID }},
		{f.Action != nil, "action = ?", func() any { return string(*f.Action) }},
		{f.ResourceType != nil, "resource_type = ?", func() any { return string(*f.ResourceType) }},
		{f.ResourceID != nil, "resource_id = ?", func() any { return *f.ResourceID }},
		{f.CreatedFrom != nil, "created_at >= ?", func() any { return *f.CreatedFrom }},
		{f.CreatedTo != nil, "created_at <= ?", func() any { return *f.CreatedTo }},
	}
	for _, c := range conds {
		if c.set {
			q = q.Where(c.query, c.arg())
		}
	}

	offset, limit := f.Window()
	logs := []model.AuditLog{}
	if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		return []model.AuditLog{}, translateError(err)
	}
	return logs, nil
}
