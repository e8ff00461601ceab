package db

import (
	"fmt"

	"ecshop/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		//unique違反をgorm.ErrDuplicatedKeyにする
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return gormDB, nil
}

// サービスごとに自分のテーブルだけを持つ（サービスをまたいだJOINはしない）
func ModelsFor(service string) ([]interface{}, error) {
	switch service {
	case "user":
		return []interface{}{&model.User{}}, nil
	case "order":
		return []interface{}{&model.Order{}, &model.OrderItem{}, &model.AuditLog{}}, nil
	case "payment":
		return []interface{}{&model.Payment{}}, nil
	default:
		return nil, fmt.Errorf("unknown service %q", service)
	}
}

// Migrate はサービスのテーブルを作成・更新する
func Migrate(gormDB *gorm.DB, service string) error {
	models, err := ModelsFor(service)
	if err != nil {
		return err
	}
	if err := gormDB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migrate %s: %w", service, err)
	}
	return nil
}
