package app

import (
	"fmt"
	"log/slog"

	"ecshop/internal/config"
	"ecshop/internal/infra/db"
	"ecshop/internal/infra/memory"
	infraRepo "ecshop/internal/infra/repository"
	repo "ecshop/internal/repository"

	"gorm.io/gorm"
)

// サービスが使うrepository一式
type storage struct {
	users     repo.UserRepository
	orders    repo.OrderRepository
	items     repo.OrderItemRepository
	payments  repo.PaymentRepository
	auditLogs repo.AuditLogRepository
	tx        repo.TransactionManager

	close func() error
}

// DATABASE_URL=memory ならメモリ、それ以外はpostgres（起動時にAutoMigrate）
func openStorage(cfg config.Config, logger *slog.Logger) (*storage, error) {
	if cfg.UsesMemoryStore() {
		logger.Warn("using in-memory store; data is lost on restart")
		return memoryStorage(memory.NewStore()), nil
	}

	gormDB, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gormDB, cfg.Service); err != nil {
		_ = closeGorm(gormDB)
		return nil, err
	}
	return gormStorage(gormDB), nil
}

func memoryStorage(s *memory.Store) *storage {
	return &storage{
		users:     s.Users(),
		orders:    s.Orders(),
		items:     s.OrderItems(),
		payments:  s.Payments(),
		auditLogs: s.AuditLogs(),
		tx:        s,
		close:     func() error { return nil },
	}
}

func gormStorage(gormDB *gorm.DB) *storage {
	return &storage{
		users:     infraRepo.NewUserGormRepository(gormDB),
		orders:    infraRepo.NewOrderGormRepository(gormDB),
		items:     infraRepo.NewOrderItemGormRepository(gormDB),
		payments:  infraRepo.NewPaymentGormRepository(gormDB),
		auditLogs: infraRepo.NewAuditLogGormRepository(gormDB),
		tx:        infraRepo.NewTxManagerGorm(gormDB),
		close:     func() error { return closeGorm(gormDB) },
	}
}

func closeGorm(gormDB *gorm.DB) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// shop migrate 用。テーブルを作って終わる
func Migrate(cfg config.Config, logger *slog.Logger) error {
	if cfg.UsesMemoryStore() {
		logger.Info("in-memory store needs no migration", slog.String("service", cfg.Service))
		return nil
	}

	gormDB, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = closeGorm(gormDB) }()

	if err := db.Migrate(gormDB, cfg.Service); err != nil {
		return err
	}
	logger.Info("migrated", slog.String("service", cfg.Service))
	return nil
}

func unknownService(service string) error {
	return fmt.Errorf("unknown service %q (want user, order or payment)", service)
}
