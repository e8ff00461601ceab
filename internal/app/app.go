package app

import (
	"context"
	"log/slog"
	"net/http"

	"ecshop/internal/auth"
	"ecshop/internal/config"
	"ecshop/internal/handler"
	"ecshop/internal/metrics"
	"ecshop/internal/middleware"
	"ecshop/internal/payment"
	"ecshop/internal/server"
	"ecshop/internal/upstream"
	"ecshop/internal/usecase"
	"ecshop/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func init() {
	//金額はJSONの数値で返す
	decimal.MarshalJSONWithoutQuotes = true
}

// 1サービス分のプロセス
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	echo    *echo.Echo
	storage *storage
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if !config.IsService(cfg.Service) {
		return nil, unknownService(cfg.Service)
	}

	st, err := openStorage(cfg, logger)
	if err != nil {
		return nil, err
	}
	return build(cfg, logger, st), nil
}

func build(cfg config.Config, logger *slog.Logger, st *storage) *App {
	m := metrics.New(cfg.Service)
	e, g := server.New(server.Options{
		Service:     cfg.Service,
		RoutePrefix: cfg.RoutePrefix,
		Logger:      logger,
		Metrics:     m,
	})

	//全サービス同じシークレットで検証する
	jwtm := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL, auth.SystemClock{})
	authMW := middleware.AuthJWT(jwtm)

	switch cfg.Service {
	case config.ServiceUser:
		uc := usecase.NewUserUsecase(
			st.users,
			validator.NewUserValidator(),
			auth.NewBcryptPasswordHasher(cfg.BcryptCost),
			auth.NewBcryptPasswordVerifier(),
			jwtm,
			logger,
		)
		handler.NewUserHandler(uc).RegisterRoutes(g, authMW)

	case config.ServiceOrder:
		timeout := cfg.UpstreamTimeout
		users := upstream.NewUserClient(upstream.Config{BaseURL: cfg.UserServiceURL, Timeout: timeout})
		payments := upstream.NewPaymentClient(upstream.Config{BaseURL: cfg.PaymentServiceURL, Timeout: timeout})

		uc := usecase.NewOrderUsecase(
			st.tx,
			st.orders,
			st.items,
			users,
			payments,
			validator.NewOrderValidator(),
			usecase.ChargePolicy{
				Retries:       cfg.ChargeRetries,
				Backoff:       cfg.ChargeRetryBackoff,
				Currency:      cfg.DefaultCurrency,
				PaymentMethod: cfg.DefaultPaymentMethod,
			},
			m.NewOutcomeCounter("orders_created_total", "Orders created, by final status.", "status"),
			logger,
		)
		adminUC := usecase.NewAdminOrderUsecase(st.tx, st.auditLogs, logger)

		handler.NewAdminOrderHandler(adminUC).RegisterRoutes(g, authMW, middleware.AdminRoleGuard())
		handler.NewOrderHandler(uc).RegisterRoutes(g, authMW)

	case config.ServicePayment:
		uc := usecase.NewPaymentUsecase(
			st.payments,
			validator.NewPaymentValidator(),
			payment.NewSimulator(cfg.PaymentSuccessRate),
			m.NewOutcomeCounter("payments_processed_total", "Charges processed, by resulting status.", "status"),
			usecase.PaymentDefaults{
				Currency:      cfg.DefaultCurrency,
				PaymentMethod: cfg.DefaultPaymentMethod,
			},
			logger,
		)
		handler.NewPaymentHandler(uc).RegisterRoutes(g, authMW)
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		echo:    e,
		storage: st,
	}
}

func (a *App) Handler() http.Handler {
	return a.echo
}

// ctxが終わるまで待ち受ける
func (a *App) Run(ctx context.Context) error {
	return server.Run(ctx, a.echo, a.cfg.Addr(), a.cfg.ShutdownTimeout, a.logger)
}

func (a *App) Close() error {
	return a.storage.close()
}
