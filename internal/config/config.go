package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ServiceUser    = "user"
	ServiceOrder   = "order"
	ServicePayment = "payment"

	// DATABASE_URLにこれを入れるとDBなしで起動する
	MemoryDatabase = "memory"
)

// Configは1サービス分の設定
type Config struct {
	Service string

	Port        string // 待ち受けポート（8000）
	DatabaseURL string // postgres DSN か memory
	JWTSecret   string // 全サービス共通のHS256シークレット
	JWTTTL      time.Duration
	LogLevel    string
	GoEnv       string // dev/prod
	RoutePrefix string // gatewayなしで動かす時のマウント先

	// orderサービスだけ
	UserServiceURL     string
	PaymentServiceURL  string
	UpstreamTimeout    time.Duration
	ChargeRetries      int
	ChargeRetryBackoff time.Duration

	// paymentサービスだけ
	PaymentSuccessRate   float64
	DefaultCurrency      string
	DefaultPaymentMethod string

	BcryptCost      int
	ShutdownTimeout time.Duration
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func (c Config) UsesMemoryStore() bool {
	return c.DatabaseURL == MemoryDatabase
}

func IsService(name string) bool {
	switch name {
	case ServiceUser, ServiceOrder, ServicePayment:
		return true
	}
	return false
}

// .env（ENV_FILE）があれば読んでから環境変数で組み立てる。
// 既に設定されている環境変数は上書きしない
func Load(service string) (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}
	return FromLookup(service, os.LookupEnv)
}

func loadEnvFile() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// shop token はDBもポートも使わないのでJWTの設定だけ読む
type TokenConfig struct {
	JWTSecret string
	JWTTTL    time.Duration
}

func LoadToken() (TokenConfig, error) {
	if err := loadEnvFile(); err != nil {
		return TokenConfig{}, err
	}
	return TokenFromLookup(os.LookupEnv)
}

// USER_JWT_SECRET があればそちら（トークンを検証する側と同じ値になる）
func TokenFromLookup(lookup func(string) (string, bool)) (TokenConfig, error) {
	e := &env{service: ServiceUser, lookup: lookup}
	cfg := TokenConfig{
		JWTSecret: e.str("JWT_SECRET", ""),
		JWTTTL:    e.duration("JWT_TTL", 24*time.Hour),
	}
	if e.err != nil {
		return TokenConfig{}, e.err
	}
	if cfg.JWTSecret == "" {
		return TokenConfig{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.JWTTTL <= 0 {
		return TokenConfig{}, fmt.Errorf("JWT_TTL must be positive")
	}
	return cfg, nil
}

// lookupを差し替えられるので、テストは環境変数を汚さない
func FromLookup(service string, lookup func(string) (string, bool)) (Config, error) {
	if !IsService(service) {
		return Config{}, fmt.Errorf("unknown service %q", service)
	}
	e := &env{service: service, lookup: lookup}

	cfg := Config{
		Service:     service,
		Port:        e.str("PORT", "8000"),
		DatabaseURL: e.str("DATABASE_URL", ""),
		JWTSecret:   e.str("JWT_SECRET", ""),
		JWTTTL:      e.duration("JWT_TTL", 24*time.Hour),
		LogLevel:    strings.ToUpper(e.str("LOG_LEVEL", "INFO")),
		GoEnv:       e.str("GO_ENV", "dev"),
		RoutePrefix: strings.TrimRight(e.str("ROUTE_PREFIX", ""), "/"),

		UserServiceURL:     e.str("USER_SERVICE_URL", ""),
		PaymentServiceURL:  e.str("PAYMENT_SERVICE_URL", ""),
		UpstreamTimeout:    e.duration("UPSTREAM_TIMEOUT", 5*time.Second),
		ChargeRetries:      e.int("CHARGE_RETRIES", 0),
		ChargeRetryBackoff: e.duration("CHARGE_RETRY_BACKOFF", 200*time.Millisecond),

		PaymentSuccessRate:   e.float("PAYMENT_SUCCESS_RATE", 0.8),
		DefaultCurrency:      strings.ToUpper(e.str("DEFAULT_CURRENCY", "USD")),
		DefaultPaymentMethod: e.str("DEFAULT_PAYMENT_METHOD", "credit_card"),

		BcryptCost:      e.int("BCRYPT_COST", 12),
		ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if e.err != nil {
		return Config{}, e.err
	}

	//必須チェック
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("PORT must be number: %w", err)
	}
	if cfg.GoEnv != "dev" && cfg.GoEnv != "prod" {
		return Config{}, fmt.Errorf("GO_ENV must be dev or prod")
	}
	if cfg.GoEnv == "prod" && cfg.UsesMemoryStore() {
		return Config{}, fmt.Errorf("DATABASE_URL=memory is not allowed in prod")
	}
	switch cfg.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return Config{}, fmt.Errorf("LOG_LEVEL must be DEBUG, INFO, WARN or ERROR")
	}
	if cfg.JWTTTL <= 0 || cfg.UpstreamTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("JWT_TTL, UPSTREAM_TIMEOUT and SHUTDOWN_TIMEOUT must be positive")
	}

	switch service {
	case ServiceOrder:
		if cfg.UserServiceURL == "" {
			return Config{}, fmt.Errorf("USER_SERVICE_URL is required")
		}
		if cfg.PaymentServiceURL == "" {
			return Config{}, fmt.Errorf("PAYMENT_SERVICE_URL is required")
		}
		if cfg.ChargeRetries < 0 || cfg.ChargeRetries > 10 {
			return Config{}, fmt.Errorf("CHARGE_RETRIES must be between 0 and 10")
		}
	case ServicePayment:
		if cfg.PaymentSuccessRate < 0 || cfg.PaymentSuccessRate > 1 {
			return Config{}, fmt.Errorf("PAYMENT_SUCCESS_RATE must be between 0 and 1")
		}
		if len(cfg.DefaultCurrency) != 3 {
			return Config{}, fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter code")
		}
	}

	return cfg, nil
}

// ORDER_DATABASE_URL のようなサービス名付きのキーを優先する
type env struct {
	service string
	lookup  func(string) (string, bool)
	err     error
}

func (e *env) raw(key string) (string, bool) {
	if v, ok := e.lookup(strings.ToUpper(e.service) + "_" + key); ok && v != "" {
		return v, true
	}
	if v, ok := e.lookup(key); ok && v != "" {
		return v, true
	}
	return "", false
}

func (e *env) str(key string, def string) string {
	if v, ok := e.raw(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		e.fail(fmt.Errorf("%s must be duration: %w", key, err))
		return def
	}
	return d
}

func (e *env) int(key string, def int) int {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.fail(fmt.Errorf("%s must be number: %w", key, err))
		return def
	}
	return i
}

func (e *env) float(key string, def float64) float64 {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		e.fail(fmt.Errorf("%s must be number: %w", key, err))
		return def
	}
	return f
}

// 最初のエラーだけ残す
func (e *env) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}
