package usecase

import (
	"context"
	"time"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
	"ecshop/internal/upstream"
)

// 平文パスワードからハッシュへ
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 入力パスワードと保存したハッシュを比べる
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
	// ユーザーがいない時も同じだけ時間をかける
	VerifyNothing(plain string) bool
}

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(userID int64, role model.Role) (token string, expiresAt time.Time, err error)
	TTL() time.Duration
}

// User Directory（orderサービスから見た上流）
type UserDirectory interface {
	GetUser(ctx context.Context, userID int64) (upstream.User, error)
}

// Payment Processor（orderサービスから見た上流）
type PaymentGateway interface {
	Charge(ctx context.Context, in upstream.ChargeRequest, idempotencyKey string) (model.Payment, error)
}

// 決済の承認可否を決める
type PaymentAuthorizer interface {
	Authorize(p model.Payment) repo.PaymentResolution
}

// 結果ラベルごとのカウンタ
type OutcomeCounter interface {
	Inc(label string)
}

type noopCounter struct{}

func (noopCounter) Inc(string) {}

func counterOrNoop(c OutcomeCounter) OutcomeCounter {
	if c == nil {
		return noopCounter{}
	}
	return c
}
