// Package auth は署名付きトークンの発行/検証とパスワードハッシュを扱う。
// どのサービスもDBを見ずに同じ秘密鍵だけで検証できる。
package auth

import (
	"errors"
	"strconv"
	"time"

	"ecshop/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
)

var (
	// 署名不一致・期限切れ・想定外のアルゴリズム
	ErrUnauthenticated = errors.New("unauthenticated")

	// トークンとして読めない
	ErrMalformed = errors.New("malformed token")
)

// JWTに載せるclaims。subはユーザーIDの10進文字列
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// トークンから取り出した呼び出し元
type Identity struct {
	UserID int64
	Role   model.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == model.RoleAdmin
}

type JWTManager struct {
	secret []byte
	ttl    time.Duration
	clock  Clock
}

func NewJWTManager(secret string, ttl time.Duration, clock Clock) *JWTManager {
	if clock == nil {
		clock = SystemClock{}
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl, clock: clock}
}

func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// HS256でアクセストークンを発行する
func (m *JWTManager) Issue(userID int64, role model.Role) (string, time.Time, error) {
	now := m.clock.Now()
	exp := now.Add(m.ttl)

	if role == "" {
		role = model.RoleUser
	}

	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// 検証してIdentityを返す。
// 構造が壊れている/subが数値でない -> ErrMalformed、それ以外の失敗 -> ErrUnauthenticated
func (m *JWTManager) Verify(raw string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Identity{}, ErrMalformed
		}
		return Identity{}, ErrUnauthenticated
	}
	if token == nil || !token.Valid {
		return Identity{}, ErrUnauthenticated
	}

	//期限なしトークンは受け付けない
	if claims.ExpiresAt == nil {
		return Identity{}, ErrUnauthenticated
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrMalformed
	}

	role := model.Role(claims.Role)
	if role == "" {
		role = model.RoleUser
	}

	return Identity{UserID: userID, Role: role}, nil
}
