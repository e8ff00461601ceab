package middleware

import (
	"errors"
	"net/http"
	"strings"

	"ecshop/internal/auth"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey   = "user_id"   // int64
	CtxUserRoleKey = "user_role" // string
	CtxTokenKey    = "token"     // string（上流へそのまま渡す）
)

// トークンを検証する約束
type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

// bearerAuth用のJWT検証ミドルウェア。
// 失敗は全部401（壊れたトークンもメッセージだけ変える）
func AuthJWT(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return unauthorized(c, "not authenticated")
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return unauthorized(c, "not authenticated")
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return unauthorized(c, "not authenticated")
			}

			id, err := verifier.Verify(rawToken)
			if errors.Is(err, auth.ErrMalformed) {
				return unauthorized(c, "malformed token")
			}
			if err != nil {
				return unauthorized(c, "could not validate credentials")
			}

			//contextへ保存
			c.Set(CtxUserIDKey, id.UserID)
			c.Set(CtxUserRoleKey, string(id.Role))
			c.Set(CtxTokenKey, rawToken)

			return next(c)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set("WWW-Authenticate", "Bearer")
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: msg, Code: "UNAUTHENTICATED"})
}
