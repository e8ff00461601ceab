package middleware

import (
	"net/http"

	"ecshop/internal/auth"
	"ecshop/internal/domain/model"

	"github.com/labstack/echo/v4"
)

//contextに入っているroleがADMINかどうかを確認します。AuthJWTの後に置く

func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok || role == "" {
				return unauthorized(c, "not authenticated")
			}

			//USERは拒否、ADMINだけ許可
			id := auth.Identity{Role: model.Role(role)}
			if !id.IsAdmin() {
				return c.JSON(http.StatusForbidden, errorResponse{Error: "admin only", Code: "FORBIDDEN"})
			}

			return next(c)
		}
	}
}
