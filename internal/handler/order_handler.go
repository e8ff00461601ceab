package handler

import (
	"net/http"

	"ecshop/internal/upstream"
	"ecshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// user_idは省略可。入れるならトークンの本人と一致していること
type OrderCreateRequest struct {
	UserID int64                    `json:"user_id"`
	Items  []usecase.OrderItemInput `json:"items"`
}

func (h *OrderHandler) RegisterRoutes(g *echo.Group, authMW echo.MiddlewareFunc) {
	g.POST("", h.create, authMW)
	g.GET("", h.list, authMW)
	g.GET("/:id", h.detail, authMW)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, usecase.NewHTTPError(usecase.CodeUnauthenticated, "not authenticated"))
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.UserID != 0 && req.UserID != userID {
		return badRequest(c, "user_id does not match the authenticated user")
	}

	//上流（user/payment）にも同じトークンで問い合わせる
	ctx := upstream.WithToken(c.Request().Context(), getTokenFromContext(c))

	out, err := h.uc.Create(ctx, userID, usecase.CreateOrderInput{Items: req.Items})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, usecase.NewHTTPError(usecase.CodeUnauthenticated, "not authenticated"))
	}
	offset, limit, err := parsePage(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.List(c.Request().Context(), userID, offset, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeError(c, usecase.NewHTTPError(usecase.CodeUnauthenticated, "not authenticated"))
	}

	id, ok := parseIDParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
