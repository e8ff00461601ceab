package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"ecshop/internal/middleware"
	"ecshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message, Code: string(he.Code)})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: string(usecase.CodeInternal)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: string(usecase.CodeMalformed)})
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	id, ok := v.(int64)
	return id, ok && id > 0
}

func getTokenFromContext(c echo.Context) string {
	tok, _ := c.Get(middleware.CtxTokenKey).(string)
	return tok
}

func parseIDParam(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ?skip=&limit= （offsetも受ける）
func parsePage(c echo.Context) (offset int, limit int, err error) {
	limit = usecase.DefaultLimit

	raw := c.QueryParam("skip")
	if raw == "" {
		raw = c.QueryParam("offset")
	}
	if raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, errors.New("invalid skip")
		}
	}

	if v := c.QueryParam("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, errors.New("invalid limit")
		}
	}
	return offset, limit, nil
}

// echoが返すエラー（404ルートなし・405など）も{error, code}の形にそろえる
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var status int
		var body ErrorResponse
		var ee *echo.HTTPError
		if he, ok := usecase.AsHTTPError(err); ok {
			status = he.Status
			body = ErrorResponse{Error: he.Message, Code: string(he.Code)}
		} else if errors.As(err, &ee) {
			status = ee.Code
			msg, ok := ee.Message.(string)
			if !ok {
				msg = http.StatusText(status)
			}
			body = ErrorResponse{Error: msg, Code: string(codeForStatus(status))}
		} else {
			status = http.StatusInternalServerError
			body = ErrorResponse{Error: "internal error", Code: string(usecase.CodeInternal)}
		}

		if status >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				slog.String("path", c.Path()),
				slog.Any("error", err),
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.ErrorContext(c.Request().Context(), "write error response", slog.Any("error", werr))
		}
	}
}

func codeForStatus(status int) usecase.Code {
	switch {
	case status == http.StatusUnauthorized:
		return usecase.CodeUnauthenticated
	case status == http.StatusForbidden:
		return usecase.CodeForbidden
	case status == http.StatusNotFound:
		return usecase.CodeNotFound
	case status == http.StatusServiceUnavailable:
		return usecase.CodeUpstreamUnavailable
	case status == http.StatusBadGateway:
		return usecase.CodeUpstreamRejected
	case status >= http.StatusInternalServerError:
		return usecase.CodeInternal
	default:
		return usecase.CodeMalformed
	}
}
