package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"ecshop/internal/auth"
	"ecshop/internal/domain/model"
	"ecshop/internal/infra/memory"
	"ecshop/internal/middleware"
	"ecshop/internal/payment"
	"ecshop/internal/upstream"
	"ecshop/internal/usecase"
	"ecshop/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var jwtm = auth.NewJWTManager("handler-secret", time.Hour, nil)

func tokenFor(t *testing.T, userID int64, role model.Role) string {
	t.Helper()
	tok, _, err := jwtm.Issue(userID, role)
	require.NoError(t, err)
	return tok
}

func newEcho() (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(discardLogger())
	return e, e.Group("")
}

func do(e *echo.Echo, method string, path string, token string, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// ---- common ----

func TestWriteError(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, writeError(c, usecase.NewHTTPError(usecase.CodeConflict, "email already registered")))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ErrorResponse{Error: "email already registered", Code: "CONFLICT"}, decodeError(t, rec))

	//内部エラーの中身は出さない
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, writeError(c, errors.New("pq: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrorResponse{Error: "internal error", Code: "INTERNAL"}, decodeError(t, rec))
}

func TestParsePage(t *testing.T) {
	cases := []struct {
		query      string
		wantOffset int
		wantLimit  int
		wantErr    bool
	}{
		{query: "", wantOffset: 0, wantLimit: usecase.DefaultLimit},
		{query: "skip=5&limit=10", wantOffset: 5, wantLimit: 10},
		{query: "offset=7", wantOffset: 7, wantLimit: usecase.DefaultLimit},
		{query: "skip=x", wantErr: true},
		{query: "limit=ten", wantErr: true},
	}

	e := echo.New()
	for _, tc := range cases {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil), httptest.NewRecorder())
		offset, limit, err := parsePage(c)
		if tc.wantErr {
			assert.Error(t, err, tc.query)
			continue
		}
		require.NoError(t, err, tc.query)
		assert.Equal(t, tc.wantOffset, offset, tc.query)
		assert.Equal(t, tc.wantLimit, limit, tc.query)
	}
}

func TestErrorHandler_EchoErrors(t *testing.T) {
	e, g := newEcho()
	g.GET("/only-get", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	g.GET("/fail", func(c echo.Context) error { return usecase.NewHTTPError(usecase.CodeNotFound, "order not found") })

	rec := do(e, http.MethodGet, "/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)

	rec = do(e, http.MethodPost, "/only-get", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "MALFORMED", decodeError(t, rec).Code)

	rec = do(e, http.MethodGet, "/fail", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrorResponse{Error: "order not found", Code: "NOT_FOUND"}, decodeError(t, rec))
}

// ---- user ----

func newUserServer() *echo.Echo {
	store := memory.NewStore()
	uc := usecase.NewUserUsecase(
		store.Users(),
		validator.NewUserValidator(),
		auth.NewBcryptPasswordHasher(4),
		auth.NewBcryptPasswordVerifier(),
		jwtm,
		discardLogger(),
	)
	e, g := newEcho()
	NewUserHandler(uc).RegisterRoutes(g, middleware.AuthJWT(jwtm))
	return e
}

const aliceJSON = `{"email":"Alice@Example.com","username":"alice","password":"password123","full_name":"Alice"}`

func TestUserHandler_RegisterAndLogin(t *testing.T) {
	e := newUserServer()

	rec := do(e, http.MethodPost, "/", "", aliceJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u usecase.UserOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(e, http.MethodPost, "/", "", aliceJSON)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, "/login", "", `{"email":"alice@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tok usecase.TokenOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	assert.Equal(t, "bearer", tok.TokenType)

	rec = do(e, http.MethodGet, "/me", tok.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
}

func TestUserHandler_LoginForm(t *testing.T) {
	e := newUserServer()
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/", "", aliceJSON).Code)

	form := url.Values{"username": {"alice@example.com"}, "password": {"password123"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "access_token")
}

func TestUserHandler_LoginFailure(t *testing.T) {
	e := newUserServer()

	rec := do(e, http.MethodPost, "/login", "", `{"email":"ghost@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "UNAUTHENTICATED", decodeError(t, rec).Code)
}

func TestUserHandler_ProtectedRoutes(t *testing.T) {
	e := newUserServer()

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/1", "", "").Code)

	token := tokenFor(t, 1, model.RoleUser)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/1", token, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/abc", token, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/?limit=1000", token, "").Code)

	rec := do(e, http.MethodGet, "/?skip=0&limit=10", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

// ---- order ----

type fakeDirectory struct{}

func (fakeDirectory) GetUser(_ context.Context, id int64) (upstream.User, error) {
	if id == 404 {
		return upstream.User{}, upstream.ErrNotFound
	}
	if id == 401 {
		return upstream.User{}, upstream.ErrRejected
	}
	return upstream.User{ID: id, IsActive: true}, nil
}

type fakeGateway struct {
	mu   sync.Mutex
	keys []string
}

func (g *fakeGateway) Charge(_ context.Context, in upstream.ChargeRequest, key string) (model.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys = append(g.keys, key)
	txn := "txn_1"
	return model.Payment{
		ID:            int64(len(g.keys)),
		OrderID:       in.OrderID,
		UserID:        in.UserID,
		Amount:        in.Amount,
		Status:        model.PaymentStatusCompleted,
		TransactionID: &txn,
	}, nil
}

func newOrderServer() (*echo.Echo, *fakeGateway) {
	store := memory.NewStore()
	gw := &fakeGateway{}
	uc := usecase.NewOrderUsecase(
		store, store.Orders(), store.OrderItems(),
		fakeDirectory{}, gw,
		validator.NewOrderValidator(),
		usecase.ChargePolicy{Currency: "USD", PaymentMethod: "credit_card"},
		nil,
		discardLogger(),
	)
	adminUC := usecase.NewAdminOrderUsecase(store, store.AuditLogs(), discardLogger())

	e, g := newEcho()
	authMW := middleware.AuthJWT(jwtm)
	NewAdminOrderHandler(adminUC).RegisterRoutes(g, authMW, middleware.AdminRoleGuard())
	NewOrderHandler(uc).RegisterRoutes(g, authMW)
	return e, gw
}

const orderJSON = `{"items":[{"name":"Widget","quantity":2,"price":"29.99"},{"name":"Gadget","quantity":1,"price":49.99}]}`

func TestOrderHandler_Create(t *testing.T) {
	e, gw := newOrderServer()
	token := tokenFor(t, 7, model.RoleUser)

	rec := do(e, http.MethodPost, "/", token, orderJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out usecase.OrderOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "confirmed", out.Status)
	assert.Equal(t, int64(7), out.UserID)
	assert.True(t, out.TotalAmount.Equal(decimal.RequireFromString("109.97")))
	assert.Len(t, gw.keys, 1)

	rec = do(e, http.MethodGet, "/", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []usecase.OrderOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestOrderHandler_CreateErrors(t *testing.T) {
	e, gw := newOrderServer()
	token := tokenFor(t, 7, model.RoleUser)

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/", "", orderJSON).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/", token, `{"items":`).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/", token, `{"items":[]}`).Code)

	//他人のuser_idで注文できない
	rec := do(e, http.MethodPost, "/", token, `{"user_id":8,"items":[{"name":"A","quantity":1,"price":1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MALFORMED", decodeError(t, rec).Code)

	rec = do(e, http.MethodPost, "/", tokenFor(t, 404, model.RoleUser), orderJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REFERENCE", decodeError(t, rec).Code)

	rec = do(e, http.MethodPost, "/", tokenFor(t, 401, model.RoleUser), orderJSON)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM_REJECTED", decodeError(t, rec).Code)

	//列に入らない金額は保存前に弾く
	rec = do(e, http.MethodPost, "/", token, `{"items":[{"name":"A","quantity":1000000000,"price":"99999999999.99"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MALFORMED", decodeError(t, rec).Code)

	assert.Empty(t, gw.keys)
}

func TestOrderHandler_CreateWithProductName(t *testing.T) {
	e, _ := newOrderServer()
	token := tokenFor(t, 7, model.RoleUser)

	rec := do(e, http.MethodPost, "/", token, `{"items":[{"product_name":"Widget","quantity":2,"price":"29.99"},{"name":"Gadget","product_name":"ignored","quantity":1,"price":"49.99"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out usecase.OrderOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Items, 2)
	assert.Equal(t, "Widget", out.Items[0].ProductName)
	assert.Equal(t, "Gadget", out.Items[1].ProductName)
}

func TestOrderHandler_Detail(t *testing.T) {
	e, _ := newOrderServer()
	token := tokenFor(t, 7, model.RoleUser)
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/", token, orderJSON).Code)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/1", token, "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/1", tokenFor(t, 8, model.RoleUser), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/0", token, "").Code)
}

func TestAdminOrderHandler(t *testing.T) {
	e, _ := newOrderServer()
	token := tokenFor(t, 7, model.RoleUser)
	admin := tokenFor(t, 1, model.RoleAdmin)
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/", token, orderJSON).Code)

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPatch, "/1/status", token, `{"status":"failed"}`).Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/audit-logs", token, "").Code)

	rec := do(e, http.MethodPatch, "/1/status", admin, `{"status":"failed","expected_status":"pending"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, rec).Code)

	rec = do(e, http.MethodPatch, "/1/status", admin, `{"status":"failed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"failed"`)

	rec = do(e, http.MethodGet, "/audit-logs?actor_user_id=1&action=UPDATE_ORDER_STATUS&resource_type=order&limit=10", admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var logs []model.AuditLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, int64(1), logs[0].ResourceID)

	rec = do(e, http.MethodGet, "/audit-logs?actor_user_id=2", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/audit-logs?from=yesterday", admin, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/audit-logs?actor_user_id=x", admin, "").Code)
	assert.Equal(t, http.StatusBadRequest,
		do(e, http.MethodGet, "/audit-logs?from=2026-02-01T00:00:00Z&to=2026-01-01T00:00:00Z", admin, "").Code)
}

// ---- payment ----

func newPaymentServer(rate float64) *echo.Echo {
	store := memory.NewStore()
	uc := usecase.NewPaymentUsecase(
		store.Payments(),
		validator.NewPaymentValidator(),
		payment.NewSimulator(rate),
		nil,
		usecase.PaymentDefaults{Currency: "USD", PaymentMethod: "credit_card"},
		discardLogger(),
	)
	e, g := newEcho()
	NewPaymentHandler(uc).RegisterRoutes(g, middleware.AuthJWT(jwtm))
	return e
}

func charge(e *echo.Echo, token string, key string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	if key != "" {
		req.Header.Set(upstream.IdempotencyKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPaymentHandler_ChargeIdempotent(t *testing.T) {
	e := newPaymentServer(1)
	token := tokenFor(t, 3, model.RoleUser)
	body := `{"order_id":10,"user_id":3,"amount":"109.97"}`

	first := charge(e, token, "order-10-attempt-1", body)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	var p1 model.Payment
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &p1))
	assert.Equal(t, model.PaymentStatusCompleted, p1.Status)
	assert.Equal(t, "USD", p1.Currency)
	assert.NotContains(t, first.Body.String(), "order-10-attempt-1")

	again := charge(e, token, "order-10-attempt-1", body)
	require.Equal(t, http.StatusCreated, again.Code)
	var p2 model.Payment
	require.NoError(t, json.Unmarshal(again.Body.Bytes(), &p2))
	assert.Equal(t, p1.ID, p2.ID)

	rec := do(e, http.MethodGet, "/", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestPaymentHandler_ChargeErrors(t *testing.T) {
	e := newPaymentServer(1)
	token := tokenFor(t, 3, model.RoleUser)

	rec := charge(e, token, "", `{"order_id":10,"user_id":4,"amount":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MALFORMED", decodeError(t, rec).Code)

	rec = charge(e, token, "", `{"order_id":10,"amount":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_AMOUNT", decodeError(t, rec).Code)

	rec = charge(e, token, "", `{"order_id":10,"amount":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = charge(e, token, "", `{"order_id":10,"amount":"1000000000000.00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MALFORMED", decodeError(t, rec).Code)
}

func TestPaymentHandler_ChargeKeyReusedForOtherOrder(t *testing.T) {
	e := newPaymentServer(1)
	token := tokenFor(t, 3, model.RoleUser)

	rec := charge(e, token, "order-1-attempt-1", `{"order_id":1,"amount":"10.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = charge(e, token, "order-1-attempt-1", `{"order_id":42,"amount":"999.00"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, rec).Code)
}

func TestPaymentHandler_Refund(t *testing.T) {
	e := newPaymentServer(1)
	token := tokenFor(t, 3, model.RoleUser)
	require.Equal(t, http.StatusCreated, charge(e, token, "", `{"order_id":1,"amount":20}`).Code)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodPost, "/1/refund", tokenFor(t, 4, model.RoleUser), "").Code)

	rec := do(e, http.MethodPost, "/1/refund", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"refunded"`)

	rec = do(e, http.MethodPost, "/1/refund", token, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, rec).Code)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/1", token, "").Code)
}

func TestPaymentHandler_DeclinedIsNotAnError(t *testing.T) {
	e := newPaymentServer(0)
	token := tokenFor(t, 3, model.RoleUser)

	rec := charge(e, token, "", `{"order_id":1,"amount":20}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), payment.DeclinedReason)

	rec = do(e, http.MethodPost, "/1/refund", token, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}
