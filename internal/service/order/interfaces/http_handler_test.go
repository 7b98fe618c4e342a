package interfaces

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangyingjie930/orderflow/internal/pkg/apperr"
	"github.com/wangyingjie930/orderflow/internal/pkg/clock"
	"github.com/wangyingjie930/orderflow/internal/pkg/database/dbtest"
	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
	"github.com/wangyingjie930/orderflow/internal/pkg/web"
	"github.com/wangyingjie930/orderflow/internal/service/order/application"
	"github.com/wangyingjie930/orderflow/internal/service/order/internal/infrastructure"
)

var fixed = time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	clk := clock.NewFixed(fixed)
	repo := infrastructure.NewGormOrderRepository(dbtest.SQLite(t, infrastructure.AutoMigrate))
	svc := application.NewOrderService(repo,
		application.WithClock(clk),
		application.WithPaging(pagination.Defaults{
			Size: 20, MaxSize: 100, SortKey: "createdAt", SortDir: pagination.Desc,
			Sortable: infrastructure.SortableColumns,
		}),
	)

	mux := http.NewServeMux()
	NewOrderHandler(svc, web.NewValidator(), clk).RegisterRoutes(mux)
	return web.WithRouteFallback(mux, clk)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreateOrder(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/order", `{"email":"a@b.com","amount":99.99,"description":"lamp"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PENDING", body["status"])
	assert.Equal(t, 99.99, body["amount"])
	assert.Nil(t, body["updatedAt"])
	assert.Contains(t, body, "updatedAt")
	assert.Equal(t, fmt.Sprintf("/api/v1/order/%v", body["id"]), rec.Header().Get("Location"))
}

func TestCreateOrderValidation(t *testing.T) {
	h := newServer(t)

	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{"blank", `{}`, []string{"email", "amount"}},
		{"bad email and negative amount", `{"email":"nope","amount":-1}`, []string{"email", "amount"}},
		{"long description", fmt.Sprintf(`{"email":"a@b.com","amount":1,"description":"%s"}`, strings.Repeat("x", 501)), []string{"description"}},
		{"amount beyond the column range", `{"email":"a@b.com","amount":100000000000}`, []string{"amount"}},
		{"amount below a cent", `{"email":"a@b.com","amount":0.004}`, []string{"amount"}},
		{"long email", fmt.Sprintf(`{"email":"%s@b.com","amount":1}`, strings.Repeat("a", 250)), []string{"email"}},
		{"status is not accepted", `{"email":"a@b.com","amount":1,"status":"SHIPPED"}`, []string{"status"}},
		{"malformed", `{"email":`, []string{"body"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/order", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode[apperr.ErrorResponse](t, rec)
			assert.Equal(t, apperr.ValidationMessage, body.Message)
			assert.Equal(t, http.StatusBadRequest, body.Status)
			for _, f := range tt.fields {
				assert.Contains(t, body.Errors, f)
			}
		})
	}
}

func TestGetOrder(t *testing.T) {
	h := newServer(t)
	created := decode[application.OrderResponse](t, do(t, h, http.MethodPost, "/api/v1/order", `{"email":"a@b.com","amount":5}`))

	rec := do(t, h, http.MethodGet, fmt.Sprintf("/api/v1/order/%d", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[application.OrderResponse](t, rec)
	assert.Equal(t, created.ID, got.ID)

	rec = do(t, h, http.MethodGet, "/api/v1/order/777", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[apperr.ErrorResponse](t, rec)
	assert.Equal(t, "Order not found with id: 777", body.Message)
	assert.Empty(t, body.Errors)
	assert.True(t, body.Timestamp.Equal(fixed))

	rec = do(t, h, http.MethodGet, "/api/v1/order/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[apperr.ErrorResponse](t, rec).Errors, "id")
}

func TestTransitionOrder(t *testing.T) {
	h := newServer(t)
	created := decode[application.OrderResponse](t, do(t, h, http.MethodPost, "/api/v1/order", `{"email":"a@b.com","amount":5}`))
	path := func(op string) string { return fmt.Sprintf("/api/v1/order/%d/%s", created.ID, op) }

	for _, step := range []struct {
		op   string
		want application.Status
	}{
		{"confirm", application.StatusConfirmed},
		{"ship", application.StatusShipped},
	} {
		rec := do(t, h, http.MethodPatch, path(step.op), "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[application.OrderResponse](t, rec)
		assert.Equal(t, step.want, got.Status)
		require.NotNil(t, got.UpdatedAt)
	}

	rec := do(t, h, http.MethodPatch, path("cancel"), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[apperr.ErrorResponse](t, rec)
	assert.Contains(t, body.Message, "shipped")
	assert.Empty(t, body.Errors)

	rec = do(t, h, http.MethodPatch, path("refund"), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[apperr.ErrorResponse](t, rec).Errors, "operation")

	rec = do(t, h, http.MethodPatch, "/api/v1/order/4040/confirm", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found with id: 4040", decode[apperr.ErrorResponse](t, rec).Message)
}

func TestListOrders(t *testing.T) {
	h := newServer(t)
	for i := 0; i < 45; i++ {
		rec := do(t, h, http.MethodPost, "/api/v1/order", fmt.Sprintf(`{"email":"u%d@b.com","amount":%d}`, i, i+1))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/api/v1/order?page=0&size=20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[pagination.Page[application.OrderResponse]](t, rec)
	assert.Equal(t, 3, page.TotalPages)
	assert.EqualValues(t, 45, page.TotalElements)
	assert.Len(t, page.Content, 20)
	assert.False(t, page.Last)

	rec = do(t, h, http.MethodGet, "/api/v1/order?page=2&size=20&sort=amount,asc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[pagination.Page[application.OrderResponse]](t, rec)
	assert.Len(t, page.Content, 5)
	assert.True(t, page.Last)
	assert.Equal(t, 41.0, page.Content[0].Amount)

	rec = do(t, h, http.MethodGet, "/api/v1/order?size=1000&sort=password", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decode[apperr.ErrorResponse](t, rec).Errors
	assert.Contains(t, errs, "size")
	assert.Contains(t, errs, "sort")
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/v1/order/1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
