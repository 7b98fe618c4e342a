package order

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangyingjie930/orderflow/internal/pkg/database/dbtest"
	"github.com/wangyingjie930/orderflow/internal/pkg/metrics"
	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
	"github.com/wangyingjie930/orderflow/internal/service/order/application"
)

func TestNewFillsPagingDefaults(t *testing.T) {
	m := New(Deps{
		DB:      dbtest.SQLite(t, AutoMigrate),
		Metrics: metrics.New("test"),
		Paging:  pagination.Defaults{SortKey: "bogus"},
	})

	paging := m.Service.Paging()
	assert.Equal(t, 20, paging.Size)
	assert.Equal(t, 100, paging.MaxSize)
	assert.Equal(t, "createdAt", paging.SortKey)
	assert.Equal(t, pagination.Desc, paging.SortDir)
	assert.Contains(t, paging.Sortable, "amount")
}

func TestModuleServesRoutes(t *testing.T) {
	m := New(Deps{DB: dbtest.SQLite(t, AutoMigrate)})
	mux := http.NewServeMux()
	m.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/order", strings.NewReader(`{"email":"a@b.com","amount":2}`))
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got, ok, err := m.Service.FindByID(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, application.StatusPending, got.Status)
}
