package infrastructure

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangyingjie930/orderflow/internal/pkg/database/dbtest"
	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) *GormOrderRepository {
	t.Helper()
	return NewGormOrderRepository(dbtest.SQLite(t, AutoMigrate))
}

func seed(t *testing.T, repo *GormOrderRepository, n int) []*domain.Order {
	t.Helper()
	orders := make([]*domain.Order, n)
	for i := range orders {
		o := domain.NewOrder(fmt.Sprintf("user%d@example.com", i), float64(i+1), "", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(context.Background(), o))
		orders[i] = o
	}
	return orders
}

func TestCreateAndFind(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	o := domain.NewOrder("a@example.com", 19.99, "two books", base)
	require.NoError(t, repo.Create(ctx, o))
	require.NotZero(t, o.ID)

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, "a@example.com", got.Email)
	assert.InDelta(t, 19.99, got.Amount, 0.001)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.True(t, got.CreatedAt.Equal(base))
	assert.Nil(t, got.UpdatedAt, "updatedAt stays null until the first transition")

	_, err = repo.FindByID(ctx, o.ID+100)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateStatusIsConditional(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	o := seed(t, repo, 1)[0]
	at := base.Add(time.Hour)

	ok, err := repo.UpdateStatus(ctx, o.ID, domain.StatusPending, domain.StatusCancelled, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, o.ID, domain.StatusPending, domain.StatusConfirmed, at)
	require.NoError(t, err)
	assert.False(t, ok, "stale expected status must not overwrite")

	ok, err = repo.UpdateStatus(ctx, o.ID+1, domain.StatusPending, domain.StatusConfirmed, at)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, got.UpdatedAt.Equal(at))
}

func TestFindPage(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	orders := seed(t, repo, 45)

	req := pagination.Request{Page: 2, Size: 20, Sort: pagination.Sort{Key: "createdAt", Column: "created_at", Direction: pagination.Desc}}
	got, total, err := repo.FindPage(ctx, req)
	require.NoError(t, err)
	assert.EqualValues(t, 45, total)
	require.Len(t, got, 5)
	// newest first: page 2 holds the five oldest
	assert.Equal(t, orders[4].ID, got[0].ID)
	assert.Equal(t, orders[0].ID, got[4].ID)

	req = pagination.Request{Page: 0, Size: 3, Sort: pagination.Sort{Key: "amount", Column: "amount", Direction: pagination.Asc}}
	got, _, err = repo.FindPage(ctx, req)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []uint64{orders[0].ID, orders[1].ID, orders[2].ID}, []uint64{got[0].ID, got[1].ID, got[2].ID})

	req = pagination.Request{Page: 9, Size: 20}
	got, total, err = repo.FindPage(ctx, req)
	require.NoError(t, err)
	assert.EqualValues(t, 45, total)
	assert.Empty(t, got)
}

func TestFindPageTieBreaksOnID(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	var ids []uint64
	for i := 0; i < 4; i++ {
		o := domain.NewOrder("same@example.com", 5, "", base)
		require.NoError(t, repo.Create(ctx, o))
		ids = append(ids, o.ID)
	}

	req := pagination.Request{Page: 0, Size: 10, Sort: pagination.Sort{Key: "createdAt", Column: "created_at", Direction: pagination.Desc}}
	got, _, err := repo.FindPage(ctx, req)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, o := range got {
		assert.Equal(t, ids[i], o.ID)
	}
}

func TestFindPageEmpty(t *testing.T) {
	repo := newRepo(t)
	got, total, err := repo.FindPage(context.Background(), pagination.Request{Size: 20})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
