package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/gorm"

	"github.com/wangyingjie930/orderflow/internal/pkg/apperr"
	"github.com/wangyingjie930/orderflow/internal/pkg/clock"
	"github.com/wangyingjie930/orderflow/internal/pkg/database/dbtest"
	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
	"github.com/wangyingjie930/orderflow/internal/service/order"
	orderapp "github.com/wangyingjie930/orderflow/internal/service/order/application"
	"github.com/wangyingjie930/orderflow/internal/service/shipment/internal/infrastructure"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

var now = time.Date(2024, 9, 3, 12, 0, 0, 0, time.UTC)

type fixture struct {
	orders    *orderapp.OrderService
	shipments *ShipmentService
}

func newFixture(t *testing.T, lifecycle func(*orderapp.OrderService) OrderLifecycle, opts ...Option) fixture {
	t.Helper()
	db := dbtest.SQLite(t, func(db *gorm.DB) error {
		if err := order.AutoMigrate(db); err != nil {
			return err
		}
		return infrastructure.AutoMigrate(db)
	})
	orders := order.New(order.Deps{DB: db, Clock: clock.NewFixed(now)}).Service

	var ol OrderLifecycle = orders
	if lifecycle != nil {
		ol = lifecycle(orders)
	}
	opts = append([]Option{WithClock(clock.NewFixed(now))}, opts...)
	return fixture{
		orders:    orders,
		shipments: NewShipmentService(infrastructure.NewGormShipmentRepository(db), ol, opts...),
	}
}

func (f fixture) confirmedOrder(t *testing.T) orderapp.OrderResponse {
	t.Helper()
	ctx := context.Background()
	o, err := f.orders.Create(ctx, orderapp.CreateOrderRequest{Email: "s@hip.io", Amount: 30})
	require.NoError(t, err)
	o, err = f.orders.Confirm(ctx, o.ID)
	require.NoError(t, err)
	return o
}

func TestCreateShipsOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	o := f.confirmedOrder(t)

	s, err := f.shipments.Create(ctx, CreateShipmentRequest{OrderID: o.ID, Carrier: "DHL", TrackingNumber: "JD1"})
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, s.Status)
	assert.Equal(t, o.ID, s.OrderID)
	assert.Nil(t, s.UpdatedAt)

	got, ok, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, orderapp.StatusShipped, got.Status)
}

func TestCreateForMissingOrder(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.shipments.Create(context.Background(), CreateShipmentRequest{OrderID: 404, Carrier: "DHL", TrackingNumber: "x"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Order not found with id: 404", err.Error())
}

func TestCreateForPendingOrderPropagatesBusinessRule(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	o, err := f.orders.Create(ctx, orderapp.CreateOrderRequest{Email: "p@b.co", Amount: 1})
	require.NoError(t, err)

	_, err = f.shipments.Create(ctx, CreateShipmentRequest{OrderID: o.ID, Carrier: "DHL", TrackingNumber: "x"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindBusinessRule, apperr.KindOf(err))
	assert.Equal(t, "cannot ship order in status pending", err.Error())

	page, err := f.shipments.FindAll(ctx, pagination.Request{Page: 0, Size: 20, Sort: pagination.Sort{Key: "id", Column: "id", Direction: pagination.Asc}})
	require.NoError(t, err)
	assert.Empty(t, page.Content, "no shipment is recorded when the order refuses")
}

func TestDeliverMovesBothRecords(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	o := f.confirmedOrder(t)
	s, err := f.shipments.Create(ctx, CreateShipmentRequest{OrderID: o.ID, Carrier: "DHL", TrackingNumber: "JD2"})
	require.NoError(t, err)

	delivered, err := f.shipments.Deliver(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, delivered.Status)
	require.NotNil(t, delivered.UpdatedAt)

	got, _, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orderapp.StatusDelivered, got.Status)

	_, err = f.shipments.Deliver(ctx, s.ID)
	require.Error(t, err)
	assert.Equal(t, "cannot deliver shipment in status delivered", err.Error())
}

func TestDeliverSkipsAlreadyDeliveredOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	o := f.confirmedOrder(t)
	s, err := f.shipments.Create(ctx, CreateShipmentRequest{OrderID: o.ID, Carrier: "DHL", TrackingNumber: "JD3"})
	require.NoError(t, err)

	_, err = f.orders.Deliver(ctx, o.ID)
	require.NoError(t, err)

	delivered, err := f.shipments.Deliver(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, delivered.Status)
}

func TestDeliverUnknownShipment(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.shipments.Deliver(context.Background(), 77)
	require.Error(t, err)
	assert.Equal(t, "Shipment not found with id: 77", err.Error())
}

// slowOrders blocks until the caller's context ends.
type slowOrders struct{ OrderLifecycle }

func (slowOrders) FindByID(ctx context.Context, _ uint64) (orderapp.OrderResponse, bool, error) {
	<-ctx.Done()
	return orderapp.OrderResponse{}, false, ctx.Err()
}

func TestOrderTimeoutIsUnclassified(t *testing.T) {
	f := newFixture(t, func(o *orderapp.OrderService) OrderLifecycle { return slowOrders{o} },
		WithOrderTimeout(20*time.Millisecond))

	_, err := f.shipments.Create(context.Background(), CreateShipmentRequest{OrderID: 1, Carrier: "DHL", TrackingNumber: "x"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnclassified, apperr.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// failingOrders returns a business rejection from Transition.
type failingOrders struct {
	OrderLifecycle
	err error
}

func (f failingOrders) Transition(context.Context, uint64, orderapp.Operation) (orderapp.OrderResponse, error) {
	return orderapp.OrderResponse{}, f.err
}

func TestOrderErrorsPropagateUnmodified(t *testing.T) {
	rejection := apperr.Conflict("order 1 was modified concurrently, retry ship")
	f := newFixture(t, func(o *orderapp.OrderService) OrderLifecycle { return failingOrders{o, rejection} },
		WithOrderTimeout(time.Second))
	o := f.confirmedOrder(t)

	_, err := f.shipments.Create(context.Background(), CreateShipmentRequest{OrderID: o.ID, Carrier: "DHL", TrackingNumber: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rejection))
}
