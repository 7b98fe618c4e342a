// Package shipment wires the shipment module. It reaches orders only through OrderLifecycle,
// either the in-process order engine or the HTTP client for a remote order service.
package shipment

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/wangyingjie930/orderflow/internal/pkg/clock"
	"github.com/wangyingjie930/orderflow/internal/pkg/httpclient"
	"github.com/wangyingjie930/orderflow/internal/pkg/metrics"
	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
	"github.com/wangyingjie930/orderflow/internal/pkg/web"
	"github.com/wangyingjie930/orderflow/internal/service/shipment/application"
	"github.com/wangyingjie930/orderflow/internal/service/shipment/interfaces"
	"github.com/wangyingjie930/orderflow/internal/service/shipment/internal/infrastructure"
)

type Deps struct {
	DB     *gorm.DB
	Orders application.OrderLifecycle
	// OrderTimeout bounds each call into the order module; zero means the request context only.
	OrderTimeout time.Duration
	Metrics      *metrics.Registry
	Clock        clock.Clock
	Validator    *web.Validator
	Paging       pagination.Defaults
}

type Module struct {
	Service *application.ShipmentService
	Handler *interfaces.ShipmentHandler
}

func AutoMigrate(db *gorm.DB) error {
	return infrastructure.AutoMigrate(db)
}

// RemoteOrders returns an OrderLifecycle backed by the order service at baseURL.
func RemoteOrders(baseURL string, client *httpclient.Client) application.OrderLifecycle {
	return infrastructure.NewOrderHTTPClient(baseURL, client)
}

// DiscoveredOrders returns an OrderLifecycle that looks up an order service instance before each call.
func DiscoveredOrders(discover func() (string, error), client *httpclient.Client) application.OrderLifecycle {
	return infrastructure.NewDiscoveredOrderHTTPClient(discover, client)
}

func New(deps Deps) *Module {
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if deps.Validator == nil {
		deps.Validator = web.NewValidator()
	}
	paging := deps.Paging
	paging.Sortable = infrastructure.SortableColumns
	if paging.Size <= 0 {
		paging.Size = 20
	}
	if paging.MaxSize < paging.Size {
		paging.MaxSize = max(paging.Size, 100)
	}
	if _, ok := paging.Sortable[paging.SortKey]; !ok {
		paging.SortKey, paging.SortDir = "createdAt", pagination.Desc
	}

	svc := application.NewShipmentService(
		infrastructure.NewGormShipmentRepository(deps.DB),
		deps.Orders,
		application.WithClock(deps.Clock),
		application.WithMetrics(deps.Metrics),
		application.WithPaging(paging),
		application.WithOrderTimeout(deps.OrderTimeout),
	)
	return &Module{
		Service: svc,
		Handler: interfaces.NewShipmentHandler(svc, deps.Validator, deps.Clock),
	}
}

func (m *Module) RegisterRoutes(mux *http.ServeMux) {
	m.Handler.RegisterRoutes(mux)
}
