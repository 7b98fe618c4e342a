// Package order wires the order module. Its record and repository live under internal/, so other
// modules can only reach orders through application.OrderService and its contracts.
package order

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/wangyingjie930/orderflow/internal/pkg/clock"
	"github.com/wangyingjie930/orderflow/internal/pkg/metrics"
	"github.com/wangyingjie930/orderflow/internal/pkg/mq"
	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
	"github.com/wangyingjie930/orderflow/internal/pkg/web"
	"github.com/wangyingjie930/orderflow/internal/service/order/application"
	"github.com/wangyingjie930/orderflow/internal/service/order/interfaces"
	"github.com/wangyingjie930/orderflow/internal/service/order/internal/infrastructure"
)

// Deps are the collaborators the composition root hands to the module. Redis and EventWriter
// are optional.
type Deps struct {
	DB          *gorm.DB
	Redis       redis.Cmdable
	CacheTTL    time.Duration
	EventWriter mq.MessageWriter
	Metrics     *metrics.Registry
	Clock       clock.Clock
	Validator   *web.Validator
	// Paging carries sizes and the default sort; sortable keys are filled in by the module.
	Paging pagination.Defaults
}

type Module struct {
	Service *application.OrderService
	Handler *interfaces.OrderHandler
}

// AutoMigrate creates the order tables.
func AutoMigrate(db *gorm.DB) error {
	return infrastructure.AutoMigrate(db)
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

	opts := []application.Option{
		application.WithClock(deps.Clock),
		application.WithMetrics(deps.Metrics),
		application.WithPaging(paging),
	}
	if deps.Redis != nil {
		opts = append(opts, application.WithCache(infrastructure.NewRedisOrderCache(deps.Redis, deps.CacheTTL)))
	}
	if deps.EventWriter != nil {
		opts = append(opts, application.WithEventPublisher(infrastructure.NewKafkaStatusPublisher(deps.EventWriter)))
	}

	svc := application.NewOrderService(infrastructure.NewGormOrderRepository(deps.DB), opts...)
	return &Module{
		Service: svc,
		Handler: interfaces.NewOrderHandler(svc, deps.Validator, deps.Clock),
	}
}

func (m *Module) RegisterRoutes(mux *http.ServeMux) {
	m.Handler.RegisterRoutes(mux)
}
