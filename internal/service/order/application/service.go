// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/wangyingjie930/orderflow/internal/pkg/apperr"
	"github.com/wangyingjie930/orderflow/internal/pkg/clock"
	"github.com/wangyingjie930/orderflow/internal/pkg/logger"
	"github.com/wangyingjie930/orderflow/internal/pkg/metrics"
	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain"
	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain/port"
)

const tracerName = "order-service"

// sharedReadTimeout bounds a repository read shared by concurrent cache misses.
const sharedReadTimeout = 5 * time.Second

// OrderService 是订单的生命周期引擎：它是唯一可以修改订单记录的组件。
// Each call runs to completion on the caller's goroutine.
type OrderService struct {
	repo   domain.OrderRepository
	cache  port.OrderCache
	events port.StatusEventPublisher
	clock  clock.Clock
	tracer trace.Tracer
	paging pagination.Defaults

	transitions *metrics.TransitionRecorder
	reads       singleflight.Group
}

type Option func(*OrderService)

// WithCache enables read-through caching of FindByID.
func WithCache(c port.OrderCache) Option {
	return func(s *OrderService) { s.cache = c }
}

// WithEventPublisher publishes an event after every committed transition.
func WithEventPublisher(p port.StatusEventPublisher) Option {
	return func(s *OrderService) { s.events = p }
}

func WithMetrics(reg *metrics.Registry) Option {
	return func(s *OrderService) { s.transitions = reg.ForResource("order") }
}

func WithClock(c clock.Clock) Option {
	return func(s *OrderService) { s.clock = c }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *OrderService) { s.tracer = t }
}

// WithPaging overrides the page size limits and sort keys used by the HTTP layer.
func WithPaging(d pagination.Defaults) Option {
	return func(s *OrderService) { s.paging = d }
}

func NewOrderService(repo domain.OrderRepository, opts ...Option) *OrderService {
	s := &OrderService{
		repo:   repo,
		clock:  clock.NewSystem(),
		tracer: otel.Tracer(tracerName),
		paging: pagination.Defaults{
			Size:     20,
			MaxSize:  100,
			SortKey:  "createdAt",
			SortDir:  pagination.Desc,
			Sortable: map[string]string{"id": "id", "createdAt": "created_at"},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.transitions == nil {
		s.transitions = (*metrics.Registry)(nil).ForResource("order")
	}
	return s
}

// Paging returns the defaults collection queries are parsed with.
func (s *OrderService) Paging() pagination.Defaults {
	return s.paging
}

// Create 持久化一个新订单，状态固定为 PENDING。
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.Create")
	defer span.End()

	order := newOrderRecord(req, s.clock.Now())
	if err := s.repo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save order")
		return OrderResponse{}, err
	}
	s.invalidate(ctx, order.ID)

	span.SetAttributes(attribute.Int64("order.id", int64(order.ID)))
	logger.Ctx(ctx).Info().Uint64("order_id", order.ID).Msg("order created")
	return toOrderResponse(order), nil
}

// FindByID reports absence as ok == false, never as an error.
func (s *OrderService) FindByID(ctx context.Context, id uint64) (OrderResponse, bool, error) {
	ctx, span := s.tracer.Start(ctx, "order.FindByID", trace.WithAttributes(attribute.Int64("order.id", int64(id))))
	defer span.End()

	order, err := s.load(ctx, id)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return OrderResponse{}, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load order")
		return OrderResponse{}, false, err
	}
	return toOrderResponse(order), true, nil
}

// FindAll returns one page of orders.
func (s *OrderService) FindAll(ctx context.Context, req pagination.Request) (pagination.Page[OrderResponse], error) {
	ctx, span := s.tracer.Start(ctx, "order.FindAll", trace.WithAttributes(
		attribute.Int("page", req.Page),
		attribute.Int("size", req.Size),
	))
	defer span.End()

	records, total, err := s.repo.FindPage(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load order page")
		return pagination.Page[OrderResponse]{}, err
	}
	return pagination.Map(pagination.NewPage(records, req, total), toOrderResponse), nil
}

func (s *OrderService) Confirm(ctx context.Context, id uint64) (OrderResponse, error) {
	return s.Transition(ctx, id, OperationConfirm)
}

func (s *OrderService) Ship(ctx context.Context, id uint64) (OrderResponse, error) {
	return s.Transition(ctx, id, OperationShip)
}

func (s *OrderService) Deliver(ctx context.Context, id uint64) (OrderResponse, error) {
	return s.Transition(ctx, id, OperationDeliver)
}

func (s *OrderService) Cancel(ctx context.Context, id uint64) (OrderResponse, error) {
	return s.Transition(ctx, id, OperationCancel)
}

// Transition applies op to the order. The write is a compare-and-swap on the status that was
// read, so of two racing transitions at most one commits; the loser gets a BusinessRule error
// when op is no longer valid, or a Conflict when it still is.
func (s *OrderService) Transition(ctx context.Context, id uint64, op Operation) (OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.Transition", trace.WithAttributes(
		attribute.Int64("order.id", int64(id)),
		attribute.String("order.operation", string(op)),
	))
	defer span.End()

	resp, err := s.transition(ctx, id, op)
	if err != nil {
		kind := apperr.KindOf(err)
		s.transitions.Observe(string(op), kind.String())
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())

		event := logger.Ctx(ctx).Info()
		if kind == apperr.KindUnclassified {
			event = logger.Ctx(ctx).Error()
		}
		event.Err(err).Uint64("order_id", id).Str("operation", string(op)).Msg("order transition rejected")
		return OrderResponse{}, err
	}

	s.transitions.Observe(string(op), "success")
	return resp, nil
}

func (s *OrderService) transition(ctx context.Context, id uint64, op Operation) (OrderResponse, error) {
	if !domain.Lifecycle.Supports(op) {
		return OrderResponse{}, apperr.BusinessRule("unsupported order operation: %s", op)
	}

	order, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return OrderResponse{}, apperr.NotFound("Order", id)
	}
	if err != nil {
		return OrderResponse{}, err
	}

	next, err := order.Plan(op)
	if err != nil {
		return OrderResponse{}, apperr.BusinessRule("%s", err)
	}

	from := order.Status
	now := s.clock.Now()
	swapped, err := s.repo.UpdateStatus(ctx, id, from, next, now)
	if err != nil {
		return OrderResponse{}, err
	}
	if !swapped {
		return OrderResponse{}, s.lostRace(ctx, id, op)
	}

	order.MarkTransitioned(next, now)
	s.invalidate(ctx, id)
	s.publish(ctx, domain.OrderStatusChanged{
		EventID:    uuid.NewString(),
		OrderID:    id,
		From:       from,
		To:         next,
		Operation:  op,
		OccurredAt: now,
	})

	logger.Ctx(ctx).Info().
		Uint64("order_id", id).
		Str("from", string(from)).
		Str("to", string(next)).
		Msg("order transitioned")
	return toOrderResponse(order), nil
}

// lostRace classifies a compare-and-swap that matched no row by re-reading the order.
func (s *OrderService) lostRace(ctx context.Context, id uint64, op Operation) error {
	current, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return apperr.NotFound("Order", id)
	}
	if err != nil {
		return err
	}
	if _, err := current.Plan(op); err != nil {
		return apperr.BusinessRule("%s", err)
	}
	return apperr.Conflict("order %d was modified concurrently, retry %s", id, op)
}

func (s *OrderService) load(ctx context.Context, id uint64) (*domain.Order, error) {
	if s.cache == nil {
		return s.repo.FindByID(ctx, id)
	}

	cached, err := s.cache.Get(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, port.ErrCacheMiss) {
		logger.Ctx(ctx).Warn().Err(err).Uint64("order_id", id).Msg("order cache read failed, falling back to repository")
	}

	// 同一个 id 的并发未命中只查询一次数据库。
	// The shared load ignores the first caller's cancellation; each caller still stops waiting on its own ctx.
	ch := s.reads.DoChan(strconv.FormatUint(id, 10), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedReadTimeout)
		defer cancel()
		order, err := s.repo.FindByID(loadCtx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(loadCtx, order); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Uint64("order_id", id).Msg("order cache write failed")
		}
		return order, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Val.(*domain.Order), nil
}

func (s *OrderService) invalidate(ctx context.Context, id uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Uint64("order_id", id).Msg("order cache invalidation failed")
	}
}

// publish never fails the caller: the transition is already committed.
func (s *OrderService) publish(ctx context.Context, event domain.OrderStatusChanged) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishStatusChanged(ctx, event); err != nil {
		trace.SpanFromContext(ctx).RecordError(err, trace.WithAttributes(attribute.Bool("event.dropped", true)))
		logger.Ctx(ctx).Error().Err(err).
			Uint64("order_id", event.OrderID).
			Str("event_id", event.EventID).
			Msg("failed to publish order status event")
	}
}
