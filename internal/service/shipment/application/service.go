package application

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wangyingjie930/orderflow/internal/pkg/apperr"
	"github.com/wangyingjie930/orderflow/internal/pkg/clock"
	"github.com/wangyingjie930/orderflow/internal/pkg/logger"
	"github.com/wangyingjie930/orderflow/internal/pkg/metrics"
	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
	orderapp "github.com/wangyingjie930/orderflow/internal/service/order/application"
	"github.com/wangyingjie930/orderflow/internal/service/shipment/internal/domain"
)

const tracerName = "shipment-service"

// ShipmentService 是运单的生命周期引擎。它只通过 OrderLifecycle 操作订单。
type ShipmentService struct {
	repo   domain.ShipmentRepository
	orders OrderLifecycle
	clock  clock.Clock
	tracer trace.Tracer
	paging pagination.Defaults
	// orderTimeout bounds each call into the order module; zero means none.
	orderTimeout time.Duration

	transitions *metrics.TransitionRecorder
}

type Option func(*ShipmentService)

func WithClock(c clock.Clock) Option {
	return func(s *ShipmentService) { s.clock = c }
}

func WithMetrics(reg *metrics.Registry) Option {
	return func(s *ShipmentService) { s.transitions = reg.ForResource("shipment") }
}

func WithPaging(d pagination.Defaults) Option {
	return func(s *ShipmentService) { s.paging = d }
}

// WithOrderTimeout applies a deadline to every order module call. A call that runs out of time
// fails as an unclassified error, never as a business outcome.
func WithOrderTimeout(d time.Duration) Option {
	return func(s *ShipmentService) { s.orderTimeout = d }
}

func NewShipmentService(repo domain.ShipmentRepository, orders OrderLifecycle, opts ...Option) *ShipmentService {
	s := &ShipmentService{
		repo:   repo,
		orders: orders,
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
		s.transitions = (*metrics.Registry)(nil).ForResource("shipment")
	}
	return s
}

func (s *ShipmentService) Paging() pagination.Defaults {
	return s.paging
}

// Create ships the order and records the shipment as IN_TRANSIT.
func (s *ShipmentService) Create(ctx context.Context, req CreateShipmentRequest) (ShipmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "shipment.Create", trace.WithAttributes(attribute.Int64("order.id", int64(req.OrderID))))
	defer span.End()

	resp, err := s.create(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.KindOf(err).String())
		return ShipmentResponse{}, err
	}
	return resp, nil
}

func (s *ShipmentService) create(ctx context.Context, req CreateShipmentRequest) (ShipmentResponse, error) {
	if _, err := s.findOrder(ctx, req.OrderID); err != nil {
		return ShipmentResponse{}, err
	}
	if _, err := s.transitionOrder(ctx, req.OrderID, orderapp.OperationShip); err != nil {
		return ShipmentResponse{}, err
	}

	shipment := newShipmentRecord(req, s.clock.Now())
	if err := s.repo.Create(ctx, shipment); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Uint64("order_id", req.OrderID).
			Msg("order shipped but shipment could not be saved")
		return ShipmentResponse{}, err
	}

	logger.Ctx(ctx).Info().
		Uint64("shipment_id", shipment.ID).
		Uint64("order_id", shipment.OrderID).
		Str("carrier", shipment.Carrier).
		Msg("shipment created")
	return toShipmentResponse(shipment), nil
}

func (s *ShipmentService) FindByID(ctx context.Context, id uint64) (ShipmentResponse, bool, error) {
	ctx, span := s.tracer.Start(ctx, "shipment.FindByID", trace.WithAttributes(attribute.Int64("shipment.id", int64(id))))
	defer span.End()

	shipment, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrShipmentNotFound) {
		return ShipmentResponse{}, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return ShipmentResponse{}, false, err
	}
	return toShipmentResponse(shipment), true, nil
}

func (s *ShipmentService) FindAll(ctx context.Context, req pagination.Request) (pagination.Page[ShipmentResponse], error) {
	ctx, span := s.tracer.Start(ctx, "shipment.FindAll")
	defer span.End()

	records, total, err := s.repo.FindPage(ctx, req)
	if err != nil {
		span.RecordError(err)
		return pagination.Page[ShipmentResponse]{}, err
	}
	return pagination.Map(pagination.NewPage(records, req, total), toShipmentResponse), nil
}

func (s *ShipmentService) Deliver(ctx context.Context, id uint64) (ShipmentResponse, error) {
	return s.Transition(ctx, id, OperationDeliver)
}

// Transition delivers the shipment. The order is moved to DELIVERED first, so nothing is
// committed here unless the order accepted the change; a retry after a failed local write
// skips the order step once the order already reads DELIVERED.
func (s *ShipmentService) Transition(ctx context.Context, id uint64, op Operation) (ShipmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "shipment.Transition", trace.WithAttributes(
		attribute.Int64("shipment.id", int64(id)),
		attribute.String("shipment.operation", string(op)),
	))
	defer span.End()

	resp, err := s.transition(ctx, id, op)
	if err != nil {
		kind := apperr.KindOf(err)
		s.transitions.Observe(string(op), kind.String())
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
		logger.Ctx(ctx).Info().Err(err).Uint64("shipment_id", id).Str("operation", string(op)).Msg("shipment transition rejected")
		return ShipmentResponse{}, err
	}
	s.transitions.Observe(string(op), "success")
	return resp, nil
}

func (s *ShipmentService) transition(ctx context.Context, id uint64, op Operation) (ShipmentResponse, error) {
	if !domain.Lifecycle.Supports(op) {
		return ShipmentResponse{}, apperr.BusinessRule("unsupported shipment operation: %s", op)
	}

	shipment, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrShipmentNotFound) {
		return ShipmentResponse{}, apperr.NotFound("Shipment", id)
	}
	if err != nil {
		return ShipmentResponse{}, err
	}
	next, err := shipment.Plan(op)
	if err != nil {
		return ShipmentResponse{}, apperr.BusinessRule("%s", err)
	}

	order, err := s.findOrder(ctx, shipment.OrderID)
	if err != nil {
		return ShipmentResponse{}, err
	}
	if order.Status != orderapp.StatusDelivered {
		if _, err := s.transitionOrder(ctx, shipment.OrderID, orderapp.OperationDeliver); err != nil {
			return ShipmentResponse{}, err
		}
	}

	from := shipment.Status
	now := s.clock.Now()
	swapped, err := s.repo.UpdateStatus(ctx, id, from, next, now)
	if err != nil {
		return ShipmentResponse{}, err
	}
	if !swapped {
		return ShipmentResponse{}, s.lostRace(ctx, id, op)
	}
	shipment.MarkTransitioned(next, now)

	logger.Ctx(ctx).Info().
		Uint64("shipment_id", id).
		Str("from", string(from)).
		Str("to", string(next)).
		Msg("shipment transitioned")
	return toShipmentResponse(shipment), nil
}

func (s *ShipmentService) lostRace(ctx context.Context, id uint64, op Operation) error {
	current, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrShipmentNotFound) {
		return apperr.NotFound("Shipment", id)
	}
	if err != nil {
		return err
	}
	if _, err := current.Plan(op); err != nil {
		return apperr.BusinessRule("%s", err)
	}
	return apperr.Conflict("shipment %d was modified concurrently, retry %s", id, op)
}

// findOrder turns absence into NotFound; the order module itself reports absence as a value.
func (s *ShipmentService) findOrder(ctx context.Context, orderID uint64) (orderapp.OrderResponse, error) {
	callCtx, cancel := s.orderCallContext(ctx)
	defer cancel()

	order, ok, err := s.orders.FindByID(callCtx, orderID)
	if err != nil {
		return orderapp.OrderResponse{}, s.orderCallError(callCtx, err)
	}
	if !ok {
		return orderapp.OrderResponse{}, apperr.NotFound("Order", orderID)
	}
	return order, nil
}

func (s *ShipmentService) transitionOrder(ctx context.Context, orderID uint64, op orderapp.Operation) (orderapp.OrderResponse, error) {
	callCtx, cancel := s.orderCallContext(ctx)
	defer cancel()

	order, err := s.orders.Transition(callCtx, orderID, op)
	if err != nil {
		return orderapp.OrderResponse{}, s.orderCallError(callCtx, err)
	}
	return order, nil
}

func (s *ShipmentService) orderCallContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.orderTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.orderTimeout)
}

// orderCallError keeps the order module's classified failures intact, except when the call ran
// out of time: then the outcome is unknown and must not look like a business decision.
func (s *ShipmentService) orderCallError(callCtx context.Context, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return pkgerrors.Wrap(callCtx.Err(), "order module call timed out")
	}
	return err
}
