package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/megharaj2002/canteen/internal/domain/cart"
)

const instrumentationName = "github.com/megharaj2002/canteen/internal/domain/order"

// Option configures a Service.
type Option func(*Service)

// WithEnforcedTransitions rejects status changes outside the intended
// lifecycle with ErrInvalidTransition. By default they are written and
// logged.
func WithEnforcedTransitions(enforce bool) Option {
	return func(s *Service) { s.enforceTransitions = enforce }
}

// WithAvailabilityRecheck fails checkout with ErrProductUnavailable when a
// cart line refers to a product that is missing or no longer available.
func WithAvailabilityRecheck(recheck bool) Option {
	return func(s *Service) { s.recheckAvailability = recheck }
}

// WithTracerProvider sets the tracer provider for checkout spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service implements checkout and the order status lifecycle.
type Service struct {
	orders Repository

	enforceTransitions  bool
	recheckAvailability bool
	now                 func() time.Time

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	placed         metric.Int64Counter
	failures       metric.Int64Counter
	statusChanges  metric.Int64Counter
}

// NewService creates an order Service.
func NewService(orders Repository, opts ...Option) *Service {
	s := &Service{
		orders:         orders,
		now:            time.Now,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)
	s.placed = counter(meter, "canteen.orders.placed", "Orders created by checkout")
	s.failures = counter(meter, "canteen.orders.checkout_failures", "Checkouts that did not create an order")
	s.statusChanges = counter(meter, "canteen.orders.status_changes", "Order status updates")
	return s
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return metricnoop.Int64Counter{}
	}
	return c
}

// Checkout converts the user's cart into an order. The cart is locked for the
// duration of the transaction, the order and its lines are written and the
// cart lines are deleted. On any failure nothing is written and the cart is
// left as it was.
func (s *Service) Checkout(ctx context.Context, userID string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Checkout",
		trace.WithAttributes(attribute.String("canteen.user_id", userID)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
			s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", failureReason(rerr))))
		}
		span.End()
	}()

	var created *Order
	err := s.orders.InCheckoutTx(ctx, func(ctx context.Context, tx CheckoutTx) error {
		cartID, err := tx.LockCart(ctx, userID)
		if err != nil {
			if errors.Is(err, cart.ErrCartNotFound) {
				return ErrEmptyCart
			}
			return errors.Wrap(err, "lock cart")
		}

		lines, err := tx.CartLines(ctx, cartID)
		if err != nil {
			return errors.Wrap(err, "read cart lines")
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		if s.recheckAvailability {
			for _, l := range lines {
				if !l.Available {
					return &UnavailableError{ProductID: l.ProductID}
				}
			}
		}

		now := s.now().UTC()
		o := &Order{
			ID:        uuid.New(),
			UserID:    userID,
			Total:     cart.Total(lines),
			Status:    StatusPlaced,
			Lines:     make([]Line, len(lines)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		for i, l := range lines {
			o.Lines[i] = Line{
				ID:        uuid.New(),
				ProductID: l.ProductID,
				Title:     l.Title,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
			}
		}

		if err := tx.InsertOrder(ctx, o); err != nil {
			return errors.Wrap(err, "insert order")
		}
		if err := tx.ClearCart(ctx, cartID); err != nil {
			return errors.Wrap(err, "clear cart")
		}
		created = o
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrProductUnavailable) {
			return nil, err
		}
		return nil, &CreationError{UserID: userID, Err: err}
	}

	span.SetAttributes(
		attribute.String("canteen.order_id", created.ID.String()),
		attribute.Int("canteen.order_lines", len(created.Lines)),
	)
	s.placed.Add(ctx, 1)
	zctx.From(ctx).Info("Order placed",
		zap.Stringer("order_id", created.ID),
		zap.String("user_id", userID),
		zap.String("total", created.Total.StringFixed(2)),
		zap.Int("lines", len(created.Lines)),
	)
	return created, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrProductUnavailable):
		return "unavailable"
	default:
		return "storage"
	}
}

// SetStatus moves an order to the status named by raw. Any recognised
// status is accepted unless transition enforcement is enabled, in which case
// moves outside the intended lifecycle fail with ErrInvalidTransition.
func (s *Service) SetStatus(ctx context.Context, orderID uuid.UUID, raw string) error {
	next, err := ParseStatus(raw)
	if err != nil {
		return err
	}

	lg := zctx.From(ctx)
	prev, err := s.orders.UpdateStatus(ctx, orderID, next, s.now().UTC(), func(current Status) error {
		if current.CanTransitionTo(next) {
			return nil
		}
		if s.enforceTransitions {
			return &TransitionError{From: current, To: next}
		}
		lg.Warn("Order status moved outside lifecycle",
			zap.Stringer("order_id", orderID),
			zap.Stringer("from", current),
			zap.Stringer("to", next),
		)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) {
			return err
		}
		return errors.Wrap(err, "update status")
	}

	s.statusChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", prev.String()),
		attribute.String("to", next.String()),
	))
	return nil
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// ListForUser returns the user's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// ListAll returns every order with customer details, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list all orders")
	}
	return orders, nil
}
