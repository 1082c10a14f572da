package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/metrics"
	"github.com/maspithik/angkringan/internal/port"
)

// IdentitySource is anything that knows who is using the tab.
type IdentitySource interface {
	Identity() domain.Identity
}

// PaymentStarter receives a freshly submitted order. It runs after the cart
// is cleared and cannot fail the submission.
type PaymentStarter interface {
	Begin(ctx context.Context, receipt domain.Receipt) error
}

// CheckoutService turns a tab's cart into an order. The order row and its
// items are two separate writes: when the second fails the pending order is
// left behind without items and the cart is kept.
type CheckoutService struct {
	orders   port.OrderRepository
	payments PaymentStarter
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewCheckoutService(orders port.OrderRepository, payments PaymentStarter, m *metrics.Metrics) *CheckoutService {
	return &CheckoutService{
		orders:   orders,
		payments: payments,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *CheckoutService) Submit(ctx context.Context, session IdentitySource, cart *CartStore) (*domain.Receipt, error) {
	identity := session.Identity()
	if !identity.Authenticated() {
		return nil, ErrLoginRequired
	}

	lines := cart.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	total := lines.Total()

	now := s.now()
	order := domain.Order{
		ID:            uuid.NewString(),
		UserID:        identity.UserID,
		TotalAmount:   total,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.metrics.OrderFailed("create_order")
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.OrderItem{
			OrderID:    order.ID,
			MenuItemID: line.MenuItemID,
			Title:      line.Title,
			Quantity:   line.Quantity,
			Price:      line.Price,
		})
	}
	if err := s.orders.InsertOrderItems(ctx, items); err != nil {
		s.metrics.OrderFailed("insert_items")
		log.Printf("checkout: order %s left pending without items: %v", order.ID, err)
		return nil, fmt.Errorf("%w %s: %w", ErrIncompleteOrder, order.ID, err)
	}

	cart.Clear(ctx)
	s.metrics.OrderSubmitted()

	receipt := domain.Receipt{OrderID: order.ID, TotalAmount: total}
	if s.payments != nil {
		if err := s.payments.Begin(ctx, receipt); err != nil {
			log.Printf("checkout: start payment for order %s: %v", order.ID, err)
		}
	}
	return &receipt, nil
}
