package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/port"
)

// BucketPaymentProofs holds uploaded proofs of payment.
const BucketPaymentProofs = "buktibyr"

type PaymentService struct {
	orders   port.OrderRepository
	payments port.PaymentRepository
	objects  port.ObjectStorage
	now      func() time.Time
}

func NewPaymentService(orders port.OrderRepository, payments port.PaymentRepository, objects port.ObjectStorage) *PaymentService {
	return &PaymentService{
		orders:   orders,
		payments: payments,
		objects:  objects,
		now:      time.Now,
	}
}

// Begin checks the stored order against the receipt handed over by
// checkout. A total mismatch is logged, not rejected.
func (s *PaymentService) Begin(ctx context.Context, receipt domain.Receipt) error {
	order, err := s.orders.GetOrder(ctx, receipt.OrderID)
	if err != nil {
		return fmt.Errorf("get order %s: %w", receipt.OrderID, err)
	}
	if calculated := order.ItemsTotal(); calculated != receipt.TotalAmount {
		log.Printf("payment: total mismatch for order %s: items %d, receipt %d", order.ID, calculated, receipt.TotalAmount)
	}
	return nil
}

// Options lists what the payment step offers for orderID.
func (s *PaymentService) Options(ctx context.Context, identity domain.Identity, orderID string) (*domain.PaymentOptions, error) {
	order, err := s.ownedOrder(ctx, identity, orderID)
	if err != nil {
		return nil, err
	}

	methods, err := s.payments.ActivePaymentMethods(ctx)
	if err != nil {
		return nil, fmt.Errorf("load payment methods: %w", err)
	}
	accounts, err := s.payments.BankAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bank accounts: %w", err)
	}
	qris, err := s.payments.ActiveQRIS(ctx)
	if err != nil {
		return nil, fmt.Errorf("load qris code: %w", err)
	}

	return &domain.PaymentOptions{
		Receipt:      domain.Receipt{OrderID: order.ID, TotalAmount: order.TotalAmount},
		Methods:      methods,
		BankAccounts: accounts,
		QRIS:         qris,
	}, nil
}

type PayRequest struct {
	OrderID string
	Method  string
	Proof   io.Reader // required unless Method is domain.CashOnSite
}

// Pay records the chosen method. Cash on site stays pending; every other
// method uploads the proof and is marked paid.
func (s *PaymentService) Pay(ctx context.Context, identity domain.Identity, req PayRequest) error {
	if req.Method == "" {
		return ErrPaymentMethodRequired
	}
	if req.Method != domain.CashOnSite && req.Proof == nil {
		return ErrProofRequired
	}
	if _, err := s.ownedOrder(ctx, identity, req.OrderID); err != nil {
		return err
	}

	var proofPath string
	if req.Proof != nil {
		path := fmt.Sprintf("%s_%d.png", req.OrderID, s.now().UnixMilli())
		stored, err := s.objects.Upload(ctx, BucketPaymentProofs, path, req.Proof)
		if err != nil {
			return fmt.Errorf("upload proof of payment: %w", err)
		}
		proofPath = stored
	}

	status := domain.PaymentStatusPaid
	if req.Method == domain.CashOnSite {
		status = domain.PaymentStatusPending
	}
	if err := s.orders.RecordPayment(ctx, req.OrderID, req.Method, status, proofPath); err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	return nil
}

func (s *PaymentService) ownedOrder(ctx context.Context, identity domain.Identity, orderID string) (*domain.Order, error) {
	if !identity.Authenticated() {
		return nil, ErrLoginRequired
	}
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if order.UserID != identity.UserID && !identity.IsAdmin {
		return nil, ErrForbidden
	}
	return order, nil
}
