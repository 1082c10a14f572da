package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/port"
)

// StorefrontService serves the customer pages that are not tab state.
type StorefrontService struct {
	menu    port.MenuRepository
	orders  port.OrderRepository
	users   port.UserRepository
	objects port.ObjectStorage
}

func NewStorefrontService(menu port.MenuRepository, orders port.OrderRepository, users port.UserRepository, objects port.ObjectStorage) *StorefrontService {
	return &StorefrontService{menu: menu, orders: orders, users: users, objects: objects}
}

// ListMenu returns the active menu with public image URLs.
func (s *StorefrontService) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	items, err := s.menu.ListMenu(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	for i := range items {
		items[i].ImageURL = resolveURL(s.objects, BucketMenuImages, items[i].ImageURL)
	}
	return items, nil
}

// MenuItem returns one orderable item. Inactive items are reported missing.
func (s *StorefrontService) MenuItem(ctx context.Context, id int64) (*domain.MenuItem, error) {
	item, err := s.menu.GetMenuItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != domain.MenuStatusActive {
		return nil, domain.ErrNotFound
	}
	item.ImageURL = resolveURL(s.objects, BucketMenuImages, item.ImageURL)
	return item, nil
}

// TransactionHistory returns the user's orders newest first with items.
func (s *StorefrontService) TransactionHistory(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	orders, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", userID, err)
	}
	for i := range orders {
		orders[i].ProofOfPaymentURL = resolveURL(s.objects, BucketPaymentProofs, orders[i].ProofOfPaymentURL)
	}
	return orders, nil
}

func (s *StorefrontService) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	return s.users.GetProfile(ctx, userID)
}

func (s *StorefrontService) UpdateProfile(ctx context.Context, userID, name, phoneNumber string) (*domain.Profile, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	profile := domain.Profile{
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		PhoneNumber: strings.TrimSpace(phoneNumber),
	}
	if err := s.users.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.users.GetProfile(ctx, userID)
}
