package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/port"
)

const (
	// BucketMenuImages holds menu item pictures.
	BucketMenuImages = "menuimg"

	DefaultTransactionsPerPage = 10

	defaultMenuTitle    = "Untitled"
	defaultMenuCategory = "Uncategorized"
)

// Notifier delivers a message to a user's notification feed.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

// ImageUpload is a picture attached to a menu create or update.
type ImageUpload struct {
	Filename string
	Body     io.Reader
}

// AdminService is the back office. Every call requires an admin identity.
type AdminService struct {
	menu     port.MenuRepository
	orders   port.OrderRepository
	users    port.UserRepository
	objects  port.ObjectStorage
	notifier Notifier
	now      func() time.Time
}

func NewAdminService(menu port.MenuRepository, orders port.OrderRepository, users port.UserRepository, objects port.ObjectStorage, notifier Notifier) *AdminService {
	return &AdminService{
		menu:     menu,
		orders:   orders,
		users:    users,
		objects:  objects,
		notifier: notifier,
		now:      time.Now,
	}
}

func requireAdmin(identity domain.Identity) error {
	if !identity.Authenticated() {
		return ErrLoginRequired
	}
	if !identity.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// Menu lists every item, inactive ones included.
func (s *AdminService) Menu(ctx context.Context, identity domain.Identity) ([]domain.MenuItem, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	items, err := s.menu.ListMenu(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	for i := range items {
		items[i].ImageURL = resolveURL(s.objects, BucketMenuImages, items[i].ImageURL)
	}
	return items, nil
}

func (s *AdminService) CreateMenuItem(ctx context.Context, identity domain.Identity, item domain.MenuItem, image *ImageUpload) (*domain.MenuItem, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.Title) == "" {
		item.Title = defaultMenuTitle
	}
	if strings.TrimSpace(item.Category) == "" {
		item.Category = defaultMenuCategory
	}
	if item.Status == "" {
		item.Status = domain.MenuStatusActive
	}
	if item.Price < 0 {
		return nil, ErrInvalidPrice
	}
	if image != nil {
		path, err := s.uploadImage(ctx, image)
		if err != nil {
			return nil, err
		}
		item.ImageURL = path
	}
	item.CreatedAt = s.now()

	created, err := s.menu.CreateMenuItem(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("create menu item: %w", err)
	}
	return created, nil
}

// MenuEdit changes an existing menu item. Empty Title, Category and Status
// and a nil Price keep the stored values.
type MenuEdit struct {
	ID          int64
	Title       string
	Description string
	Category    string
	Status      domain.MenuStatus
	Price       *int64
}

// UpdateMenuItem applies edit to an existing item. The stored image is kept
// unless a new one is uploaded.
func (s *AdminService) UpdateMenuItem(ctx context.Context, identity domain.Identity, edit MenuEdit, image *ImageUpload) (*domain.MenuItem, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	if edit.Price != nil && *edit.Price < 0 {
		return nil, ErrInvalidPrice
	}
	current, err := s.menu.GetMenuItem(ctx, edit.ID)
	if err != nil {
		return nil, err
	}
	item := *current
	item.Description = edit.Description
	if edit.Title != "" {
		item.Title = edit.Title
	}
	if edit.Category != "" {
		item.Category = edit.Category
	}
	if edit.Status != "" {
		item.Status = edit.Status
	}
	if edit.Price != nil {
		item.Price = *edit.Price
	}
	if image != nil {
		path, err := s.uploadImage(ctx, image)
		if err != nil {
			return nil, err
		}
		item.ImageURL = path
	}

	updated, err := s.menu.UpdateMenuItem(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("update menu item %d: %w", item.ID, err)
	}
	return updated, nil
}

func (s *AdminService) DeleteMenuItem(ctx context.Context, identity domain.Identity, id int64) error {
	if err := requireAdmin(identity); err != nil {
		return err
	}
	if err := s.menu.DeleteMenuItem(ctx, id); err != nil {
		return fmt.Errorf("delete menu item %d: %w", id, err)
	}
	return nil
}

// ToggleMenuStatus flips an item between active and inactive.
func (s *AdminService) ToggleMenuStatus(ctx context.Context, identity domain.Identity, id int64) (domain.MenuStatus, error) {
	if err := requireAdmin(identity); err != nil {
		return "", err
	}
	item, err := s.menu.GetMenuItem(ctx, id)
	if err != nil {
		return "", err
	}
	next := item.Status.Toggle()
	if err := s.menu.SetMenuStatus(ctx, id, next); err != nil {
		return "", fmt.Errorf("set menu status %d: %w", id, err)
	}
	return next, nil
}

func (s *AdminService) UpdatePaymentStatus(ctx context.Context, identity domain.Identity, orderID string, status domain.PaymentStatus) error {
	if err := requireAdmin(identity); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: payment status %q", ErrInvalidStatus, status)
	}
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.orders.UpdatePaymentStatus(ctx, orderID, status); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	s.notify(ctx, order.UserID, fmt.Sprintf("Payment status for order #%s updated to %s", orderID, status))
	return nil
}

func (s *AdminService) UpdateOrderStatus(ctx context.Context, identity domain.Identity, orderID string, status domain.OrderStatus) error {
	if err := requireAdmin(identity); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: order status %q", ErrInvalidStatus, status)
	}
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.orders.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	s.notify(ctx, order.UserID, fmt.Sprintf("Order status for order #%s updated to %s", orderID, status))
	return nil
}

func (s *AdminService) Overview(ctx context.Context, identity domain.Identity) (*domain.Overview, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	overview, err := s.orders.Overview(ctx)
	if err != nil {
		return nil, fmt.Errorf("load overview: %w", err)
	}
	users, err := s.users.CountProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("count profiles: %w", err)
	}
	overview.TotalUsers = users
	return &overview, nil
}

// Transactions returns one page of orders, newest first. page starts at 1.
func (s *AdminService) Transactions(ctx context.Context, identity domain.Identity, page, perPage int) (*domain.TransactionPage, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultTransactionsPerPage
	}

	orders, total, err := s.orders.ListOrders(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	for i := range orders {
		orders[i].ProofOfPaymentURL = resolveURL(s.objects, BucketPaymentProofs, orders[i].ProofOfPaymentURL)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return &domain.TransactionPage{
		Transactions: orders,
		Page:         page,
		PerPage:      perPage,
		Total:        total,
		TotalPages:   totalPages,
	}, nil
}

func (s *AdminService) notify(ctx context.Context, userID, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, message); err != nil {
		log.Printf("admin: notify %s: %v", userID, err)
	}
}

func (s *AdminService) uploadImage(ctx context.Context, image *ImageUpload) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(image.Filename)), ".")
	if ext == "" {
		ext = "png"
	}
	path := fmt.Sprintf("menu-images/%s.%s", uuid.NewString(), ext)
	stored, err := s.objects.Upload(ctx, BucketMenuImages, path, image.Body)
	if err != nil {
		return "", fmt.Errorf("upload menu image: %w", err)
	}
	return stored, nil
}

// resolveURL turns a stored object path into a public URL. Absolute URLs
// are returned unchanged.
func resolveURL(objects port.ObjectStorage, bucket, stored string) string {
	if stored == "" || objects == nil {
		return stored
	}
	if strings.HasPrefix(stored, "http://") || strings.HasPrefix(stored, "https://") {
		return stored
	}
	return objects.PublicURL(bucket, stored)
}
