package port

import (
	"context"

	"github.com/maspithik/angkringan/internal/core/domain"
)

type UserRepository interface {
	// IsAdmin reports the users.is_admin flag
	IsAdmin(ctx context.Context, userID string) (bool, error)

	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)

	UpsertProfile(ctx context.Context, profile domain.Profile) error

	CountProfiles(ctx context.Context) (int64, error)
}

type OrderRepository interface {
	// CreateOrder inserts the order row only; items are inserted separately
	CreateOrder(ctx context.Context, order domain.Order) error

	InsertOrderItems(ctx context.Context, items []domain.OrderItem) error

	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)

	// ListOrders returns one page newest first plus the exact row count
	ListOrders(ctx context.Context, offset, limit int) ([]domain.Order, int, error)

	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error

	UpdatePaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus) error

	RecordPayment(ctx context.Context, orderID, method string, status domain.PaymentStatus, proofPath string) error

	Overview(ctx context.Context) (domain.Overview, error)
}

type NotificationRepository interface {
	// ListUnread returns the user's unread notifications newest first
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)

	Insert(ctx context.Context, n domain.Notification) error

	MarkAllRead(ctx context.Context, userID string) error
}

type MenuRepository interface {
	ListMenu(ctx context.Context, onlyActive bool) ([]domain.MenuItem, error)

	GetMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error)

	CreateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)

	UpdateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)

	DeleteMenuItem(ctx context.Context, id int64) error

	SetMenuStatus(ctx context.Context, id int64, status domain.MenuStatus) error
}

type PaymentRepository interface {
	ActivePaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)

	BankAccounts(ctx context.Context) ([]domain.BankAccount, error)

	// ActiveQRIS returns nil when no code is active
	ActiveQRIS(ctx context.Context) (*domain.QRISCode, error)
}
