package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/maspithik/angkringan/internal/adapter/auth"
	"github.com/maspithik/angkringan/internal/adapter/storage"
	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/core/service"
	"github.com/maspithik/angkringan/internal/port"
)

// memBackend is an in-memory stand-in for the SQL backend.
type memBackend struct {
	mu            sync.Mutex
	creds         map[string]domain.Credential
	profiles      map[string]domain.Profile
	admins        map[string]bool
	menu          map[int64]domain.MenuItem
	nextMenuID    int64
	orders        map[string]*domain.Order
	notifications []domain.Notification
}

func newMemBackend() *memBackend {
	return &memBackend{
		creds:    make(map[string]domain.Credential),
		profiles: make(map[string]domain.Profile),
		admins:   make(map[string]bool),
		menu:     make(map[int64]domain.MenuItem),
		orders:   make(map[string]*domain.Order),
	}
}

func (b *memBackend) CreateUser(ctx context.Context, cred domain.Credential, profile domain.Profile) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.creds[cred.Email]; ok {
		return domain.ErrEmailTaken
	}
	b.creds[cred.Email] = cred
	b.profiles[cred.UserID] = profile
	return nil
}

func (b *memBackend) FindCredential(ctx context.Context, email string) (*domain.Credential, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cred, ok := b.creds[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cred, nil
}

func (b *memBackend) setAdmin(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.admins[userID] = true
}

func (b *memBackend) IsAdmin(ctx context.Context, userID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.admins[userID], nil
}

func (b *memBackend) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (b *memBackend) UpsertProfile(ctx context.Context, profile domain.Profile) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profiles[profile.UserID] = profile
	return nil
}

func (b *memBackend) CountProfiles(ctx context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.profiles)), nil
}

func (b *memBackend) CreateOrder(ctx context.Context, order domain.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := order
	b.orders[order.ID] = &o
	return nil
}

func (b *memBackend) InsertOrderItems(ctx context.Context, items []domain.OrderItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, item := range items {
		o, ok := b.orders[item.OrderID]
		if !ok {
			return domain.ErrNotFound
		}
		o.Items = append(o.Items, item)
	}
	return nil
}

func (b *memBackend) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (b *memBackend) sortedOrders(keep func(domain.Order) bool) []domain.Order {
	var out []domain.Order
	for _, o := range b.orders {
		if keep(*o) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (b *memBackend) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortedOrders(func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (b *memBackend) ListOrders(ctx context.Context, offset, limit int) ([]domain.Order, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	all := b.sortedOrders(func(domain.Order) bool { return true })
	if offset >= len(all) {
		return nil, len(all), nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], len(all), nil
}

func (b *memBackend) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.orders[orderID]; ok {
		o.Status = status
	}
	return nil
}

func (b *memBackend) UpdatePaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.orders[orderID]; ok {
		o.PaymentStatus = status
	}
	return nil
}

func (b *memBackend) RecordPayment(ctx context.Context, orderID, method string, status domain.PaymentStatus, proofPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.orders[orderID]; ok {
		o.PaymentMethod = method
		o.PaymentStatus = status
		o.ProofOfPaymentURL = proofPath
	}
	return nil
}

func (b *memBackend) Overview(ctx context.Context) (domain.Overview, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ov domain.Overview
	for _, o := range b.orders {
		if o.PaymentStatus == domain.PaymentStatusPaid {
			ov.TotalRevenue += o.TotalAmount
		}
		if o.Status == domain.OrderStatusPending {
			ov.ActiveOrders++
		}
		for _, item := range o.Items {
			ov.ItemsSold += int64(item.Quantity)
		}
	}
	return ov, nil
}

func (b *memBackend) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Notification
	for i := len(b.notifications) - 1; i >= 0; i-- {
		n := b.notifications[i]
		if n.UserID == userID && !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

func (b *memBackend) Insert(ctx context.Context, n domain.Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifications = append(b.notifications, n)
	return nil
}

func (b *memBackend) MarkAllRead(ctx context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.notifications {
		if b.notifications[i].UserID == userID {
			b.notifications[i].Read = true
		}
	}
	return nil
}

func (b *memBackend) addMenuItem(item domain.MenuItem) domain.MenuItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextMenuID++
	item.ID = b.nextMenuID
	b.menu[item.ID] = item
	return item
}

func (b *memBackend) ListMenu(ctx context.Context, onlyActive bool) ([]domain.MenuItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.MenuItem
	for _, item := range b.menu {
		if !onlyActive || item.Status == domain.MenuStatusActive {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *memBackend) GetMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	item, ok := b.menu[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

func (b *memBackend) CreateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	created := b.addMenuItem(item)
	return &created, nil
}

func (b *memBackend) UpdateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.menu[item.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	b.menu[item.ID] = item
	return &item, nil
}

func (b *memBackend) DeleteMenuItem(ctx context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.menu[id]; !ok {
		return domain.ErrNotFound
	}
	delete(b.menu, id)
	return nil
}

func (b *memBackend) SetMenuStatus(ctx context.Context, id int64, status domain.MenuStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	item, ok := b.menu[id]
	if !ok {
		return domain.ErrNotFound
	}
	item.Status = status
	b.menu[id] = item
	return nil
}

func (b *memBackend) ActivePaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	return []domain.PaymentMethod{
		{ID: 1, Name: domain.CashOnSite, IsActive: true},
		{ID: 2, Name: "Transfer Bank", IsActive: true},
	}, nil
}

func (b *memBackend) BankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	return []domain.BankAccount{{ID: 1, BankName: "BCA", AccountNumber: "123", AccountHolder: "Mas Pithik"}}, nil
}

func (b *memBackend) ActiveQRIS(ctx context.Context) (*domain.QRISCode, error) {
	return nil, nil
}

// testStack wires the real services over memBackend and the in-memory
// adapters.
type testStack struct {
	backend    *memBackend
	tabs       *service.TabRegistry
	auth       *auth.Service
	storefront *service.StorefrontService
	checkout   *service.CheckoutService
	server     *httptest.Server

	mu     sync.Mutex
	tokens map[string]string
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	b := newMemBackend()
	realtime := storage.NewMemoryRealtime()
	notifications := storage.NewPublishingNotifications(b, realtime)
	devices := storage.NewMemoryDevices()
	authSvc := auth.NewService(b, auth.NewMemorySessionStore(), "handler-test-secret", time.Hour)
	objects := storage.NewFileObjectStorage(t.TempDir(), "http://cdn.test")

	tabs := service.NewTabRegistry(service.TabDeps{
		Storage:       func(deviceID, tabID string) port.LocalStorage { return devices.View(deviceID, tabID) },
		Auth:          func(deviceID string) port.AuthProvider { return authSvc.Device(deviceID) },
		Realtime:      realtime,
		Users:         b,
		Notifications: notifications,
	}, time.Hour)

	dispatcher := service.NewNotificationDispatcher(notifications, 16, nil)
	dispatcher.Start(1)

	payments := service.NewPaymentService(b, b, objects)
	s := &testStack{
		backend:    b,
		tabs:       tabs,
		auth:       authSvc,
		storefront: service.NewStorefrontService(b, b, b, objects),
		checkout:   service.NewCheckoutService(b, payments, nil),
		tokens:     make(map[string]string),
	}
	h := NewHTTPHandler(HTTPDeps{
		Tabs:       tabs,
		Storefront: s.storefront,
		Checkout:   s.checkout,
		Payments:   payments,
		Admin:      service.NewAdminService(b, b, b, objects, dispatcher),
		Verifier:   authSvc,
		Objects:    objects.Handler(),
		Timeout:    5 * time.Second,
	})
	s.server = httptest.NewServer(h.Routes())

	t.Cleanup(func() {
		s.server.Close()
		tabs.Shutdown()
		dispatcher.Close()
	})
	return s
}

// setToken records the bearer token every tab of device sends.
func (s *testStack) setToken(device, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[device] = token
}

func (s *testStack) token(device string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[device]
}

// client is one browser tab talking to the test server.
type client struct {
	t      *testing.T
	stack  *testStack
	base   string
	device string
	tab    string
}

func (s *testStack) client(t *testing.T, device, tab string) *client {
	return &client{t: t, stack: s, base: s.server.URL, device: device, tab: tab}
}

func (c *client) do(method, path, contentType string, body io.Reader) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set(HeaderDeviceID, c.device)
	req.Header.Set(HeaderTabID, c.tab)
	if token := c.stack.token(c.device); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}
