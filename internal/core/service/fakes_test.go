package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/port"
)

var errBackend = errors.New("backend unavailable")

// fakeDevice is shared storage for several tabs. Sibling events are queued
// and delivered by flush so tests control interleaving.
type fakeDevice struct {
	mu       sync.Mutex
	items    map[string]string
	watchers map[string]func(domain.StorageEvent)
	pending  []domain.StorageEvent
	failSet  bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		items:    make(map[string]string),
		watchers: make(map[string]func(domain.StorageEvent)),
	}
}

func (d *fakeDevice) view(tabID string) port.LocalStorage {
	return &fakeStorageView{device: d, tabID: tabID}
}

func (d *fakeDevice) value(key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.items[key]
	return v, ok
}

func (d *fakeDevice) flush() {
	d.mu.Lock()
	events := d.pending
	d.pending = nil
	watchers := make(map[string]func(domain.StorageEvent), len(d.watchers))
	for k, v := range d.watchers {
		watchers[k] = v
	}
	d.mu.Unlock()

	for _, ev := range events {
		for tab, fn := range watchers {
			if tab != ev.Origin {
				fn(ev)
			}
		}
	}
}

type fakeStorageView struct {
	device *fakeDevice
	tabID  string
}

func (v *fakeStorageView) GetItem(ctx context.Context, key string) (string, bool, error) {
	value, ok := v.device.value(key)
	return value, ok, nil
}

func (v *fakeStorageView) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := v.device
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failSet {
		return errBackend
	}
	d.items[key] = value
	d.pending = append(d.pending, domain.StorageEvent{Key: key, NewValue: &value, Origin: v.tabID})
	return nil
}

func (v *fakeStorageView) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := v.device
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failSet {
		return errBackend
	}
	delete(d.items, key)
	d.pending = append(d.pending, domain.StorageEvent{Key: key, Origin: v.tabID})
	return nil
}

func (v *fakeStorageView) Watch(ctx context.Context, fn func(domain.StorageEvent)) (func(), error) {
	d := v.device
	d.mu.Lock()
	d.watchers[v.tabID] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.watchers, v.tabID)
		d.mu.Unlock()
	}, nil
}

type fakeRealtime struct {
	mu     sync.Mutex
	subs   map[int]func(domain.ChangeEvent)
	tables map[int]string
	nextID int
	opened int

	// gate, when set, holds Subscribe until it is closed; entered is
	// signalled once Subscribe is waiting.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{subs: make(map[int]func(domain.ChangeEvent)), tables: make(map[int]string)}
}

type fakeSubscription struct {
	rt *fakeRealtime
	id int
}

func (s fakeSubscription) Unsubscribe() error {
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	delete(s.rt.subs, s.id)
	delete(s.rt.tables, s.id)
	return nil
}

func (r *fakeRealtime) Subscribe(ctx context.Context, table string, fn func(domain.ChangeEvent)) (port.Subscription, error) {
	if r.gate != nil {
		r.entered <- struct{}{}
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.tables[id] = table
	r.opened++
	return fakeSubscription{rt: r, id: id}, nil
}

func (r *fakeRealtime) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	r.mu.Lock()
	var fns []func(domain.ChangeEvent)
	for id, fn := range r.subs {
		if r.tables[id] == ev.Table {
			fns = append(fns, fn)
		}
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
	return nil
}

func (r *fakeRealtime) active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

type fakeAuth struct {
	mu        sync.Mutex
	session   *domain.Session
	err       error
	listeners map[int]func(domain.AuthEvent)
	nextID    int

	// gate, when set, holds CurrentSession until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeAuth(session *domain.Session) *fakeAuth {
	return &fakeAuth{session: session, listeners: make(map[int]func(domain.AuthEvent))}
}

func (a *fakeAuth) CurrentSession(ctx context.Context) (*domain.Session, error) {
	if a.gate != nil {
		a.entered <- struct{}{}
		<-a.gate
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session, a.err
}

func (a *fakeAuth) OnSessionChange(fn func(domain.AuthEvent)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *fakeAuth) emit(ev domain.AuthEvent) {
	a.mu.Lock()
	a.session = ev.Session
	fns := make([]func(domain.AuthEvent), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (a *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	s := &domain.Session{UserID: "user-" + email, Email: email}
	a.emit(domain.AuthEvent{Type: domain.AuthSignedIn, Session: s})
	return s, nil
}

func (a *fakeAuth) SignUp(ctx context.Context, email, password string, profile domain.Profile) (*domain.Session, error) {
	return a.SignInWithPassword(ctx, email, password)
}

func (a *fakeAuth) SignOut(ctx context.Context) error {
	a.emit(domain.AuthEvent{Type: domain.AuthSignedOut})
	return nil
}

type fakeUsers struct {
	mu       sync.Mutex
	admins   map[string]bool
	profiles map[string]domain.Profile
	adminErr error
	nameErr  error

	// gate, when set, blocks lookups until closed
	gate chan struct{}
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{admins: make(map[string]bool), profiles: make(map[string]domain.Profile)}
}

func (u *fakeUsers) wait(ctx context.Context) {
	u.mu.Lock()
	gate := u.gate
	u.mu.Unlock()
	if gate == nil {
		return
	}
	select {
	case <-gate:
	case <-ctx.Done():
	}
}

func (u *fakeUsers) IsAdmin(ctx context.Context, userID string) (bool, error) {
	u.wait(ctx)
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.admins[userID], u.adminErr
}

func (u *fakeUsers) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	u.wait(ctx)
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.nameErr != nil {
		return nil, u.nameErr
	}
	p, ok := u.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (u *fakeUsers) UpsertProfile(ctx context.Context, profile domain.Profile) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	current := u.profiles[profile.UserID]
	current.UserID = profile.UserID
	current.Name = profile.Name
	current.PhoneNumber = profile.PhoneNumber
	u.profiles[profile.UserID] = current
	return nil
}

func (u *fakeUsers) CountProfiles(ctx context.Context) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return int64(len(u.profiles)), nil
}

type fakeOrders struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	items     []domain.OrderItem
	createErr error
	itemsErr  error
	payments  []recordedPayment
	overview  domain.Overview
}

type recordedPayment struct {
	OrderID, Method string
	Status          domain.PaymentStatus
	ProofPath       string
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[string]domain.Order)}
}

func (o *fakeOrders) CreateOrder(ctx context.Context, order domain.Order) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.createErr != nil {
		return o.createErr
	}
	o.orders[order.ID] = order
	return nil
}

func (o *fakeOrders) InsertOrderItems(ctx context.Context, items []domain.OrderItem) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.itemsErr != nil {
		return o.itemsErr
	}
	o.items = append(o.items, items...)
	return nil
}

func (o *fakeOrders) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for _, item := range o.items {
		if item.OrderID == orderID {
			order.Items = append(order.Items, item)
		}
	}
	return &order, nil
}

func (o *fakeOrders) sorted() []domain.Order {
	out := make([]domain.Order, 0, len(o.orders))
	for _, order := range o.orders {
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (o *fakeOrders) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []domain.Order
	for _, order := range o.sorted() {
		if order.UserID == userID {
			out = append(out, order)
		}
	}
	return out, nil
}

func (o *fakeOrders) ListOrders(ctx context.Context, offset, limit int) ([]domain.Order, int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	all := o.sorted()
	if offset >= len(all) {
		return nil, len(all), nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], len(all), nil
}

func (o *fakeOrders) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	order.Status = status
	o.orders[orderID] = order
	return nil
}

func (o *fakeOrders) UpdatePaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	order.PaymentStatus = status
	o.orders[orderID] = order
	return nil
}

func (o *fakeOrders) RecordPayment(ctx context.Context, orderID, method string, status domain.PaymentStatus, proofPath string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	order.PaymentMethod = method
	order.PaymentStatus = status
	order.ProofOfPaymentURL = proofPath
	o.orders[orderID] = order
	o.payments = append(o.payments, recordedPayment{orderID, method, status, proofPath})
	return nil
}

func (o *fakeOrders) Overview(ctx context.Context) (domain.Overview, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.overview, nil
}

func (o *fakeOrders) count() (orders, items int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.orders), len(o.items)
}

type fakeNotifications struct {
	mu       sync.Mutex
	rows     []domain.Notification
	listErr  error
	clearErr error
	inserted chan domain.Notification
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{inserted: make(chan domain.Notification, 64)}
}

func (n *fakeNotifications) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listErr != nil {
		return nil, n.listErr
	}
	var out []domain.Notification
	for i := len(n.rows) - 1; i >= 0; i-- {
		if n.rows[i].UserID == userID && !n.rows[i].Read {
			out = append(out, n.rows[i])
		}
	}
	return out, nil
}

func (n *fakeNotifications) Insert(ctx context.Context, row domain.Notification) error {
	n.mu.Lock()
	n.rows = append(n.rows, row)
	n.mu.Unlock()
	n.inserted <- row
	return nil
}

func (n *fakeNotifications) MarkAllRead(ctx context.Context, userID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.clearErr != nil {
		return n.clearErr
	}
	for i := range n.rows {
		if n.rows[i].UserID == userID {
			n.rows[i].Read = true
		}
	}
	return nil
}

type fakeMenu struct {
	mu     sync.Mutex
	items  map[int64]domain.MenuItem
	nextID int64
}

func newFakeMenu(items ...domain.MenuItem) *fakeMenu {
	m := &fakeMenu{items: make(map[int64]domain.MenuItem), nextID: 1}
	for _, item := range items {
		m.items[item.ID] = item
		m.nextID = max(m.nextID, item.ID+1)
	}
	return m
}

func (m *fakeMenu) ListMenu(ctx context.Context, onlyActive bool) ([]domain.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MenuItem
	for _, item := range m.items {
		if onlyActive && item.Status != domain.MenuStatusActive {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *fakeMenu) GetMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

func (m *fakeMenu) CreateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = m.nextID
	m.nextID++
	m.items[item.ID] = item
	return &item, nil
}

func (m *fakeMenu) UpdateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	m.items[item.ID] = item
	return &item, nil
}

func (m *fakeMenu) DeleteMenuItem(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *fakeMenu) SetMenuStatus(ctx context.Context, id int64, status domain.MenuStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	item.Status = status
	m.items[id] = item
	return nil
}

type fakePayments struct{}

func (fakePayments) ActivePaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	return []domain.PaymentMethod{
		{ID: 1, Name: "Transfer Bank", IsActive: true},
		{ID: 2, Name: domain.CashOnSite, IsActive: true},
	}, nil
}

func (fakePayments) BankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	return []domain.BankAccount{{ID: 1, BankName: "BCA", AccountNumber: "123", AccountHolder: "Mas Pithik"}}, nil
}

func (fakePayments) ActiveQRIS(ctx context.Context) (*domain.QRISCode, error) {
	return nil, nil
}

type fakeObjects struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{files: make(map[string][]byte)}
}

func (o *fakeObjects) Upload(ctx context.Context, bucket, path string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[bucket+"/"+path] = buf.Bytes()
	return path, nil
}

func (o *fakeObjects) PublicURL(bucket, path string) string {
	return "http://cdn.test/" + bucket + "/" + path
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

func signedIn(userID string) domain.Identity {
	return domain.Identity{State: domain.SessionAuthenticated, UserID: userID, DisplayName: domain.DefaultDisplayName}
}

func adminIdentity() domain.Identity {
	id := signedIn("admin-1")
	id.IsAdmin = true
	return id
}

type staticIdentity domain.Identity

func (s staticIdentity) Identity() domain.Identity { return domain.Identity(s) }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
