package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maspithik/angkringan/internal/core/domain"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// SQLBackend is the relational store behind every repository port. Queries
// are written with ? placeholders and rebound for the configured dialect.
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLBackend(db *sql.DB, dialect Dialect) *SQLBackend {
	return &SQLBackend{db: db, dialect: dialect}
}

// Migrate creates missing tables.
func (b *SQLBackend) Migrate(ctx context.Context) error {
	raw, err := schemaFS.ReadFile("schema/" + string(b.dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (b *SQLBackend) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return b.db.ExecContext(ctx, b.dialect.Rebind(query), args...)
}

func (b *SQLBackend) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return b.db.QueryContext(ctx, b.dialect.Rebind(query), args...)
}

func (b *SQLBackend) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return b.db.QueryRowContext(ctx, b.dialect.Rebind(query), args...)
}

// insertID runs an INSERT and returns the generated id.
func (b *SQLBackend) insertID(ctx context.Context, query string, args ...any) (int64, error) {
	if b.dialect == DialectPostgres {
		var id int64
		err := b.queryRow(ctx, query+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	result, err := b.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// --- users and profiles ---

func (b *SQLBackend) CreateUser(ctx context.Context, cred domain.Credential, profile domain.Profile) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, b.dialect.Rebind(`
		INSERT INTO users (id, email, password_hash, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		cred.UserID, cred.Email, cred.PasswordHash, false, cred.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx, b.dialect.Rebind(`
		INSERT INTO profiles (id, email, name, phone_number)
		VALUES (?, ?, ?, ?)`),
		cred.UserID, cred.Email, profile.Name, profile.PhoneNumber,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}

	return tx.Commit()
}

func (b *SQLBackend) FindCredential(ctx context.Context, email string) (*domain.Credential, error) {
	var cred domain.Credential
	err := b.queryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users WHERE email = ?`, email,
	).Scan(&cred.UserID, &cred.Email, &cred.PasswordHash, &cred.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &cred, nil
}

func (b *SQLBackend) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var isAdmin bool
	err := b.queryRow(ctx, `SELECT is_admin FROM users WHERE id = ?`, userID).Scan(&isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query admin flag: %w", err)
	}
	return isAdmin, nil
}

func (b *SQLBackend) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := b.queryRow(ctx, `
		SELECT id, email, name, phone_number
		FROM profiles WHERE id = ?`, userID,
	).Scan(&p.UserID, &p.Email, &p.Name, &p.PhoneNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return &p, nil
}

func (b *SQLBackend) UpsertProfile(ctx context.Context, p domain.Profile) error {
	query := `
		INSERT INTO profiles (id, email, name, phone_number) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), phone_number = VALUES(phone_number)`
	if b.dialect == DialectPostgres {
		query = `
		INSERT INTO profiles (id, email, name, phone_number) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, phone_number = EXCLUDED.phone_number`
	}
	if _, err := b.exec(ctx, query, p.UserID, p.Email, p.Name, p.PhoneNumber); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (b *SQLBackend) CountProfiles(ctx context.Context) (int64, error) {
	var n int64
	if err := b.queryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}

// --- orders ---

const orderColumns = `o.id, o.user_id, COALESCE(p.email, ''), o.total_amount, o.status,
	o.payment_status, o.payment_method, o.proof_of_payment_url, o.created_at, o.updated_at`

const orderFrom = `FROM orders o LEFT JOIN profiles p ON p.id = o.user_id`

func scanOrder(row interface{ Scan(...any) error }) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID, &o.UserEmail, &o.TotalAmount, &o.Status,
		&o.PaymentStatus, &o.PaymentMethod, &o.ProofOfPaymentURL, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (b *SQLBackend) CreateOrder(ctx context.Context, order domain.Order) error {
	_, err := b.exec(ctx, `
		INSERT INTO orders (id, user_id, total_amount, status, payment_status, payment_method,
			proof_of_payment_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.TotalAmount, order.Status, order.PaymentStatus,
		order.PaymentMethod, order.ProofOfPaymentURL, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (b *SQLBackend) InsertOrderItems(ctx context.Context, items []domain.OrderItem) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, b.dialect.Rebind(`
		INSERT INTO order_items (order_id, menu_item_id, quantity, price)
		VALUES (?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare order items: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, item.OrderID, item.MenuItemID, item.Quantity, item.Price); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return tx.Commit()
}

func (b *SQLBackend) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := scanOrder(b.queryRow(ctx, `SELECT `+orderColumns+` `+orderFrom+` WHERE o.id = ?`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	orders := []domain.Order{order}
	if err := b.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (b *SQLBackend) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := b.listOrders(ctx, `SELECT `+orderColumns+` `+orderFrom+`
		WHERE o.user_id = ? ORDER BY o.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	if err := b.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (b *SQLBackend) ListOrders(ctx context.Context, offset, limit int) ([]domain.Order, int, error) {
	var total int
	if err := b.queryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	orders, err := b.listOrders(ctx, `SELECT `+orderColumns+` `+orderFrom+`
		ORDER BY o.created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := b.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (b *SQLBackend) listOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := b.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// attachItems loads the line items of orders in one query.
func (b *SQLBackend) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[string]int, len(orders))
	args := make([]any, 0, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		args = append(args, o.ID)
	}

	rows, err := b.query(ctx, `
		SELECT oi.order_id, oi.menu_item_id, COALESCE(m.title, ''), oi.quantity, oi.price
		FROM order_items oi LEFT JOIN menu_items m ON m.id = oi.menu_item_id
		WHERE oi.order_id IN (`+Placeholders(len(args))+`)
		ORDER BY oi.id`, args...)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OrderID, &item.MenuItemID, &item.Title, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return rows.Err()
}

func (b *SQLBackend) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	_, err := b.exec(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (b *SQLBackend) UpdatePaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus) error {
	_, err := b.exec(ctx, `UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

func (b *SQLBackend) RecordPayment(ctx context.Context, orderID, method string, status domain.PaymentStatus, proofPath string) error {
	_, err := b.exec(ctx, `
		UPDATE orders
		SET payment_method = ?, payment_status = ?, proof_of_payment_url = ?, updated_at = ?
		WHERE id = ?`,
		method, status, proofPath, time.Now(), orderID,
	)
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	return nil
}

func (b *SQLBackend) Overview(ctx context.Context) (domain.Overview, error) {
	var o domain.Overview
	err := b.queryRow(ctx, `
		SELECT
			COALESCE((SELECT SUM(total_amount) FROM orders WHERE payment_status = ?), 0),
			COALESCE((SELECT SUM(quantity) FROM order_items), 0),
			(SELECT COUNT(*) FROM orders WHERE status = ?)`,
		domain.PaymentStatusPaid, domain.OrderStatusPending,
	).Scan(&o.TotalRevenue, &o.ItemsSold, &o.ActiveOrders)
	if err != nil {
		return o, fmt.Errorf("query overview: %w", err)
	}
	return o, nil
}

// --- notifications ---

func (b *SQLBackend) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := b.query(ctx, `
		SELECT id, user_id, message, is_read, created_at
		FROM notifications WHERE user_id = ? AND is_read = ?
		ORDER BY created_at DESC`, userID, false)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var list []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (b *SQLBackend) Insert(ctx context.Context, n domain.Notification) error {
	_, err := b.exec(ctx, `
		INSERT INTO notifications (id, user_id, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Message, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (b *SQLBackend) MarkAllRead(ctx context.Context, userID string) error {
	_, err := b.exec(ctx, `UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?`,
		true, userID, false)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

// --- menu ---

const menuColumns = `id, title, description, price, category, image_url, status, created_at`

func scanMenuItem(row interface{ Scan(...any) error }) (domain.MenuItem, error) {
	var m domain.MenuItem
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Price, &m.Category, &m.ImageURL, &m.Status, &m.CreatedAt)
	return m, err
}

func (b *SQLBackend) ListMenu(ctx context.Context, onlyActive bool) ([]domain.MenuItem, error) {
	query := `SELECT ` + menuColumns + ` FROM menu_items`
	var args []any
	if onlyActive {
		query += ` WHERE status = ?`
		args = append(args, domain.MenuStatusActive)
	}
	query += ` ORDER BY category, id`

	rows, err := b.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query menu: %w", err)
	}
	defer rows.Close()

	var items []domain.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (b *SQLBackend) GetMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error) {
	item, err := scanMenuItem(b.queryRow(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query menu item: %w", err)
	}
	return &item, nil
}

func (b *SQLBackend) CreateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	id, err := b.insertID(ctx, `
		INSERT INTO menu_items (title, description, price, category, image_url, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.Title, item.Description, item.Price, item.Category, item.ImageURL, item.Status, item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert menu item: %w", err)
	}
	item.ID = id
	return &item, nil
}

func (b *SQLBackend) UpdateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	_, err := b.exec(ctx, `
		UPDATE menu_items
		SET title = ?, description = ?, price = ?, category = ?, image_url = ?, status = ?
		WHERE id = ?`,
		item.Title, item.Description, item.Price, item.Category, item.ImageURL, item.Status, item.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update menu item: %w", err)
	}
	return b.GetMenuItem(ctx, item.ID)
}

func (b *SQLBackend) DeleteMenuItem(ctx context.Context, id int64) error {
	result, err := b.exec(ctx, `DELETE FROM menu_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (b *SQLBackend) SetMenuStatus(ctx context.Context, id int64, status domain.MenuStatus) error {
	_, err := b.exec(ctx, `UPDATE menu_items SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update menu status: %w", err)
	}
	return nil
}

// --- payment settings ---

func (b *SQLBackend) ActivePaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := b.query(ctx, `
		SELECT id, name, description, is_active
		FROM payment_methods WHERE is_active = ? ORDER BY id`, true)
	if err != nil {
		return nil, fmt.Errorf("query payment methods: %w", err)
	}
	defer rows.Close()

	var methods []domain.PaymentMethod
	for rows.Next() {
		var m domain.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.IsActive); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

func (b *SQLBackend) BankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	rows, err := b.query(ctx, `
		SELECT id, bank_name, account_number, account_holder
		FROM bank_accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query bank accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.BankAccount
	for rows.Next() {
		var a domain.BankAccount
		if err := rows.Scan(&a.ID, &a.BankName, &a.AccountNumber, &a.AccountHolder); err != nil {
			return nil, fmt.Errorf("scan bank account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (b *SQLBackend) ActiveQRIS(ctx context.Context) (*domain.QRISCode, error) {
	var q domain.QRISCode
	err := b.queryRow(ctx, `
		SELECT id, image_url, is_active
		FROM qris_codes WHERE is_active = ?
		ORDER BY created_at DESC LIMIT 1`, true,
	).Scan(&q.ID, &q.ImageURL, &q.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query qris code: %w", err)
	}
	return &q, nil
}
