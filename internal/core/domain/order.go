package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

type Order struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	UserEmail         string        `json:"user_email,omitempty"`
	Items             []OrderItem   `json:"items"`
	TotalAmount       int64         `json:"total_amount"`
	Status            OrderStatus   `json:"status"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	PaymentMethod     string        `json:"payment_method,omitempty"`
	ProofOfPaymentURL string        `json:"proof_of_payment_url,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type OrderItem struct {
	OrderID    string `json:"order_id"`
	MenuItemID int64  `json:"menu_item_id"`
	Title      string `json:"title,omitempty"`
	Quantity   int    `json:"quantity"`
	Price      int64  `json:"price"`
}

// ItemsTotal recomputes the order total from its line items.
func (o Order) ItemsTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// Receipt is what checkout hands to the payment flow.
type Receipt struct {
	OrderID     string `json:"order_id"`
	TotalAmount int64  `json:"total_amount"`
}

// Overview is the admin revenue summary.
type Overview struct {
	TotalRevenue int64 `json:"total_revenue"`
	ItemsSold    int64 `json:"items_sold"`
	TotalUsers   int64 `json:"total_users"`
	ActiveOrders int64 `json:"active_orders"`
}

type TransactionPage struct {
	Transactions []Order `json:"transactions"`
	Page         int     `json:"page"`
	PerPage      int     `json:"per_page"`
	Total        int     `json:"total"`
	TotalPages   int     `json:"total_pages"`
}
