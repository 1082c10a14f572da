package domain

import "time"

type MenuStatus string

const (
	MenuStatusActive   MenuStatus = "active"
	MenuStatusInactive MenuStatus = "inactive"
)

func (s MenuStatus) Toggle() MenuStatus {
	if s == MenuStatusActive {
		return MenuStatusInactive
	}
	return MenuStatusActive
}

type MenuItem struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       int64      `json:"price"`
	Category    string     `json:"category"`
	ImageURL    string     `json:"image_url,omitempty"`
	Status      MenuStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CartLine builds the line added when a customer orders quantity of the item.
func (m MenuItem) CartLine(quantity int) CartLine {
	return CartLine{MenuItemID: m.ID, Title: m.Title, Price: m.Price, Quantity: quantity}
}
