package domain

// CartLine is one distinct menu item and its quantity within a cart.
type CartLine struct {
	MenuItemID int64  `json:"menu_item_id"`
	Title      string `json:"title"`
	Price      int64  `json:"price"` // smallest currency unit
	Quantity   int    `json:"quantity"`
}

// Cart is ordered by first add. At most one line per MenuItemID.
type Cart []CartLine

func (c Cart) Index(menuItemID int64) int {
	for i, line := range c {
		if line.MenuItemID == menuItemID {
			return i
		}
	}
	return -1
}

func (c Cart) Total() int64 {
	var total int64
	for _, line := range c {
		total += line.Price * int64(line.Quantity)
	}
	return total
}

func (c Cart) ItemCount() int {
	count := 0
	for _, line := range c {
		count += line.Quantity
	}
	return count
}

// Clone returns a copy that shares nothing with c.
func (c Cart) Clone() Cart {
	if c == nil {
		return Cart{}
	}
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Normalize repairs lines that violate the cart invariants: non-positive
// quantities are raised to 1 and later duplicates are folded into the first
// occurrence. Used on values read back from shared storage.
func (c Cart) Normalize() Cart {
	out := make(Cart, 0, len(c))
	for _, line := range c {
		if line.Quantity < 1 {
			line.Quantity = 1
		}
		if i := out.Index(line.MenuItemID); i >= 0 {
			out[i].Quantity += line.Quantity
			continue
		}
		out = append(out, line)
	}
	return out
}
