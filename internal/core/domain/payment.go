package domain

// CashOnSite is the only payment method that needs no proof of payment.
const CashOnSite = "Bayar di Tempat"

type PaymentMethod struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

type BankAccount struct {
	ID            int64  `json:"id"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

type QRISCode struct {
	ID       int64  `json:"id"`
	ImageURL string `json:"image_url"`
	IsActive bool   `json:"is_active"`
}

// PaymentOptions is everything the payment step shows for one order.
type PaymentOptions struct {
	Receipt      Receipt         `json:"receipt"`
	Methods      []PaymentMethod `json:"methods"`
	BankAccounts []BankAccount   `json:"bank_accounts"`
	QRIS         *QRISCode       `json:"qris,omitempty"`
}
