package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "NGN"

type Wallet struct {
	ID                   string          `json:"wallet_id"`
	UserID               int64           `json:"user_id"`
	Email                string          `json:"email,omitempty"`
	Balance              decimal.Decimal `json:"balance"`
	Currency             string          `json:"currency"`
	VirtualAccountNumber string          `json:"virtual_account_number,omitempty"`
	VirtualBankName      string          `json:"virtual_bank_name,omitempty"`
	IsActive             bool            `json:"is_active"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// VirtualAccount is the funding account a provider attaches to a wallet.
type VirtualAccount struct {
	AccountNumber string
	BankName      string
	AccountName   string
}
