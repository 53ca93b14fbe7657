package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeWithdrawal      TransactionType = "WITHDRAWAL"
	TypeTransfer        TransactionType = "TRANSFER"
	TypeAirtimePurchase TransactionType = "AIRTIME"
	TypeDataPurchase    TransactionType = "DATA"
	TypeDeposit         TransactionType = "DEPOSIT"
)

// ReferencePrefix is used when the caller does not supply a reference.
func (t TransactionType) ReferencePrefix() string {
	switch t {
	case TypeDeposit:
		return "DEP"
	case TypeAirtimePurchase:
		return "AIR"
	case TypeDataPurchase:
		return "DAT"
	default:
		return "TXN"
	}
}

// Settles reports whether the type completes through an external provider.
func (t TransactionType) Settles() bool {
	return t == TypeWithdrawal || t == TypeAirtimePurchase || t == TypeDataPurchase
}

type TransactionStatus string

const (
	StatusPending TransactionStatus = "PENDING"
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
)

func (s TransactionStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// CanTransition allows Pending to move to either terminal status and nothing else.
func (s TransactionStatus) CanTransition(to TransactionStatus) bool {
	return s == StatusPending && to.IsTerminal()
}

// Destination is a wallet, a bank account or a phone line depending on the type.
type Destination struct {
	WalletID      string `json:"wallet_id,omitempty"`
	BankCode      string `json:"bank_code,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	AccountName   string `json:"account_name,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	Network       string `json:"network,omitempty"`
	PlanCode      string `json:"plan_code,omitempty"`
}

type Transaction struct {
	ID                int64             `json:"id"`
	Reference         string            `json:"reference"`
	Type              TransactionType   `json:"type"`
	Amount            decimal.Decimal   `json:"amount"`
	SourceWalletID    string            `json:"source_wallet_id,omitempty"`
	Destination       Destination       `json:"destination"`
	Status            TransactionStatus `json:"status"`
	Reversed          bool              `json:"reversed"`
	Narration         string            `json:"narration,omitempty"`
	ProviderReference string            `json:"provider_reference,omitempty"`
	Metadata          json.RawMessage   `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Clone returns a copy that shares no mutable state with t.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.Metadata != nil {
		c.Metadata = append(json.RawMessage(nil), t.Metadata...)
	}
	return &c
}

type EntryKind string

const (
	EntryDebit    EntryKind = "DEBIT"
	EntryCredit   EntryKind = "CREDIT"
	EntryReversal EntryKind = "REVERSAL"
)

// Entry journals one balance change.
type Entry struct {
	ID                   int64           `json:"id"`
	TransactionReference string          `json:"transaction_reference"`
	WalletID             string          `json:"wallet_id"`
	Kind                 EntryKind       `json:"kind"`
	Delta                decimal.Decimal `json:"delta"`
	BalanceAfter         decimal.Decimal `json:"balance_after"`
	CreatedAt            time.Time       `json:"created_at"`
}
