package models

import (
	"encoding/json"
	"time"
)

type CreateWalletRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
}

type WithdrawRequest struct {
	Amount        string `json:"amount" binding:"required,money"`
	BankCode      string `json:"bank_code" binding:"required,numeric,min=3,max=6"`
	AccountNumber string `json:"account_number" binding:"required,numeric,len=10"`
	AccountName   string `json:"account_name" binding:"required,max=100"`
	Narration     string `json:"narration" binding:"max=100"`
	Reference     string `json:"reference" binding:"omitempty,max=64"`
}

type TransferRequest struct {
	DestinationWalletID string `json:"destination_wallet_id" binding:"required,walletid"`
	Amount              string `json:"amount" binding:"required,money"`
	Narration           string `json:"narration" binding:"max=100"`
	Reference           string `json:"reference" binding:"omitempty,max=64"`
}

type AirtimeRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,numeric,min=10,max=14"`
	Network     string `json:"network" binding:"required"`
	Amount      string `json:"amount" binding:"required,money"`
	Reference   string `json:"reference" binding:"omitempty,max=64"`
}

type DataRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,numeric,min=10,max=14"`
	Network     string `json:"network" binding:"required"`
	PlanCode    string `json:"plan_code" binding:"required,max=64"`
	Reference   string `json:"reference" binding:"omitempty,max=64"`
}

type ResolveRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=success failed"`
}

type WalletResponse struct {
	WalletID             string    `json:"wallet_id"`
	Balance              string    `json:"balance"`
	Currency             string    `json:"currency"`
	VirtualAccountNumber string    `json:"virtual_account_number,omitempty"`
	VirtualBankName      string    `json:"virtual_bank_name,omitempty"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// WalletLookupResponse is what a user sees of a wallet they do not own.
type WalletLookupResponse struct {
	WalletID string `json:"wallet_id"`
	Currency string `json:"currency"`
	IsActive bool   `json:"is_active"`
}

type DestinationResponse struct {
	WalletID      string `json:"wallet_id,omitempty"`
	BankCode      string `json:"bank_code,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	AccountName   string `json:"account_name,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	Network       string `json:"network,omitempty"`
	PlanCode      string `json:"plan_code,omitempty"`
}

type TransactionCollectionResponse []TransactionResponse

type TransactionResponse struct {
	ID                ID                  `json:"id"`
	Reference         string              `json:"reference"`
	Type              string              `json:"type"`
	Amount            string              `json:"amount"`
	SourceWalletID    string              `json:"source_wallet_id,omitempty"`
	Destination       DestinationResponse `json:"destination"`
	Status            string              `json:"status"`
	Reversed          bool                `json:"reversed"`
	Narration         string              `json:"narration,omitempty"`
	ProviderReference string              `json:"provider_reference,omitempty"`
	Metadata          json.RawMessage     `json:"metadata,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

type DataPlanCollectionResponse []DataPlanResponse

type DataPlanResponse struct {
	PlanCode string `json:"plan_code"`
	Network  string `json:"network"`
	Name     string `json:"name"`
	Amount   string `json:"amount"`
}

type WebhookAckResponse struct {
	Reference string `json:"reference,omitempty"`
	Status    string `json:"status,omitempty"`
	Note      string `json:"note,omitempty"`
}
