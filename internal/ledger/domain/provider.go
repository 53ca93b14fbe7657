package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ProviderOutcome is what a payment or VAS provider reports for a request.
type ProviderOutcome string

const (
	OutcomeSuccess ProviderOutcome = "success"
	OutcomeFailed  ProviderOutcome = "failed"
	OutcomePending ProviderOutcome = "pending"
)

func (o ProviderOutcome) Status() TransactionStatus {
	switch o {
	case OutcomeSuccess:
		return StatusSuccess
	case OutcomeFailed:
		return StatusFailed
	default:
		return StatusPending
	}
}

func ParseOutcome(s string) (ProviderOutcome, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "successful", "completed", "paid":
		return OutcomeSuccess, true
	case "failed", "failure", "reversed", "declined":
		return OutcomeFailed, true
	case "pending", "processing", "queued":
		return OutcomePending, true
	}
	return "", false
}

type ProviderResult struct {
	Outcome           ProviderOutcome
	ProviderReference string
	Message           string
}

type EventType string

const (
	EventPayout  EventType = "payout"
	EventVAS     EventType = "vas"
	EventDeposit EventType = "deposit"
)

// ProviderEvent is an asynchronous confirmation delivered by webhook.
type ProviderEvent struct {
	EventID           string
	Type              EventType
	Reference         string
	ProviderReference string
	Outcome           ProviderOutcome
	Amount            decimal.Decimal
	WalletID          string
	Raw               json.RawMessage
}

type PayoutRequest struct {
	Reference     string
	Amount        decimal.Decimal
	BankCode      string
	AccountNumber string
	AccountName   string
	Narration     string
}

type AirtimeOrder struct {
	Reference   string
	PhoneNumber string
	Amount      decimal.Decimal
	Network     string
}

type DataOrder struct {
	Reference   string
	PhoneNumber string
	PlanCode    string
	Network     string
}

type VirtualAccountRequest struct {
	CustomerEmail string
	WalletID      string
	IsPermanent   bool
}

var networks = []string{"MTN", "GLO", "AIRTEL", "9MOBILE"}

// NormalizeNetwork upper-cases and validates a mobile network name.
func NormalizeNetwork(n string) (string, error) {
	n = strings.ToUpper(strings.TrimSpace(n))
	for _, known := range networks {
		if n == known {
			return n, nil
		}
	}
	return "", NewLedgerError(ErrInvalidNetwork, "", "")
}

type DataPlan struct {
	Code    string          `json:"plan_code"`
	Network string          `json:"network"`
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
}
