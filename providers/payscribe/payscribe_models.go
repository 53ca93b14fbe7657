package payscribe

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/shopspring/decimal"
)

type PayscribeResponse[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type VirtualAccountRequest struct {
	CustomerEmail string `json:"customer_email"`
	WalletID      string `json:"wallet_id"`
	IsPermanent   bool   `json:"is_permanent"`
}

type VirtualAccount struct {
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
}

type PayoutRequest struct {
	Amount        string `json:"amount"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	Reference     string `json:"reference"`
	Narration     string `json:"narration,omitempty"`
}

type AirtimeRequest struct {
	PhoneNumber string `json:"phone_number"`
	Amount      string `json:"amount"`
	Network     string `json:"network"`
	Reference   string `json:"reference"`
}

type DataRequest struct {
	PhoneNumber string `json:"phone_number"`
	PlanCode    string `json:"plan_code"`
	Network     string `json:"network"`
	Reference   string `json:"reference"`
}

// TransactionResult is returned by payout, VAS and status calls.
type TransactionResult struct {
	Reference string `json:"reference"`
	TransID   string `json:"trans_id"`
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	Message   string `json:"message"`
}

type DataPlan struct {
	PlanCode string `json:"plan_code"`
	Name     string `json:"name"`
	Network  string `json:"network"`
	Amount   string `json:"amount"`
}

// WebhookPayload is the body Payscribe posts to the webhook endpoint.
// Deposit notifications only carry wallet_id, amount and reference.
type WebhookPayload struct {
	EventID   string `json:"event_id"`
	Event     string `json:"event"`
	Reference string `json:"reference"`
	TransID   string `json:"trans_id"`
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	WalletID  string `json:"wallet_id"`
}

// ToEvent converts the payload into a ledger event. raw is kept as metadata.
func (w WebhookPayload) ToEvent(raw json.RawMessage) (domain.ProviderEvent, error) {
	ev := domain.ProviderEvent{
		EventID:           w.EventID,
		Reference:         w.Reference,
		ProviderReference: w.TransID,
		WalletID:          w.WalletID,
		Raw:               raw,
	}

	kind, suffix, _ := strings.Cut(strings.ToLower(w.Event), ".")
	switch kind {
	case "payout", "transfer", "withdrawal":
		ev.Type = domain.EventPayout
	case "vas", "airtime", "data":
		ev.Type = domain.EventVAS
	case "deposit", "":
		if w.WalletID == "" {
			return ev, fmt.Errorf("unrecognised event %q", w.Event)
		}
		ev.Type = domain.EventDeposit
	default:
		return ev, fmt.Errorf("unrecognised event %q", w.Event)
	}

	status := w.Status
	if status == "" {
		status = suffix
	}
	if outcome, ok := domain.ParseOutcome(status); ok {
		ev.Outcome = outcome
	} else if ev.Type == domain.EventDeposit {
		ev.Outcome = domain.OutcomeSuccess
	} else {
		return ev, fmt.Errorf("unrecognised status %q", status)
	}

	if w.Amount != "" {
		amount, err := decimal.NewFromString(w.Amount)
		if err != nil {
			return ev, fmt.Errorf("invalid amount %q: %w", w.Amount, err)
		}
		ev.Amount = amount
	}

	// Deposit notifications carry no event id; the reference, or the
	// provider's trans_id when there is none, identifies them
	ref := w.Reference
	if ref == "" {
		ref = w.TransID
	}
	if ev.Type == domain.EventDeposit && ref == "" {
		return ev, fmt.Errorf("deposit without reference or trans_id")
	}
	if ev.EventID == "" {
		if ref == "" {
			return ev, fmt.Errorf("event without event_id or reference")
		}
		ev.EventID = fmt.Sprintf("%s:%s:%s", ev.Type, ref, ev.Outcome)
	}
	return ev, nil
}
