package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/repository"
	"github.com/shopspring/decimal"
)

type AirtimeRequest struct {
	WalletID    string
	PhoneNumber string
	Amount      decimal.Decimal
	Network     string
	ClientRef   string
}

type DataRequest struct {
	WalletID    string
	PhoneNumber string
	PlanCode    string
	Network     string
	ClientRef   string
}

func (e *Engine) PurchaseAirtime(ctx context.Context, req AirtimeRequest) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	network, err := domain.NormalizeNetwork(req.Network)
	if err != nil {
		return nil, err
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if req.WalletID == "" || phone == "" {
		return nil, domain.NewLedgerError(domain.ErrInvalidRequest, req.WalletID, req.ClientRef, fmt.Errorf("wallet and phone number are required"))
	}

	txn := &domain.Transaction{
		Reference:      referenceOr(req.ClientRef, domain.TypeAirtimePurchase),
		Type:           domain.TypeAirtimePurchase,
		Amount:         req.Amount,
		SourceWalletID: req.WalletID,
		Destination:    domain.Destination{PhoneNumber: phone, Network: network},
		Status:         domain.StatusPending,
		Narration:      fmt.Sprintf("%s airtime for %s", network, phone),
	}

	out, fresh, err := e.submit(ctx, txn, []repository.Delta{
		{WalletID: req.WalletID, Amount: req.Amount.Neg()},
	})
	if err != nil || !fresh {
		return out, err
	}

	started := time.Now()
	result, err := e.provider.BuyAirtime(ctx, domain.AirtimeOrder{
		Reference:   out.Reference,
		PhoneNumber: phone,
		Amount:      out.Amount,
		Network:     network,
	})
	e.metrics.ObserveProviderCall("airtime", started, err)
	return e.settle(ctx, out, result, err)
}

// PurchaseData prices the bundle from the plan catalog before debiting.
func (e *Engine) PurchaseData(ctx context.Context, req DataRequest) (*domain.Transaction, error) {
	network, err := domain.NormalizeNetwork(req.Network)
	if err != nil {
		return nil, err
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if req.WalletID == "" || phone == "" || req.PlanCode == "" {
		return nil, domain.NewLedgerError(domain.ErrInvalidRequest, req.WalletID, req.ClientRef, fmt.Errorf("wallet, phone number and plan code are required"))
	}

	plan, err := e.plans.Plan(ctx, network, req.PlanCode)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(plan.Amount); err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		Reference:      referenceOr(req.ClientRef, domain.TypeDataPurchase),
		Type:           domain.TypeDataPurchase,
		Amount:         plan.Amount,
		SourceWalletID: req.WalletID,
		Destination:    domain.Destination{PhoneNumber: phone, Network: network, PlanCode: plan.Code},
		Status:         domain.StatusPending,
		Narration:      fmt.Sprintf("%s %s for %s", network, plan.Name, phone),
	}

	out, fresh, err := e.submit(ctx, txn, []repository.Delta{
		{WalletID: req.WalletID, Amount: plan.Amount.Neg()},
	})
	if err != nil || !fresh {
		return out, err
	}

	started := time.Now()
	result, err := e.provider.BuyData(ctx, domain.DataOrder{
		Reference:   out.Reference,
		PhoneNumber: phone,
		PlanCode:    plan.Code,
		Network:     network,
	})
	e.metrics.ObserveProviderCall("data", started, err)
	return e.settle(ctx, out, result, err)
}

func (e *Engine) DataPlans(ctx context.Context, network string) ([]domain.DataPlan, error) {
	return e.plans.Plans(ctx, network)
}
