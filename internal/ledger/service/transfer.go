package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/repository"
	"github.com/shopspring/decimal"
)

type WithdrawRequest struct {
	WalletID      string
	Amount        decimal.Decimal
	BankCode      string
	AccountNumber string
	AccountName   string
	Narration     string
	ClientRef     string
}

type TransferRequest struct {
	SourceWalletID string
	DestWalletID   string
	Amount         decimal.Decimal
	Narration      string
	ClientRef      string
}

// Withdraw holds the amount on the wallet as a Pending withdrawal and asks
// the provider to pay it out to a bank account. The returned transaction is
// Pending unless the provider answered with a final result.
func (e *Engine) Withdraw(ctx context.Context, req WithdrawRequest) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.WalletID == "" || strings.TrimSpace(req.BankCode) == "" || strings.TrimSpace(req.AccountNumber) == "" {
		return nil, domain.NewLedgerError(domain.ErrInvalidRequest, req.WalletID, req.ClientRef, fmt.Errorf("wallet, bank code and account number are required"))
	}

	txn := &domain.Transaction{
		Reference:      referenceOr(req.ClientRef, domain.TypeWithdrawal),
		Type:           domain.TypeWithdrawal,
		Amount:         req.Amount,
		SourceWalletID: req.WalletID,
		Destination: domain.Destination{
			BankCode:      req.BankCode,
			AccountNumber: req.AccountNumber,
			AccountName:   req.AccountName,
		},
		Status:    domain.StatusPending,
		Narration: req.Narration,
	}

	out, fresh, err := e.submit(ctx, txn, []repository.Delta{
		{WalletID: req.WalletID, Amount: req.Amount.Neg()},
	})
	if err != nil || !fresh {
		return out, err
	}

	started := time.Now()
	result, err := e.provider.Payout(ctx, domain.PayoutRequest{
		Reference:     out.Reference,
		Amount:        out.Amount,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		Narration:     req.Narration,
	})
	e.metrics.ObserveProviderCall("payout", started, err)
	return e.settle(ctx, out, result, err)
}

// Transfer moves funds between two wallets in one atomic unit. It never
// involves the provider, so the transaction is Success on return.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.SourceWalletID == "" || req.DestWalletID == "" {
		return nil, domain.NewLedgerError(domain.ErrInvalidRequest, req.SourceWalletID, req.ClientRef, fmt.Errorf("source and destination wallets are required"))
	}
	if req.SourceWalletID == req.DestWalletID {
		return nil, domain.NewLedgerError(domain.ErrSelfTransfer, req.SourceWalletID, req.ClientRef)
	}

	dest, err := e.store.GetWallet(ctx, req.DestWalletID)
	if errors.Is(err, domain.ErrWalletNotFound) || (err == nil && !dest.IsActive) {
		return nil, domain.NewLedgerError(domain.ErrDestinationNotFound, req.DestWalletID, req.ClientRef)
	}
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		Reference:      referenceOr(req.ClientRef, domain.TypeTransfer),
		Type:           domain.TypeTransfer,
		Amount:         req.Amount,
		SourceWalletID: req.SourceWalletID,
		Destination:    domain.Destination{WalletID: req.DestWalletID},
		Status:         domain.StatusSuccess,
		Narration:      req.Narration,
	}

	out, _, err := e.submit(ctx, txn, []repository.Delta{
		{WalletID: req.SourceWalletID, Amount: req.Amount.Neg()},
		{WalletID: req.DestWalletID, Amount: req.Amount, MissingErr: domain.ErrDestinationNotFound},
	})
	return out, err
}
