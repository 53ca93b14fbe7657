package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/repository"
	"github.com/shopspring/decimal"
)

type DepositRequest struct {
	WalletID          string
	Amount            decimal.Decimal
	Reference         string
	ProviderReference string
	Metadata          json.RawMessage
}

// Deposit credits funds received on a wallet's virtual account. The same
// reference is only ever credited once.
func (e *Engine) Deposit(ctx context.Context, req DepositRequest) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	w, err := e.store.GetWallet(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}
	if !w.IsActive {
		return nil, domain.NewLedgerError(domain.ErrWalletNotFound, req.WalletID, req.Reference, errors.New("wallet is deactivated"))
	}

	txn := &domain.Transaction{
		Reference:         referenceOr(req.Reference, domain.TypeDeposit),
		Type:              domain.TypeDeposit,
		Amount:            req.Amount,
		Destination:       domain.Destination{WalletID: req.WalletID},
		Status:            domain.StatusSuccess,
		Narration:         "Wallet funding",
		ProviderReference: req.ProviderReference,
		Metadata:          req.Metadata,
	}

	out, _, err := e.submit(ctx, txn, []repository.Delta{
		{WalletID: req.WalletID, Amount: req.Amount},
	})
	return out, err
}
