package service

import (
	"context"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
)

// PaymentProvider is the external payout and VAS collaborator. Transport
// failures and 5xx answers come back wrapped in domain.ErrProviderUnavailable;
// a definite rejection is a ProviderResult with OutcomeFailed.
type PaymentProvider interface {
	CreateVirtualAccount(ctx context.Context, req domain.VirtualAccountRequest) (*domain.VirtualAccount, error)
	Payout(ctx context.Context, req domain.PayoutRequest) (*domain.ProviderResult, error)
	BuyAirtime(ctx context.Context, order domain.AirtimeOrder) (*domain.ProviderResult, error)
	BuyData(ctx context.Context, order domain.DataOrder) (*domain.ProviderResult, error)
	TransactionStatus(ctx context.Context, reference string) (*domain.ProviderResult, error)
}

// PlanSource lists the data bundles a provider sells on a network.
type PlanSource interface {
	DataPlans(ctx context.Context, network string) ([]domain.DataPlan, error)
}

type PlanCatalog interface {
	Plans(ctx context.Context, network string) ([]domain.DataPlan, error)
	// Plan fails with domain.ErrUnknownPlan when code is not sold on network.
	Plan(ctx context.Context, network, code string) (*domain.DataPlan, error)
}
