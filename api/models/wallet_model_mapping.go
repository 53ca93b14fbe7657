package models

import "github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"

func ToWalletResponse(rhs *domain.Wallet) *WalletResponse {
	return &WalletResponse{
		WalletID:             rhs.ID,
		Balance:              domain.FormatAmount(rhs.Balance),
		Currency:             rhs.Currency,
		VirtualAccountNumber: rhs.VirtualAccountNumber,
		VirtualBankName:      rhs.VirtualBankName,
		IsActive:             rhs.IsActive,
		CreatedAt:            rhs.CreatedAt.UTC(),
		UpdatedAt:            rhs.UpdatedAt.UTC(),
	}
}

func ToWalletLookupResponse(rhs *domain.Wallet) *WalletLookupResponse {
	return &WalletLookupResponse{
		WalletID: rhs.ID,
		Currency: rhs.Currency,
		IsActive: rhs.IsActive,
	}
}

func ToTransactionResponse(rhs *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:             ID(rhs.ID),
		Reference:      rhs.Reference,
		Type:           string(rhs.Type),
		Amount:         domain.FormatAmount(rhs.Amount),
		SourceWalletID: rhs.SourceWalletID,
		Destination: DestinationResponse{
			WalletID:      rhs.Destination.WalletID,
			BankCode:      rhs.Destination.BankCode,
			AccountNumber: rhs.Destination.AccountNumber,
			AccountName:   rhs.Destination.AccountName,
			PhoneNumber:   rhs.Destination.PhoneNumber,
			Network:       rhs.Destination.Network,
			PlanCode:      rhs.Destination.PlanCode,
		},
		Status:            string(rhs.Status),
		Reversed:          rhs.Reversed,
		Narration:         rhs.Narration,
		ProviderReference: rhs.ProviderReference,
		Metadata:          rhs.Metadata,
		CreatedAt:         rhs.CreatedAt.UTC(),
		UpdatedAt:         rhs.UpdatedAt.UTC(),
	}
}

func ToTransactionCollectionResponse(txns []domain.Transaction) TransactionCollectionResponse {
	response := make(TransactionCollectionResponse, len(txns))
	for i := range txns {
		response[i] = *ToTransactionResponse(&txns[i])
	}
	return response
}

func ToDataPlanCollectionResponse(plans []domain.DataPlan) DataPlanCollectionResponse {
	response := make(DataPlanCollectionResponse, len(plans))
	for i, p := range plans {
		response[i] = DataPlanResponse{
			PlanCode: p.Code,
			Network:  p.Network,
			Name:     p.Name,
			Amount:   domain.FormatAmount(p.Amount),
		}
	}
	return response
}

func ToWebhookAckResponse(o domain.Outcome) *WebhookAckResponse {
	return &WebhookAckResponse{
		Reference: o.TransactionReference,
		Status:    string(o.Status),
		Note:      o.Note,
	}
}
