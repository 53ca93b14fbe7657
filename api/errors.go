package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/SwiftFiat/NexaWallet-Backend/api/apistrings"
	models "github.com/SwiftFiat/NexaWallet-Backend/api/models"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	basemodels "github.com/SwiftFiat/NexaWallet-Backend/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const IdempotencyHeader = "Idempotency-Key"

type errorMapping struct {
	status  int
	message string
}

var errorMappings = map[string]errorMapping{
	"INVALID_AMOUNT":        {http.StatusBadRequest, apistrings.InvalidAmount},
	"INVALID_REQUEST":       {http.StatusBadRequest, ""},
	"SELF_TRANSFER":         {http.StatusBadRequest, apistrings.SelfTransfer},
	"INVALID_NETWORK":       {http.StatusBadRequest, apistrings.InvalidNetwork},
	"UNKNOWN_PLAN":          {http.StatusBadRequest, apistrings.UnknownPlan},
	"FORBIDDEN":             {http.StatusForbidden, apistrings.TransactionNotYours},
	"WALLET_NOT_FOUND":      {http.StatusNotFound, apistrings.WalletNotFound},
	"DESTINATION_NOT_FOUND": {http.StatusNotFound, apistrings.DestinationNotFound},
	"TRANSACTION_NOT_FOUND": {http.StatusNotFound, apistrings.TransactionNotFound},
	"REFERENCE_CONFLICT":    {http.StatusConflict, apistrings.ReferenceConflict},
	"WALLET_EXISTS":         {http.StatusConflict, apistrings.DuplicateWallet},
	"INVALID_TRANSITION":    {http.StatusConflict, apistrings.NotPending},
	"DUPLICATE_REFERENCE":   {http.StatusConflict, apistrings.ReferenceConflict},
	"INSUFFICIENT_FUNDS":    {http.StatusUnprocessableEntity, apistrings.InsufficientFunds},
	"PROVIDER_UNAVAILABLE":  {http.StatusServiceUnavailable, apistrings.ProviderUnavailable},
}

// respondError writes the envelope for err. Unknown errors are logged and
// reported as a generic server error.
func (s *Server) respondError(ctx *gin.Context, err error) {
	code := domain.Code(err)
	m, ok := errorMappings[code]
	if !ok {
		s.logger.WithFields(logrus.Fields{
			"path": ctx.FullPath(),
		}).WithError(err).Error("request failed")
		ctx.JSON(http.StatusInternalServerError, basemodels.NewCodedError("INTERNAL", apistrings.ServerError))
		return
	}

	msg := m.message
	var details []string
	var le *domain.LedgerError
	if errors.As(err, &le) {
		if msg == "" {
			msg = le.Error()
		} else if len(le.Other) > 0 {
			details = []string{le.Error()}
		}
	}
	if msg == "" {
		msg = err.Error()
	}
	ctx.JSON(m.status, basemodels.NewCodedError(code, msg, details...))
}

// respondBindError answers a request body that failed binding or validation.
func (s *Server) respondBindError(ctx *gin.Context, err error, msg string) {
	details, money := validationDetails(err)
	if money {
		ctx.JSON(http.StatusBadRequest, basemodels.NewCodedError("INVALID_AMOUNT", apistrings.InvalidAmount, details...))
		return
	}
	ctx.JSON(http.StatusBadRequest, basemodels.NewCodedError("INVALID_REQUEST", msg, details...))
}

// respondTransaction answers 202 while the provider has not confirmed.
func respondTransaction(ctx *gin.Context, txn *domain.Transaction, msg string) {
	if txn.Status == domain.StatusPending {
		ctx.JSON(http.StatusAccepted, basemodels.NewSuccess(apistrings.TransactionPending, models.ToTransactionResponse(txn)))
		return
	}
	ctx.JSON(http.StatusOK, basemodels.NewSuccess(msg, models.ToTransactionResponse(txn)))
}

const maxReferenceLength = 64

// clientReference prefers the body reference over the Idempotency-Key header.
func clientReference(ctx *gin.Context, bodyRef string) (string, error) {
	ref := bodyRef
	if ref == "" {
		ref = strings.TrimSpace(ctx.GetHeader(IdempotencyHeader))
	}
	if len(ref) > maxReferenceLength {
		return "", domain.NewLedgerError(domain.ErrInvalidRequest, "", "", fmt.Errorf("reference longer than %d characters", maxReferenceLength))
	}
	return ref, nil
}
