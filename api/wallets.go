package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SwiftFiat/NexaWallet-Backend/api/apistrings"
	models "github.com/SwiftFiat/NexaWallet-Backend/api/models"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/service"
	basemodels "github.com/SwiftFiat/NexaWallet-Backend/models"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
	"github.com/gin-gonic/gin"
)

type Wallet struct {
	server *Server
}

func (w Wallet) router(server *Server) {
	w.server = server

	serverGroupV1 := server.router.Group("/api/v1/wallets", server.AuthenticatedMiddleware())
	serverGroupV1.POST("", w.createWallet)
	serverGroupV1.GET("me", w.getMyWallet)
	serverGroupV1.GET("me/transactions", w.getTransactions)
	serverGroupV1.GET(":id", w.getWallet)
	serverGroupV1.POST("withdraw", w.withdraw)
	serverGroupV1.POST("transfer", w.transfer)
}

// activeWallet loads the caller's wallet and answers the request itself when
// that fails.
func (s *Server) activeWallet(ctx *gin.Context) (*domain.Wallet, utils.TokenObject, bool) {
	activeUser, err := utils.GetActiveUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, basemodels.NewError(apistrings.UserNotFound))
		return nil, activeUser, false
	}

	wallet, err := s.engine.GetWalletByUser(ctx.Request.Context(), activeUser.UserID)
	if errors.Is(err, domain.ErrWalletNotFound) {
		ctx.JSON(http.StatusNotFound, basemodels.NewCodedError("WALLET_NOT_FOUND", apistrings.UserNoWallet))
		return nil, activeUser, false
	} else if err != nil {
		s.respondError(ctx, err)
		return nil, activeUser, false
	}
	return wallet, activeUser, true
}

func (w *Wallet) createWallet(ctx *gin.Context) {
	request := models.CreateWalletRequest{}
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&request); err != nil {
			w.server.respondBindError(ctx, err, apistrings.InvalidEmail)
			return
		}
	}

	activeUser, err := utils.GetActiveUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, basemodels.NewError(apistrings.UserNotFound))
		return
	}

	email := request.Email
	if email == "" {
		email = activeUser.Email
	}

	wallet, err := w.server.engine.CreateWallet(ctx.Request.Context(), activeUser.UserID, email)
	if err != nil {
		w.server.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, basemodels.NewSuccess("Wallet Created Successfully", models.ToWalletResponse(wallet)))
}

func (w *Wallet) getMyWallet(ctx *gin.Context) {
	wallet, _, ok := w.server.activeWallet(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, basemodels.NewSuccess("Wallet Fetched Successfully", models.ToWalletResponse(wallet)))
}

func (w *Wallet) getWallet(ctx *gin.Context) {
	activeUser, err := utils.GetActiveUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, basemodels.NewError(apistrings.UserNotFound))
		return
	}

	wallet, err := w.server.engine.GetWallet(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		w.server.respondError(ctx, err)
		return
	}

	if wallet.UserID == activeUser.UserID || activeUser.IsAdmin() {
		ctx.JSON(http.StatusOK, basemodels.NewSuccess("Wallet Fetched Successfully", models.ToWalletResponse(wallet)))
		return
	}
	ctx.JSON(http.StatusOK, basemodels.NewSuccess("Wallet Fetched Successfully", models.ToWalletLookupResponse(wallet)))
}

func (w *Wallet) getTransactions(ctx *gin.Context) {
	limit, errLimit := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	offset, errOffset := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if errLimit != nil || errOffset != nil || limit < 0 || offset < 0 {
		ctx.JSON(http.StatusBadRequest, basemodels.NewCodedError("INVALID_REQUEST", apistrings.InvalidPagination))
		return
	}

	wallet, _, ok := w.server.activeWallet(ctx)
	if !ok {
		return
	}

	txns, err := w.server.engine.ListTransactions(ctx.Request.Context(), wallet.ID, limit, offset)
	if err != nil {
		w.server.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, basemodels.NewSuccess("Transactions Fetched Successfully", models.ToTransactionCollectionResponse(txns)))
}

func (w *Wallet) withdraw(ctx *gin.Context) {
	request := models.WithdrawRequest{}
	if err := ctx.ShouldBindJSON(&request); err != nil {
		w.server.respondBindError(ctx, err, apistrings.InvalidWithdrawInput)
		return
	}

	wallet, _, ok := w.server.activeWallet(ctx)
	if !ok {
		return
	}

	amount, err := domain.ParseAmount(request.Amount)
	if err != nil {
		w.server.respondError(ctx, err)
		return
	}
	ref, err := clientReference(ctx, request.Reference)
	if err != nil {
		w.server.respondError(ctx, err)
		return
	}

	txn, err := w.server.engine.Withdraw(ctx.Request.Context(), service.WithdrawRequest{
		WalletID:      wallet.ID,
		Amount:        amount,
		BankCode:      request.BankCode,
		AccountNumber: request.AccountNumber,
		AccountName:   request.AccountName,
		Narration:     request.Narration,
		ClientRef:     ref,
	})
	if err != nil {
		w.server.respondError(ctx, err)
		return
	}

	respondTransaction(ctx, txn, "Withdrawal Processed Successfully")
}

func (w *Wallet) transfer(ctx *gin.Context) {
	request := models.TransferRequest{}
	if err := ctx.ShouldBindJSON(&request); err != nil {
		w.server.respondBindError(ctx, err, apistrings.InvalidTransferInput)
		return
	}

	wallet, _, ok := w.server.activeWallet(ctx)
	if !ok {
		return
	}

	amount, err := domain.ParseAmount(request.Amount)
	if err != nil {
		w.server.respondError(ctx, err)
		return
	}
	ref, err := clientReference(ctx, request.Reference)
	if err != nil {
		w.server.respondError(ctx, err)
		return
	}

	txn, err := w.server.engine.Transfer(ctx.Request.Context(), service.TransferRequest{
		SourceWalletID: wallet.ID,
		DestWalletID:   request.DestinationWalletID,
		Amount:         amount,
		Narration:      request.Narration,
		ClientRef:      ref,
	})
	if err != nil {
		w.server.respondError(ctx, err)
		return
	}

	respondTransaction(ctx, txn, "Transfer Completed Successfully")
}
