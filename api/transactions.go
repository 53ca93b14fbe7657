package api

import (
	"net/http"

	models "github.com/SwiftFiat/NexaWallet-Backend/api/models"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	basemodels "github.com/SwiftFiat/NexaWallet-Backend/models"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
	"github.com/gin-gonic/gin"
)

type Transactions struct {
	server *Server
}

func (t Transactions) router(server *Server) {
	t.server = server

	serverGroupV1 := server.router.Group("/api/v1/transactions", server.AuthenticatedMiddleware())
	serverGroupV1.GET(":reference", t.getTransaction)
}

func (t *Transactions) getTransaction(ctx *gin.Context) {
	txn, err := t.server.engine.GetTransaction(ctx.Request.Context(), ctx.Param("reference"))
	if err != nil {
		t.server.respondError(ctx, err)
		return
	}

	activeUser, _ := utils.GetActiveUser(ctx)
	if !activeUser.IsAdmin() {
		wallet, _, ok := t.server.activeWallet(ctx)
		if !ok {
			return
		}
		if txn.SourceWalletID != wallet.ID && txn.Destination.WalletID != wallet.ID {
			t.server.respondError(ctx, domain.NewLedgerError(domain.ErrNotYours, wallet.ID, txn.Reference))
			return
		}
	}

	ctx.JSON(http.StatusOK, basemodels.NewSuccess("Transaction Fetched Successfully", models.ToTransactionResponse(txn)))
}
