package api

import (
	"net/http"

	"github.com/SwiftFiat/NexaWallet-Backend/api/apistrings"
	models "github.com/SwiftFiat/NexaWallet-Backend/api/models"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	basemodels "github.com/SwiftFiat/NexaWallet-Backend/models"
	"github.com/gin-gonic/gin"
)

type Admin struct {
	server *Server
}

func (a Admin) router(server *Server) {
	a.server = server

	serverGroupV1 := server.router.Group("/api/v1/admin", server.AuthenticatedMiddleware(), server.AdminMiddleware())
	serverGroupV1.POST("transactions/:reference/resolve", a.resolveTransaction)
}

func (a *Admin) resolveTransaction(ctx *gin.Context) {
	request := models.ResolveRequest{}
	if err := ctx.ShouldBindJSON(&request); err != nil {
		a.server.respondBindError(ctx, err, apistrings.InvalidResolveInput)
		return
	}

	outcome, ok := domain.ParseOutcome(request.Outcome)
	if !ok {
		ctx.JSON(http.StatusBadRequest, basemodels.NewCodedError("INVALID_REQUEST", apistrings.InvalidResolveInput))
		return
	}

	txn, err := a.server.engine.ForceResolve(ctx.Request.Context(), ctx.Param("reference"), outcome)
	if err != nil {
		a.server.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, basemodels.NewSuccess("Transaction Resolved", models.ToTransactionResponse(txn)))
}
