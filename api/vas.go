package api

import (
	"net/http"
	"strings"

	"github.com/SwiftFiat/NexaWallet-Backend/api/apistrings"
	models "github.com/SwiftFiat/NexaWallet-Backend/api/models"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/service"
	basemodels "github.com/SwiftFiat/NexaWallet-Backend/models"
	"github.com/gin-gonic/gin"
)

type VAS struct {
	server *Server
}

func (v VAS) router(server *Server) {
	v.server = server

	serverGroupV1 := server.router.Group("/api/v1/vas", server.AuthenticatedMiddleware())
	serverGroupV1.POST("airtime", v.buyAirtime)
	serverGroupV1.POST("data", v.buyData)
	serverGroupV1.GET("data/plans", v.getDataPlans)
}

func (v *VAS) buyAirtime(ctx *gin.Context) {
	request := models.AirtimeRequest{}
	if err := ctx.ShouldBindJSON(&request); err != nil {
		v.server.respondBindError(ctx, err, apistrings.InvalidAirtimeInput)
		return
	}

	wallet, _, ok := v.server.activeWallet(ctx)
	if !ok {
		return
	}

	amount, err := domain.ParseAmount(request.Amount)
	if err != nil {
		v.server.respondError(ctx, err)
		return
	}
	ref, err := clientReference(ctx, request.Reference)
	if err != nil {
		v.server.respondError(ctx, err)
		return
	}

	txn, err := v.server.engine.PurchaseAirtime(ctx.Request.Context(), service.AirtimeRequest{
		WalletID:    wallet.ID,
		PhoneNumber: request.PhoneNumber,
		Amount:      amount,
		Network:     request.Network,
		ClientRef:   ref,
	})
	if err != nil {
		v.server.respondError(ctx, err)
		return
	}

	respondTransaction(ctx, txn, "Airtime Purchased Successfully")
}

func (v *VAS) buyData(ctx *gin.Context) {
	request := models.DataRequest{}
	if err := ctx.ShouldBindJSON(&request); err != nil {
		v.server.respondBindError(ctx, err, apistrings.InvalidDataInput)
		return
	}

	wallet, _, ok := v.server.activeWallet(ctx)
	if !ok {
		return
	}

	ref, err := clientReference(ctx, request.Reference)
	if err != nil {
		v.server.respondError(ctx, err)
		return
	}

	txn, err := v.server.engine.PurchaseData(ctx.Request.Context(), service.DataRequest{
		WalletID:    wallet.ID,
		PhoneNumber: request.PhoneNumber,
		PlanCode:    request.PlanCode,
		Network:     request.Network,
		ClientRef:   ref,
	})
	if err != nil {
		v.server.respondError(ctx, err)
		return
	}

	respondTransaction(ctx, txn, "Data Purchased Successfully")
}

func (v *VAS) getDataPlans(ctx *gin.Context) {
	network := strings.TrimSpace(ctx.Query("network"))
	if network == "" {
		ctx.JSON(http.StatusBadRequest, basemodels.NewCodedError("INVALID_NETWORK", apistrings.InvalidNetwork))
		return
	}

	plans, err := v.server.engine.DataPlans(ctx.Request.Context(), network)
	if err != nil {
		v.server.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, basemodels.NewSuccess("Data Plans Fetched Successfully", models.ToDataPlanCollectionResponse(plans)))
}
