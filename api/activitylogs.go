package api

import (
	"net/http"
	"strconv"

	"github.com/SwiftFiat/NexaWallet-Backend/api/apistrings"
	basemodels "github.com/SwiftFiat/NexaWallet-Backend/models"
	"github.com/gin-gonic/gin"
)

type ActivityLog struct {
	server *Server
}

func (h ActivityLog) router(server *Server) {
	h.server = server

	serverGroupV1 := server.router.Group("/api/v1/activitylogs", server.AuthenticatedMiddleware(), server.AdminMiddleware())
	serverGroupV1.GET("recent", h.GetRecentActivity)
	serverGroupV1.GET("users/:id", h.GetUserActivity)
}

func pagination(c *gin.Context) (int32, int32, bool) {
	limit, errLimit := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, errOffset := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if errLimit != nil || errOffset != nil || limit < 0 || offset < 0 || limit > 500 {
		return 0, 0, false
	}
	return int32(limit), int32(offset), true
}

func (h *ActivityLog) GetUserActivity(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, basemodels.NewCodedError("INVALID_REQUEST", apistrings.UserNotFound))
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		c.JSON(http.StatusBadRequest, basemodels.NewCodedError("INVALID_REQUEST", apistrings.InvalidPagination))
		return
	}

	logs, err := h.server.activity.GetByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.server.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, basemodels.NewSuccess("Activity logs retrieved successfully", logs))
}

func (h *ActivityLog) GetRecentActivity(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		c.JSON(http.StatusBadRequest, basemodels.NewCodedError("INVALID_REQUEST", apistrings.InvalidPagination))
		return
	}

	logs, err := h.server.activity.GetRecent(c.Request.Context(), limit, offset)
	if err != nil {
		h.server.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, basemodels.NewSuccess("Activity logs retrieved successfully", logs))
}
