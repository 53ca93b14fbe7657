package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	activitylogs "github.com/SwiftFiat/NexaWallet-Backend/services/activity_logs"
	"github.com/SwiftFiat/NexaWallet-Backend/services/monitoring/logging"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
	"github.com/gin-gonic/gin"
)

const (
	WebhookPath = "/api/v1/webhooks/payscribe"
	ResolvePath = "/api/v1/admin/transactions/:reference/resolve"

	// EntityKey lets a handler name the entity it touched.
	EntityKey = "activity_entity"
)

type ActivityLogMiddleware struct {
	logs   activitylogs.Recorder
	logger *logging.Logger
	clock  utils.Clock
	wg     sync.WaitGroup
}

func NewActivityLogMiddleware(logs activitylogs.Recorder, logger *logging.Logger, clock utils.Clock) *ActivityLogMiddleware {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &ActivityLogMiddleware{
		logs:   logs,
		logger: logger,
		clock:  clock,
	}
}

func (a *ActivityLogMiddleware) ActivityLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if shouldSkipLogging(c.FullPath()) {
			c.Next()
			return
		}

		c.Next()

		var userID *int64
		if u, err := utils.GetActiveUser(c); err == nil {
			id := u.UserID
			userID = &id
		}

		params := activitylogs.CreateActivityLogParams{
			UserID:     userID,
			Action:     getActionFromRequest(c),
			EntityType: "transaction",
			EntityID:   entityFromRequest(c),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			CreatedAt:  a.clock.Now(),
		}

		// Written in the background so the response is not held up
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if _, err := a.logs.Create(ctx, params); err != nil && a.logger != nil {
				a.logger.WithError(err).Warn("activity log not saved")
			}
		}()
	}
}

// Wait blocks until pending log writes have finished.
func (a *ActivityLogMiddleware) Wait() {
	a.wg.Wait()
}

func shouldSkipLogging(path string) bool {
	// Should be in sync with routes in getActionFromRequest
	switch path {
	case WebhookPath, ResolvePath:
		return false
	}
	return true
}

func entityFromRequest(c *gin.Context) string {
	if ref := c.Param("reference"); ref != "" {
		return ref
	}
	return c.GetString(EntityKey)
}

func getActionFromRequest(c *gin.Context) string {
	status := c.Writer.Status()
	switch {
	case c.Request.Method == http.MethodPost && c.FullPath() == WebhookPath:
		return fmt.Sprintf("provider webhook received, responded %d", status)
	case c.Request.Method == http.MethodPost && c.FullPath() == ResolvePath:
		return fmt.Sprintf("transaction %s resolved by administrator, responded %d", c.Param("reference"), status)
	default:
		return fmt.Sprintf("request to %s", c.FullPath())
	}
}
