// Package routes wires the HTTP surface: middleware stack, health and
// metrics endpoints, user-facing wallet/KYC routes, and the admin
// back office.
package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	adminhandlers "github.com/aurum-service/aurum_service/internal/api/handlers/admin"
	kychandlers "github.com/aurum-service/aurum_service/internal/api/handlers/kyc"
	wallethandlers "github.com/aurum-service/aurum_service/internal/api/handlers/wallet"
	"github.com/aurum-service/aurum_service/internal/api/middleware"
	"github.com/aurum-service/aurum_service/pkg/metrics"
	"github.com/aurum-service/aurum_service/pkg/validation"
)

const (
	defaultBodyLimit = 1 << 20  // 1MiB
	kycBodyLimit     = 16 << 20 // base64 document images

	moneyMovementPerMinute = 30
)

// Handlers groups everything the router mounts
type Handlers struct {
	Wallet *wallethandlers.Handlers
	KYC    *kychandlers.Handlers
	Admin  *adminhandlers.Handlers
}

// Setup builds the gin engine with the full route table
func Setup(h Handlers, auth *middleware.AuthMiddleware, requestTimeout time.Duration) *gin.Engine {
	validation.Register()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestContext())
	router.Use(metrics.Middleware())
	router.Use(middleware.TimeoutMiddleware(requestTimeout))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/api/v1")
	v1.Use(auth.RequireAuth())
	{
		opLimiter := middleware.NewOperationRateLimiter(moneyMovementPerMinute)

		wallet := v1.Group("/wallet")
		wallet.Use(middleware.MaxBodySize(defaultBodyLimit))
		{
			wallet.POST("", h.Wallet.CreateWallet)
			wallet.GET("", h.Wallet.GetWallet)
			wallet.GET("/holdings", h.Wallet.GetHoldings)

			ops := wallet.Group("")
			ops.Use(opLimiter.Limit())
			{
				ops.POST("/deposit", h.Wallet.Deposit)
				ops.POST("/withdraw", h.Wallet.Withdraw)
				ops.POST("/gold/buy", h.Wallet.BuyGold)
				ops.POST("/gold/sell", h.Wallet.SellGold)
				ops.POST("/gold/delivery", h.Wallet.RequestDelivery)
			}
		}

		transactions := v1.Group("/transactions")
		{
			transactions.GET("", h.Wallet.ListTransactions)
			transactions.GET("/:id", h.Wallet.GetTransaction)
		}

		kyc := v1.Group("/kyc")
		{
			kyc.POST("/submit", middleware.MaxBodySize(kycBodyLimit), h.KYC.Submit)
			kyc.GET("/status", h.KYC.GetStatus)
		}
	}

	admin := router.Group("/api/v1/admin")
	admin.Use(auth.RequireAuth(), auth.RequireRole("admin", "super_admin"), middleware.MaxBodySize(defaultBodyLimit))
	{
		kyc := admin.Group("/kyc")
		{
			kyc.GET("/queue", h.Admin.ListKYCQueue)
			kyc.POST("/:id/review", h.Admin.StartKYCReview)
			kyc.POST("/:id/approve", h.Admin.ApproveKYC)
			kyc.POST("/:id/reject", h.Admin.RejectKYC)
		}

		transactions := admin.Group("/transactions")
		{
			transactions.POST("/:id/confirm", h.Admin.ConfirmDeposit)
			transactions.POST("/:id/complete", h.Admin.CompleteTransaction)
			transactions.POST("/:id/cancel", h.Admin.CancelTransaction)
			transactions.POST("/:id/refund", h.Admin.RefundTransaction)
		}

		wallets := admin.Group("/wallets")
		{
			wallets.POST("/:user_id/freeze", h.Admin.FreezeWallet)
			wallets.POST("/:user_id/unfreeze", h.Admin.UnfreezeWallet)
		}

		settings := admin.Group("/settings")
		{
			settings.GET("", h.Admin.GetSettings)
			settings.PUT("/fees", h.Admin.UpdateFeeSchedule)
			settings.PUT("/limits", h.Admin.UpdateLimitSchedule)
		}

		audit := admin.Group("/audit")
		{
			audit.GET("/logs", h.Admin.ListAuditLogs)
			audit.GET("/logs/export", h.Admin.ExportAuditLogs)
			audit.GET("/verify", h.Admin.VerifyAuditIntegrity)
		}
	}

	return router
}
