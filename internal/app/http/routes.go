package routes

import (
	adminapi "github.com/ByMatthewNeal/Arkline-sub011/internal/api/admin"
	invitesapi "github.com/ByMatthewNeal/Arkline-sub011/internal/api/invites"
	metricsapi "github.com/ByMatthewNeal/Arkline-sub011/internal/api/metrics"
	plansapi "github.com/ByMatthewNeal/Arkline-sub011/internal/api/plans"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/api/webhook"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/app/http/middleware"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/infra/stripeclient"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// One live Stripe client shared by every package that talks upstream.
	client := stripeclient.NewClient()
	webhook.Processor = client
	adminapi.Processor = client
	plansapi.Processor = client

	r.POST("/webhook", webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/invites/:code", invitesapi.ValidateCode)
	r.GET("/plans", plansapi.ListPlans)

	// Authenticated. The sanitizer sits on every route that accepts a JSON
	// body; the webhook stays outside it so the raw payload bytes keep
	// their signature.
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(), middleware.SanitizeInputMiddleware())
	auth.POST("/invites/redeem", invitesapi.RedeemCode)

	// Admin routes: role comes from the profile row, not the token.
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireAdmin(), middleware.SanitizeInputMiddleware())

	admin.POST("/invites", adminapi.GenerateInvite)
	admin.GET("/invites", adminapi.ListInvites)
	admin.POST("/invites/:code/revoke", adminapi.RevokeInvite)

	admin.GET("/subscriptions", adminapi.ListSubscriptions)
	admin.POST("/subscriptions/cancel", adminapi.CancelSubscription)
	admin.POST("/subscriptions/pause", adminapi.PauseResumeSubscription)
	admin.POST("/subscriptions/change-plan", adminapi.ChangePlan)

	admin.POST("/refunds", adminapi.IssueRefund)
	admin.GET("/refunds", adminapi.ListRefunds)

	admin.GET("/metrics", metricsapi.GetMetrics)
	admin.POST("/sync-plans", plansapi.SyncPlansFromStripe)
}
