package api

import (
	"net/http"

	analysisDelivery "mailgreen-backend/internal/analysis/delivery"
	authDelivery "mailgreen-backend/internal/auth/delivery"
	authUsecasePkg "mailgreen-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecasePkg.AuthUsecase, authHandler *authDelivery.AuthHandler, mailHandler *analysisDelivery.MailHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/google", authHandler.GoogleSignIn)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", authDelivery.AuthMiddleware(authUsecase), authHandler.Me)
			auth.POST("/logout", authHandler.Logout)
		}

		// Mail analysis routes (protected)
		mail := api.Group("/mail")
		mail.Use(authDelivery.AuthMiddleware(authUsecase))
		{
			mail.POST("/analyze", mailHandler.StartAnalysis)
			mail.GET("/progress", mailHandler.GetProgress)
			mail.GET("/senders", mailHandler.TopSenders)
			mail.GET("/senders/details", mailHandler.SenderDetails)
			mail.GET("/keywords", mailHandler.TopKeywords)
			mail.GET("/keywords/details", mailHandler.KeywordDetails)
			mail.POST("/actions", mailHandler.ApplyAction)
			mail.GET("/topics", mailHandler.ListTopics)
		}
	}
}
