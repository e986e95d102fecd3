package api

import (
	analysisDelivery "mailgreen-backend/internal/analysis/delivery"
	analysisUsecasePkg "mailgreen-backend/internal/analysis/usecase"
	authDelivery "mailgreen-backend/internal/auth/delivery"
	authUsecasePkg "mailgreen-backend/internal/auth/usecase"
	"mailgreen-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase     authUsecasePkg.AuthUsecase
	analysisUsecase analysisUsecasePkg.AnalysisUsecase
	config          *config.Config
	authHandler     *authDelivery.AuthHandler
	mailHandler     *analysisDelivery.MailHandler
}

func NewHandler(authUc authUsecasePkg.AuthUsecase, analysisUc analysisUsecasePkg.AnalysisUsecase, cfg *config.Config) *Handler {
	return &Handler{
		authUsecase:     authUc,
		analysisUsecase: analysisUc,
		config:          cfg,
		authHandler:     authDelivery.NewAuthHandler(authUc),
		mailHandler:     analysisDelivery.NewMailHandler(analysisUc),
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Setup routes
	SetupRoutes(r, h.authUsecase, h.authHandler, h.mailHandler)

	return r.Run(addr)
}
