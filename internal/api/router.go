package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safetypro/rumore-server/config"
	"github.com/safetypro/rumore-server/internal/api/handler"
	"github.com/safetypro/rumore-server/internal/api/middleware"
	"github.com/safetypro/rumore-server/internal/repository"
)

type Router struct {
	authHandler         *handler.AuthHandler
	aziendaHandler      *handler.AziendaHandler
	esposizioneHandler  *handler.EsposizioneHandler
	dpiHandler          *handler.DPIHandler
	documentoHandler    *handler.DocumentoHandler
	subscriptionHandler *handler.SubscriptionHandler
	webhookHandler      *handler.WebhookHandler
	websocketHandler    *handler.WebSocketHandler
	adminHandler        *handler.AdminHandler
	userRepo            *repository.UserRepository
	cfg                 *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	aziendaHandler *handler.AziendaHandler,
	esposizioneHandler *handler.EsposizioneHandler,
	dpiHandler *handler.DPIHandler,
	documentoHandler *handler.DocumentoHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	webhookHandler *handler.WebhookHandler,
	websocketHandler *handler.WebSocketHandler,
	adminHandler *handler.AdminHandler,
	userRepo *repository.UserRepository,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:         authHandler,
		aziendaHandler:      aziendaHandler,
		esposizioneHandler:  esposizioneHandler,
		dpiHandler:          dpiHandler,
		documentoHandler:    documentoHandler,
		subscriptionHandler: subscriptionHandler,
		webhookHandler:      webhookHandler,
		websocketHandler:    websocketHandler,
		adminHandler:        adminHandler,
		userRepo:            userRepo,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Stripe webhook 不在 /api/v1 下，也不走统一响应格式
	engine.POST("/api/webhooks/stripe", r.webhookHandler.Handle)

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/forgot-password", r.authHandler.ForgotPassword)
			auth.POST("/reset-password", r.authHandler.ResetPassword)
		}

		// 公开接口 - 套餐
		api.GET("/abbonamenti/piani", r.subscriptionHandler.ListPlans)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 用户
			authenticated.GET("/user/profile", r.authHandler.GetProfile)

			// 企业
			aziende := authenticated.Group("/aziende")
			{
				aziende.POST("", r.aziendaHandler.Create)
				aziende.GET("", r.aziendaHandler.List)
				aziende.GET("/:id", r.aziendaHandler.Get)
				aziende.PUT("/:id", r.aziendaHandler.Update)
				aziende.DELETE("/:id", r.aziendaHandler.Delete)
			}

			// 噪声暴露评估
			esposizione := authenticated.Group("/valutazioni/esposizione")
			{
				esposizione.POST("", r.esposizioneHandler.Create)
				esposizione.GET("", r.esposizioneHandler.List)
				esposizione.GET("/:id", r.esposizioneHandler.Get)
				esposizione.PUT("/:id", r.esposizioneHandler.Update)
				esposizione.DELETE("/:id", r.esposizioneHandler.Delete)
			}

			// DPI 防护评估
			dpi := authenticated.Group("/valutazioni/dpi")
			{
				dpi.POST("", r.dpiHandler.Create)
				dpi.GET("", r.dpiHandler.List)
				dpi.GET("/:id", r.dpiHandler.Get)
				dpi.PUT("/:id", r.dpiHandler.Update)
				dpi.DELETE("/:id", r.dpiHandler.Delete)
			}

			// 文档档案
			documenti := authenticated.Group("/documenti")
			{
				documenti.POST("", r.documentoHandler.Upload)
				documenti.GET("", r.documentoHandler.List)
				documenti.GET("/:id/download", r.documentoHandler.Download)
				documenti.DELETE("/:id", r.documentoHandler.Delete)
			}

			// 订阅
			abbonamenti := authenticated.Group("/abbonamenti")
			{
				abbonamenti.GET("/mio", r.subscriptionHandler.GetMy)
				abbonamenti.GET("/utilizzo", r.subscriptionHandler.GetUsage)
				abbonamenti.POST("/checkout", r.subscriptionHandler.CreateCheckoutSession)
				abbonamenti.POST("/portale", r.subscriptionHandler.CreatePortalSession)
				abbonamenti.POST("/annulla", r.subscriptionHandler.Cancel)
				abbonamenti.GET("/fatture", r.subscriptionHandler.ListInvoices)
				abbonamenti.GET("/fatture/prossima", r.subscriptionHandler.UpcomingInvoice)
			}

			// 管理端
			admin := authenticated.Group("/admin")
			admin.Use(middleware.AdminOnly(r.userRepo))
			{
				admin.GET("/users", r.adminHandler.ListUsers)
				admin.PUT("/users/:id/admin", r.adminHandler.SetAdmin)
				admin.DELETE("/users/:id", r.adminHandler.DeleteUser)
			}
		}
	}

	return engine
}
