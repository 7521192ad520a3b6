package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/safetypro/rumore-server/config"
	"github.com/safetypro/rumore-server/internal/api"
	"github.com/safetypro/rumore-server/internal/api/handler"
	"github.com/safetypro/rumore-server/internal/database"
	"github.com/safetypro/rumore-server/internal/pkg/dedup"
	"github.com/safetypro/rumore-server/internal/pkg/email"
	"github.com/safetypro/rumore-server/internal/pkg/oss"
	"github.com/safetypro/rumore-server/internal/pkg/pubsub"
	"github.com/safetypro/rumore-server/internal/pkg/stripeclient"
	"github.com/safetypro/rumore-server/internal/pkg/ws"
	"github.com/safetypro/rumore-server/internal/repository"
	"github.com/safetypro/rumore-server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("jwt.secret is required")
	}
	if cfg.Stripe.SecretKey == "" || cfg.Stripe.WebhookSecret == "" {
		log.Fatal("stripe.secret_key and stripe.webhook_secret are required")
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 OSS
	ossClient, err := oss.NewClient(&cfg.OSS)
	if err != nil {
		log.Fatalf("Failed to init OSS client: %v", err)
	}

	// Stripe 与邮件
	stripeClient := stripeclient.New(&cfg.Stripe)
	emailService := email.NewService(&cfg.Email)

	// WebSocket Hub + 跨实例事件总线。webhook 可能落在任意实例，
	// 推送经 redis 广播后由持有连接的实例转发。
	wsHub := ws.NewHub()
	publisher := pubsub.NewPublisher(rdb)
	subscriber := pubsub.NewSubscriber(rdb)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		err := subscriber.Subscribe(rootCtx, func(event *pubsub.SubscriptionEvent) {
			wsHub.SendToUser(event.UserID, &ws.Event{Type: event.Kind, Data: event})
		})
		if err != nil && rootCtx.Err() == nil {
			log.Printf("Subscription event listener stopped: %v", err)
		}
	}()

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	aziendaRepo := repository.NewAziendaRepository(db)
	espoRepo := repository.NewEsposizioneRepository(db)
	dpiRepo := repository.NewDPIRepository(db)
	docRepo := repository.NewDocumentoRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)

	// 初始化 Service
	entitlementService := service.NewEntitlementService(subRepo, aziendaRepo, espoRepo, dpiRepo, docRepo, &cfg.FreeTier)
	authService := service.NewAuthService(userRepo, emailService, cfg)
	aziendaService := service.NewAziendaService(aziendaRepo, userRepo, entitlementService)
	espoService := service.NewEsposizioneService(espoRepo, aziendaRepo, userRepo, entitlementService)
	dpiService := service.NewDPIService(dpiRepo, aziendaRepo, userRepo, entitlementService)
	docService := service.NewDocumentoService(docRepo, espoRepo, dpiRepo, userRepo, ossClient, entitlementService, &cfg.Upload)
	subService := service.NewSubscriptionService(subRepo, planRepo, userRepo, stripeClient, entitlementService, &cfg.Stripe)
	webhookService := service.NewWebhookService(subRepo, planRepo, userRepo, stripeClient, dedup.NewGuard(rdb), publisher, emailService)
	adminService := service.NewAdminService(userRepo, aziendaRepo, espoRepo, dpiRepo, docRepo, subRepo)

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService)
	aziendaHandler := handler.NewAziendaHandler(aziendaService)
	espoHandler := handler.NewEsposizioneHandler(espoService)
	dpiHandler := handler.NewDPIHandler(dpiService)
	docHandler := handler.NewDocumentoHandler(docService)
	subHandler := handler.NewSubscriptionHandler(subService)
	webhookHandler := handler.NewWebhookHandler(stripeClient, webhookService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins)
	adminHandler := handler.NewAdminHandler(adminService)

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		aziendaHandler,
		espoHandler,
		dpiHandler,
		docHandler,
		subHandler,
		webhookHandler,
		websocketHandler,
		adminHandler,
		userRepo,
		cfg,
	)
	engine := router.Setup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	if err := rdb.Close(); err != nil {
		log.Printf("Failed to close redis: %v", err)
	}
	log.Println("Server stopped")
}
