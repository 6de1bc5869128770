package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"eventhub/config"
	"eventhub/internal/handlers"
	"eventhub/internal/qrticket"
	"eventhub/internal/services"
	"eventhub/internal/services/gateway"
	"eventhub/monitoring"
	"eventhub/security"
	"eventhub/utils"

	_ "eventhub/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go/v7"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUUID))
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize payment gateway
	registry := gateway.NewRegistry(gateway.NewFactory())
	if err := registry.Register(ctx, gateway.ProviderRazorpay, &cfg.Razorpay); err != nil {
		return err
	}
	gw, err := registry.Primary()
	if err != nil {
		return err
	}

	// Initialize stores and services
	paymentStore := services.NewPBPaymentStore(app)
	attendeeStore := services.NewPBAttendeeStore(app)
	eventStore := services.NewPBEventStore(app)

	notifier := services.NewNotifier(services.NewMailerSender(app), services.NewPubNubPublisher(pn), cfg.NotifierBuffer)
	notifier.Start(ctx)

	ledger := services.NewPaymentLedger(paymentStore)
	paymentService := services.NewPaymentService(ledger, gw, attendeeStore, eventStore, notifier, redisClient)

	codec := qrticket.NewCodec(cfg.QRSecret, cfg.QRFreshness)
	checkInService := services.NewCheckInService(attendeeStore, eventStore, codec, notifier)

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(app, paymentService)
	webhookHandler := handlers.NewWebhookHandler(app, paymentService)
	checkInHandler := handlers.NewCheckInHandler(app, checkInService)

	limiter := security.NewRateLimiter(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Metrics server on its own port
	if cfg.EnableMetrics {
		monitoring.StartMetricsServer(cfg.MetricsPort)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Payment endpoints
		e.Router.POST("/api/v1/payments", paymentHandler.CreatePayment)
		e.Router.GET("/api/v1/payments/{orderId}", paymentHandler.GetPayment)
		e.Router.POST("/api/v1/payments/{orderId}/link", paymentHandler.CreatePaymentLink)
		e.Router.POST("/api/v1/payments/{orderId}/refund", paymentHandler.RefundPayment)
		e.Router.POST("/api/v1/payments/verify", limiter.Wrap("verify", paymentHandler.VerifyPayment))

		// Gateway webhook
		e.Router.POST("/api/v1/payments/webhook", webhookHandler.GatewayWebhook)

		// Check-in endpoints
		e.Router.POST("/api/v1/scan", limiter.Wrap("scan", checkInHandler.Scan))
		e.Router.POST("/api/v1/attendees/{attendeeId}/check-in", checkInHandler.ManualCheckIn)
		e.Router.GET("/api/v1/attendees/{attendeeId}/ticket", checkInHandler.TicketQR)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		slog.Info("Server routes registered", "environment", cfg.Environment)

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
