package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"trade-chat/internal/config"
	"trade-chat/internal/db"
	"trade-chat/internal/handlers"
	"trade-chat/internal/observability"
	"trade-chat/internal/rabbitmq"
	"trade-chat/internal/relay"
	"trade-chat/internal/repositories"
	"trade-chat/internal/telemetry"
	"trade-chat/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	shutdownTracing, err := tracing.Setup(ctx, "trade-chat", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))

	audit := telemetry.NewAuditEmitter(publisher, "audit_log.trade_chat", "trade-chat", cfg.Environment)
	audit.Emit(ctx, "INFO", "relay starting", "", "")

	messageRepo := repositories.NewMessageRepo(database)

	hub := relay.NewHub()
	wsHandler := relay.NewHandler(hub, audit)
	historyHandler := handlers.NewHistoryHandler(messageRepo, hub)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("trade-chat"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/api/trades/:trade_id/chat-rooms/:room_id/messages", historyHandler.GetRoomMessages)
	router.POST("/api/trades/:trade_id/chat-rooms/:room_id/messages", historyHandler.PostRoomMessage)
	router.GET("/ws", wsHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.Debug)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
