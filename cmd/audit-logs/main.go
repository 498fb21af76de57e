package main

import (
	"parkly/internal/auditlogs/handler"
	"parkly/internal/auditlogs/repository"
	"parkly/internal/auditlogs/service"
	"parkly/pkg/app"
	"parkly/pkg/config"
	"parkly/pkg/kafka"
	kafka_config "parkly/pkg/kafka/config"
	kafka_middleware "parkly/pkg/kafka/middleware"
)

const ServiceName = "audit-logs"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Audit Logs service")
	auditService := service.NewAuditLogService(repository.NewMongoAuditLogRepository(cfg), cfg)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	consumer, err := kafka.NewConsumer(kafkaCfg, kafkaCfg.AuditTopic, kafkaCfg.GroupID, kafkaCfg.AuditDLQTopic, auditService.HandleMessage, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create audit consumer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(metrics.Consumer())
	}

	serverApp := app.NewApplication(cfg)
	serverApp.AddWorker(app.Worker{Name: "audit-consumer", Run: consumer.Start})
	serverApp.OnShutdown("audit-consumer", func() error {
		cfg.Log.Info("Audit consumer stats", "metrics", metrics.Snapshot())
		return consumer.Close()
	})
	serverApp.SetApp(handler.NewAuditLogHandler(auditService, cfg.Log))
	serverApp.Run()
}
