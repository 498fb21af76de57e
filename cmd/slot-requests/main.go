package main

import (
	"context"
	"errors"

	"parkly/internal/requests/handler"
	"parkly/internal/requests/repository"
	"parkly/internal/requests/service"
	"parkly/internal/requests/validator"
	slotrepo "parkly/internal/slots/repository"
	"parkly/pkg/app"
	"parkly/pkg/audit"
	"parkly/pkg/config"
	"parkly/pkg/kafka"
	kafka_config "parkly/pkg/kafka/config"
	kafka_middleware "parkly/pkg/kafka/middleware"
	"parkly/pkg/notification"
)

const ServiceName = "slot-requests"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Slot Requests service")
	serverApp := app.NewApplication(cfg)

	recorder := initAudit(cfg, serverApp)
	gateway := initNotifications(cfg, serverApp)

	v := validator.NewSlotRequestValidator()
	requestRepo := repository.NewMongoSlotRequestRepository(cfg)
	vehicleRepo := repository.NewMongoVehicleRepository(cfg)
	slotRepo := slotrepo.NewMongoParkingSlotRepository(cfg)

	requestService := service.NewSlotRequestService(requestRepo, vehicleRepo, v, recorder, cfg)
	allocationService := service.NewAllocationService(requestRepo, slotRepo, gateway, recorder, v, cfg)
	cfg.Log.Info("Slot request services initialized", "database", cfg.MongoDatabaseName)

	serverApp.SetApp(handler.NewSlotRequestHandler(requestService, allocationService, cfg.Log))
	serverApp.Run()
}

func initAudit(cfg *config.Config, serverApp *app.Application) audit.Recorder {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.AuditTopic, kafkaCfg.AuditDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create audit producer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(metrics.Producer())
	}

	serverApp.OnShutdown("audit-producer", func() error {
		cfg.Log.Info("Audit producer stats", "metrics", metrics.Snapshot())
		return producer.Close()
	})
	return audit.NewKafkaRecorder(producer, ServiceName)
}

func initNotifications(cfg *config.Config, serverApp *app.Application) notification.Gateway {
	if cfg.NotificationTransport == config.TransportSMTP {
		cfg.Log.Info("Notifications sent inline over SMTP", "host", cfg.SMTPHost)
		return notification.NewSMTPGateway(notification.NewSMTPMailer(smtpConfig(cfg)))
	}

	cfg.SetAMQP()
	gateway, err := notification.NewAMQPGateway(cfg.Client.AMQP, cfg.NotificationQueue, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to set up notification queue", "error", err)
	}

	serverApp.AddReadinessCheck(app.ReadinessCheck{
		Name: "rabbitmq",
		Check: func(context.Context) error {
			if cfg.Client.AMQP.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		},
	})
	serverApp.OnShutdown("notification-gateway", gateway.Close)
	cfg.Log.Info("Notifications queued on RabbitMQ", "queue", cfg.NotificationQueue)
	return gateway
}

func smtpConfig(cfg *config.Config) notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}
}
