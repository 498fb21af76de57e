package main

import (
	"parkly/internal/slots/handler"
	"parkly/internal/slots/repository"
	"parkly/internal/slots/service"
	"parkly/internal/slots/validator"
	"parkly/pkg/app"
	"parkly/pkg/audit"
	"parkly/pkg/config"
	"parkly/pkg/kafka"
	kafka_config "parkly/pkg/kafka/config"
	kafka_middleware "parkly/pkg/kafka/middleware"
)

const ServiceName = "parking-slots"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Parking Slots service")
	serverApp := app.NewApplication(cfg)

	slotService := initServices(cfg, initAudit(cfg, serverApp))
	serverApp.SetApp(handler.NewParkingSlotHandler(slotService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, recorder audit.Recorder) service.ParkingSlotService {
	slotValidator := validator.NewParkingSlotValidator()
	slotRepo := repository.NewMongoParkingSlotRepository(cfg)
	slotService := service.NewParkingSlotService(
		slotRepo,
		slotValidator,
		recorder,
		cfg,
	)

	cfg.Log.Info("Parking slot service initialized", "database", cfg.MongoDatabaseName)
	return slotService
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
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	serverApp.OnShutdown("audit-producer", producer.Close)
	return audit.NewKafkaRecorder(producer, ServiceName)
}
