package main

import (
	"context"
	"time"

	"resort/internal/bookings/events"
	"resort/internal/bookings/handler"
	"resort/internal/bookings/repository"
	"resort/internal/bookings/service"
	"resort/internal/bookings/validator"
	"resort/pkg/app"
	"resort/pkg/config"
	mongodb "resort/pkg/db/mongo"
	kafka_config "resort/pkg/kafka/config"
	"resort/pkg/lock"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")
	bookingService, publisher := initServices(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, cfg.Log),
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.BookingService, events.Publisher) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)

	lockManager := lock.NewManager(lock.NewMongoStore(db), cfg.LockRetryInterval, cfg.Log)
	lockManager.Sweep(ctx)

	supportsTx := mongodb.SupportsTransactions(ctx, cfg.Client.Mongo)
	if supportsTx {
		cfg.Log.Info("Deployment supports transactions, using transactional reservation path")
	} else {
		cfg.Log.Info("Deployment does not support transactions, using lock-guarded reservation path")
	}

	publisher := initPublisher(cfg)

	bookingService := service.NewBookingService(
		repository.NewMongoBookingRepository(cfg),
		repository.NewMongoOccupancyRepository(cfg),
		repository.NewMongoCapacityResolver(cfg),
		lockManager,
		publisher,
		validator.NewBookingValidator(cfg.Log),
		supportsTx,
		service.Config{
			LockTTL:            cfg.LockTTL,
			LockAcquireTimeout: cfg.LockAcquireTimeout,
			Log:                cfg.Log,
		},
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService, publisher
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Booking events disabled, using noop publisher")
		return events.NoopPublisher{}
	}

	kafkaCfg := kafka_config.Load()
	publisher, err := events.NewKafkaPublisher(kafkaCfg, cfg.BookingEventsTopic, ServiceName, cfg.Log)
	if err != nil {
		// Events are best effort; a missing broker must not keep bookings down.
		cfg.Log.Error("Failed to initialize Kafka publisher, falling back to noop", "error", err)
		return events.NoopPublisher{}
	}
	return publisher
}
