package main

import (
	institutionhandler "blokmap/internal/institutions/handler"
	institutionrepository "blokmap/internal/institutions/repository"
	institutionservice "blokmap/internal/institutions/service"
	institutionvalidator "blokmap/internal/institutions/validator"
	locationhandler "blokmap/internal/locations/handler"
	locationrepository "blokmap/internal/locations/repository"
	locationservice "blokmap/internal/locations/service"
	locationvalidator "blokmap/internal/locations/validator"
	membershiphandler "blokmap/internal/memberships/handler"
	membershiprepository "blokmap/internal/memberships/repository"
	membershipservice "blokmap/internal/memberships/service"
	membershipvalidator "blokmap/internal/memberships/validator"
	openingtimehandler "blokmap/internal/openingtimes/handler"
	openingtimerepository "blokmap/internal/openingtimes/repository"
	openingtimeservice "blokmap/internal/openingtimes/service"
	openingtimevalidator "blokmap/internal/openingtimes/validator"
	reservationhandler "blokmap/internal/reservations/handler"
	reservationrepository "blokmap/internal/reservations/repository"
	reservationservice "blokmap/internal/reservations/service"
	reservationvalidator "blokmap/internal/reservations/validator"
	"blokmap/pkg/app"
	"blokmap/pkg/config"
	"blokmap/pkg/contracts"
	"blokmap/pkg/kafka"
	kafka_config "blokmap/pkg/kafka/config"
)

const ServiceName = "blokmap"

func main() {
	cfg := config.Load(ServiceName)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	// Log all configuration values
	cfg.LogConfiguration()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting blokmap service")
	cfg.SetMongo()

	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)
	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.ReservationEventsTopic, kafkaCfg.DLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	serverApp := app.NewApplication()
	serverApp.SetProducer(producer)
	serverApp.SetApp(cfg, initHandlers(cfg, producer)...)
	serverApp.Run()
}

func initHandlers(cfg *config.Config, producer *kafka.Producer) []contracts.Handler {
	roleRepo := membershiprepository.NewMongoRoleRepository(cfg)
	membershipRepo := membershiprepository.NewMongoMembershipRepository(cfg)
	memberships := membershipservice.NewMembershipService(
		roleRepo,
		membershipRepo,
		membershipvalidator.NewMembershipValidator(cfg.Log),
		cfg,
	)

	institutionRepo := institutionrepository.NewMongoInstitutionRepository(cfg)
	authorityRepo := institutionrepository.NewMongoAuthorityRepository(cfg)
	institutions := institutionservice.NewInstitutionService(
		institutionRepo,
		authorityRepo,
		memberships,
		institutionvalidator.NewInstitutionValidator(cfg.Log),
		cfg,
	)

	locationRepo := locationrepository.NewMongoLocationRepository(cfg)
	tagRepo := locationrepository.NewMongoTagRepository(cfg)
	locations := locationservice.NewLocationService(
		locationRepo,
		tagRepo,
		memberships,
		locationvalidator.NewLocationValidator(cfg.Log),
		cfg,
	)

	openingTimeRepo := openingtimerepository.NewMongoOpeningTimeRepository(cfg)
	openingTimes := openingtimeservice.NewOpeningTimeService(
		openingTimeRepo,
		memberships,
		openingtimevalidator.NewOpeningTimeValidator(cfg.Log),
		cfg,
	)

	reservationRepo := reservationrepository.NewMongoReservationRepository(cfg)
	lockRepo := reservationrepository.NewMongoReservationLockRepository(cfg)
	reservations := reservationservice.NewReservationService(
		reservationRepo,
		lockRepo,
		openingTimeRepo,
		locationRepo,
		memberships,
		producer,
		reservationvalidator.NewReservationValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)

	return []contracts.Handler{
		membershiphandler.NewMembershipHandler(memberships, cfg.Log),
		institutionhandler.NewInstitutionHandler(institutions, cfg.Log),
		locationhandler.NewLocationHandler(locations, cfg.Log),
		openingtimehandler.NewOpeningTimeHandler(openingTimes, cfg.Log),
		reservationhandler.NewReservationHandler(reservations, cfg.Log),
	}
}
