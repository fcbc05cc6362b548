//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/educonnect/service-booking/internal/application"
	bookingDomain "github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	bookingEvents "github.com/educonnect/service-booking/internal/events"
	"github.com/educonnect/service-booking/internal/repository"
	"github.com/educonnect/service-booking/pkg/config"
	"github.com/educonnect/service-booking/pkg/database"
	"github.com/educonnect/service-booking/pkg/kafka"
	"github.com/educonnect/service-booking/pkg/metrics"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// bookingStack holds wired-up booking service components.
type bookingStack struct {
	Store        *repository.Store
	Slots        *application.SlotService
	Reservations *application.ReservationService
	Cancels      *application.CancellationService
	Participants *application.ParticipantService
	Consumer     *bookingEvents.ParticipantEventConsumer
	Metrics      *metrics.Collector
	Cleanup      func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers, applies the migrations and
// returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dbCfg := config.DatabaseConfig{
		Host:         pgHost,
		Port:         pgPort.Int(),
		User:         "test",
		Password:     "test",
		DBName:       "test_booking",
		SSLMode:      "disable",
		MaxOpenConns: 30,
	}

	// Poll until the pool can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		db, err = database.Connect(dbCfg, log)
		return err == nil
	}, 30*time.Second, time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(dbCfg.DatabaseURL(), "migrations", log))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, bookingEvents.TopicBookingEvents, bookingEvents.TopicParticipantEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupBookingStack wires the services against Postgres with notifications published to
// Kafka.
func setupBookingStack(t *testing.T, db *gorm.DB, brokers []string) *bookingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	clock := timerange.SystemClock{}
	collector := metrics.NewCollector("booking_it")

	store := repository.NewGormStore(db)
	producer := kafka.NewProducer(brokers, logger)
	dispatcher := bookingEvents.NewDispatcher(64, 2, collector, logger,
		bookingEvents.NewLogNotifier(logger),
		bookingEvents.NewKafkaNotifier(producer, logger),
	)
	after := application.PostCommit{Dispatcher: dispatcher}

	participants := application.NewParticipantService(store.Participants, clock, logger)
	groupID := fmt.Sprintf("test-booking-%s", uuid.New().String()[:8])

	return &bookingStack{
		Store: store,
		Slots: application.NewSlotService(store.Slots, clock, collector, logger),
		Reservations: application.NewReservationService(store.UnitOfWork,
			bookingDomain.NewLinkGenerator("https://meet.test"), after, clock, collector, logger),
		Cancels: application.NewCancellationService(store.UnitOfWork,
			bookingDomain.NewProviderPolicy(), bookingDomain.NewRequesterPolicy(2*time.Hour), after, clock, collector, logger),
		Participants: participants,
		Consumer:     bookingEvents.NewParticipantEventConsumer(brokers, groupID, participants, logger),
		Metrics:      collector,
		Cleanup: func() {
			dispatcher.Close()
			_ = producer.Close()
		},
	}
}

// futureHour returns a whole hour at least a day ahead.
func futureHour(offset int) application.TimeRangeRequest {
	start := time.Now().UTC().Truncate(time.Hour).Add(time.Duration(24+offset) * time.Hour)
	return application.TimeRangeRequest{Start: start, End: start.Add(time.Hour)}
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// consumeEvents reads from a Kafka topic until it has n events of the expected type for
// the given subject.
func consumeEvents(t *testing.T, brokers []string, topic, expectedType, subject string, n int, timeout time.Duration) []kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	var found []kafka.CloudEvent
	for len(found) < n {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for %d %q events on topic %q, got %d", n, expectedType, topic, len(found))
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType && ce.Subject == subject {
			found = append(found, ce)
		}
	}
	return found
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
