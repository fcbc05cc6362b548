package repository

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/schedule"
	"github.com/educonnect/service-booking/internal/domain/slot"
	"github.com/educonnect/service-booking/internal/repository/memory"
	"github.com/educonnect/service-booking/pkg/config"
	"github.com/educonnect/service-booking/pkg/database"
)

// Store bundles the repositories and unit of work of one backing store.
type Store struct {
	UnitOfWork   schedule.UnitOfWork
	Slots        slot.Repository
	Bookings     booking.BookingRepository
	Participants participant.Repository

	// DB is nil for the memory driver.
	DB *gorm.DB
}

// Close releases the database pool, if any.
func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Open builds the store for driver ("memory" or "postgres"). For postgres, pending
// migrations in migrationsDir are applied unless migrationsDir is empty.
func Open(driver string, dbCfg config.DatabaseConfig, migrationsDir string, log *zap.Logger) (*Store, error) {
	switch driver {
	case "memory":
		mem := memory.NewStore()
		log.Warn("using in-memory store; data is lost on restart")
		return &Store{
			UnitOfWork:   mem,
			Slots:        mem.Slots(),
			Bookings:     mem.Bookings(),
			Participants: mem.Participants(),
		}, nil

	case "postgres":
		db, err := database.Connect(dbCfg, log)
		if err != nil {
			return nil, err
		}
		if migrationsDir != "" {
			if err := database.RunMigrations(dbCfg.DatabaseURL(), migrationsDir, log); err != nil {
				return nil, err
			}
		}
		return NewGormStore(db), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

// NewGormStore wires the gorm repositories around db.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		UnitOfWork:   NewGormUnitOfWork(db),
		Slots:        NewGormSlotRepository(db),
		Bookings:     NewGormBookingRepository(db),
		Participants: NewGormParticipantRepository(db),
		DB:           db,
	}
}
