package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/educonnect/service-booking/pkg/config"
)

const serviceName = "service-booking"

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// BookingConfig holds the booking rules that vary per deployment.
type BookingConfig struct {
	MeetingBaseURL        string
	RequesterCancelNotice time.Duration
	// ProviderCancelNotice of zero lets providers cancel until the session starts.
	ProviderCancelNotice time.Duration
	ReminderLeadTime     time.Duration
	SweepInterval        time.Duration
	SweepBatch           int
	DispatchBuffer       int
	DispatchWorkers      int
	RateLimitPerMinute   int
	RateLimitBurst       int
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port          string
	AppEnv        string
	StoreDriver   string
	DBConfig      config.DatabaseConfig
	JWTConfig     config.JWTConfig
	KafkaConfig   config.KafkaConfig
	RedisConfig   config.RedisConfig
	TracingConfig config.TracingConfig
	Booking       BookingConfig
}

// Load reads configuration from BOOKING_* environment variables and config.yaml.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("BOOKING")
	if err != nil {
		return nil, err
	}
	setDefaults(v)

	cfg := &ServiceConfig{
		Port:          config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:        config.GetAppEnv(v),
		StoreDriver:   v.GetString("STORE_DRIVER"),
		DBConfig:      config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:     config.LoadJWTConfig(v),
		KafkaConfig:   config.LoadKafkaConfig(v),
		RedisConfig:   config.LoadRedisConfig(v),
		TracingConfig: config.LoadTracingConfig(v, serviceName),
		Booking: BookingConfig{
			MeetingBaseURL:        v.GetString("MEETING_BASE_URL"),
			RequesterCancelNotice: v.GetDuration("REQUESTER_CANCEL_NOTICE"),
			ProviderCancelNotice:  v.GetDuration("PROVIDER_CANCEL_NOTICE"),
			ReminderLeadTime:      v.GetDuration("REMINDER_LEAD_TIME"),
			SweepInterval:         v.GetDuration("SWEEP_INTERVAL"),
			SweepBatch:            v.GetInt("SWEEP_BATCH"),
			DispatchBuffer:        v.GetInt("DISPATCH_BUFFER"),
			DispatchWorkers:       v.GetInt("DISPATCH_WORKERS"),
			RateLimitPerMinute:    v.GetInt("RATE_LIMIT_PER_MINUTE"),
			RateLimitBurst:        v.GetInt("RATE_LIMIT_BURST"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ServiceName is the name used for logs, traces and health output.
func (c *ServiceConfig) ServiceName() string { return serviceName }

func (c *ServiceConfig) validate() error {
	switch c.StoreDriver {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.Booking.MeetingBaseURL == "" {
		return fmt.Errorf("MEETING_BASE_URL must be set")
	}
	if c.Booking.RequesterCancelNotice < 0 || c.Booking.ProviderCancelNotice < 0 {
		return fmt.Errorf("cancellation notice must not be negative")
	}
	if c.Booking.DispatchBuffer < 1 || c.Booking.DispatchWorkers < 1 {
		return fmt.Errorf("dispatch buffer and workers must be positive")
	}
	if c.Booking.RateLimitPerMinute < 1 || c.Booking.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit and burst must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("STORE_DRIVER", StorePostgres)
	v.SetDefault("DB_NAME", "booking")
	v.SetDefault("MEETING_BASE_URL", "https://meet.educonnect.app")
	v.SetDefault("REQUESTER_CANCEL_NOTICE", 2*time.Hour)
	v.SetDefault("PROVIDER_CANCEL_NOTICE", 0)
	v.SetDefault("REMINDER_LEAD_TIME", time.Hour)
	v.SetDefault("SWEEP_INTERVAL", 5*time.Minute)
	v.SetDefault("SWEEP_BATCH", 500)
	v.SetDefault("DISPATCH_BUFFER", 256)
	v.SetDefault("DISPATCH_WORKERS", 4)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("RATE_LIMIT_BURST", 20)
}
