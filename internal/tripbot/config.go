package tripbot

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"tripbot/internal/tripbot/timeutil"
)

const (
	defaultSweepTick   = 30 * time.Second
	defaultQueueSize   = 64
	defaultSendTimeout = 15 * time.Second
	defaultLockTTL     = 30 * time.Second
)

// TripBotConfig holds runtime configuration for the trip bot module.
type TripBotConfig struct {
	SweepTick         time.Duration
	Timezone          string
	QueueSize         int
	SendTimeout       time.Duration
	LockTTL           time.Duration
	BridgeTokenSecret string
}

// LoadTripBotConfig reads configuration from environment variables and applies defaults.
func LoadTripBotConfig() (TripBotConfig, error) {
	cfg := TripBotConfig{
		SweepTick:   defaultSweepTick,
		Timezone:    timeutil.DefaultZone,
		QueueSize:   defaultQueueSize,
		SendTimeout: defaultSendTimeout,
		LockTTL:     defaultLockTTL,
	}

	if v, err := readIntEnv("SWEEP_TICK_SECONDS"); err != nil {
		return TripBotConfig{}, fmt.Errorf("parse SWEEP_TICK_SECONDS: %w", err)
	} else if v != nil {
		cfg.SweepTick = time.Duration(*v) * time.Second
	}

	if v, err := readIntEnv("QUEUE_SIZE"); err != nil {
		return TripBotConfig{}, fmt.Errorf("parse QUEUE_SIZE: %w", err)
	} else if v != nil {
		cfg.QueueSize = *v
	}

	if v, err := readIntEnv("SEND_TIMEOUT_SECONDS"); err != nil {
		return TripBotConfig{}, fmt.Errorf("parse SEND_TIMEOUT_SECONDS: %w", err)
	} else if v != nil {
		cfg.SendTimeout = time.Duration(*v) * time.Second
	}

	if v, err := readIntEnv("LOCK_TTL_SECONDS"); err != nil {
		return TripBotConfig{}, fmt.Errorf("parse LOCK_TTL_SECONDS: %w", err)
	} else if v != nil {
		cfg.LockTTL = time.Duration(*v) * time.Second
	}

	if v := os.Getenv("TIMEZONE"); v != "" {
		if _, err := time.LoadLocation(v); err != nil {
			return TripBotConfig{}, fmt.Errorf("parse TIMEZONE: %w", err)
		}
		cfg.Timezone = v
	}

	cfg.BridgeTokenSecret = os.Getenv("BRIDGE_TOKEN_SECRET")
	if cfg.BridgeTokenSecret == "" {
		return TripBotConfig{}, fmt.Errorf("BRIDGE_TOKEN_SECRET is required")
	}

	if cfg.SweepTick <= 0 || cfg.SendTimeout <= 0 || cfg.LockTTL <= 0 {
		return TripBotConfig{}, fmt.Errorf("durations must be positive")
	}
	if cfg.QueueSize <= 0 {
		return TripBotConfig{}, fmt.Errorf("QUEUE_SIZE must be positive")
	}

	return cfg, nil
}

func readIntEnv(name string) (*int, error) {
	val := os.Getenv(name)
	if val == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(val)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
