package config

import (
	"time"

	"remindme/utils"
)

type ServerConfig struct {
	Port                  string
	RedisURL              string
	ReminderSweepInterval time.Duration
	ListenForChanges      bool
}

func LoadServerConfig() ServerConfig {
	return ServerConfig{
		Port:                  utils.GetEnvAsString("PORT", "8080"),
		RedisURL:              utils.GetEnvAsString("REDIS_URL", ""),
		ReminderSweepInterval: utils.GetEnvAsDuration("REMINDER_SWEEP_INTERVAL", time.Minute),
		ListenForChanges:      utils.GetEnvAsBool("LISTEN_FOR_CHANGES", true),
	}
}
