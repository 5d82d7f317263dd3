package backend

import (
	"errors"
	"fmt"

	"gastos/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return Config{
		Type:                   backendType,
		SQLiteDBPath:           appConfig.SQLiteDBPath,
		PostgresDSN:            appConfig.PostgresDSN,
		AMQPURL:                appConfig.AMQPURL,
		AMQPExchange:           appConfig.AMQPExchange,
		AMQPQueue:              appConfig.AMQPQueue,
		TaxonomyFile:           appConfig.TaxonomyFile,
		Payers:                 appConfig.Payers,
		SkewThreshold:          appConfig.SkewThreshold,
		ConcentrationThreshold: appConfig.ConcentrationThreshold,
		CacheTTL:               appConfig.CacheTTL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.PostgresDSN == "" {
			return errors.New("Postgres DSN is required for postgres backend")
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}
}
