package backend

import (
	"errors"
	"fmt"
	"strings"

	"famreport/internal/config"
)

// ParseBackendType accepts DATA_BACKEND values case-insensitively.
func ParseBackendType(s string) (BackendType, error) {
	bt := BackendType(strings.ToLower(strings.TrimSpace(s)))
	if !bt.IsValid() {
		return "", fmt.Errorf("unknown backend %q (want one of %s)", s, strings.Join(GetBackendTypeStrings(), ", "))
	}
	return bt, nil
}

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	bt, err := ParseBackendType(appConfig.DataBackend)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Type:         bt,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
		SeedFile:     appConfig.SeedFile,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate reports every missing setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			errs = append(errs, errors.New("sqlite backend needs SQLITE_DB_PATH"))
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("postgres backend needs DATABASE_URL"))
		}
	case MemoryBackend:
	default:
		errs = append(errs, fmt.Errorf("invalid backend type %q", c.Type))
	}
	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			errs = append(errs, errors.New("AMQP_EXCHANGE is required when AMQP_URL is set"))
		}
		if c.AMQPQueue == "" {
			errs = append(errs, errors.New("AMQP_QUEUE is required when AMQP_URL is set"))
		}
	}
	return errors.Join(errs...)
}

func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, PostgresBackend, MemoryBackend}
}

func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
