package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"pocketops/internal/config"
)

// FromAppConfig picks the backend fields out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	c := Config{
		Type:         BackendType(strings.ToLower(strings.TrimSpace(appConfig.DataBackend))),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
		SeedFile:     appConfig.MemorySeedFile,
	}
	if !c.Type.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %q", appConfig.DataBackend)
	}
	return c, nil
}

// Validate reports the first inconsistency between the chosen store and
// its settings.
func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
		if c.SeedFile != "" {
			return errors.New("a seed file only applies to the memory backend")
		}
	case MemoryBackend:
		if c.SeedFile != "" && !strings.EqualFold(filepath.Ext(c.SeedFile), ".json") {
			return fmt.Errorf("seed file %s must be a JSON export", c.SeedFile)
		}
	default:
		return fmt.Errorf("invalid backend type: %q", c.Type)
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return errors.New("AMQP exchange and queue are required when an AMQP URL is set")
	}
	return nil
}

// EventsEnabled reports whether ledger changes should be published.
func (c Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// LogValue keeps the broker URL, which may carry credentials, out of logs.
func (c Config) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", c.Type.String())}
	switch c.Type {
	case SQLiteBackend:
		attrs = append(attrs, slog.String("db_path", c.SQLiteDBPath))
	case MemoryBackend:
		if c.SeedFile != "" {
			attrs = append(attrs, slog.String("seed_file", c.SeedFile))
		}
	}
	attrs = append(attrs, slog.Bool("events", c.EventsEnabled()))
	if c.EventsEnabled() {
		attrs = append(attrs, slog.String("exchange", c.AMQPExchange), slog.String("queue", c.AMQPQueue))
	}
	return slog.GroupValue(attrs...)
}
