package backend

import (
	"context"

	"pocketops/internal/amqp"
	"pocketops/internal/ledger"
	"pocketops/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the opened store and the optional event plumbing.
type Result struct {
	Store ledger.Store
	// Publisher is nil when AMQP is disabled or unreachable.
	Publisher services.EventPublisher
	// AMQP is the underlying client, nil under the same conditions.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the store selected by config.
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Optional ledger events, for either backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend specific: an export file loaded at startup
	SeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
