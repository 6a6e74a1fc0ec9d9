package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soullink-tracker/server/internal/database/postgres"
	"github.com/soullink-tracker/server/internal/engine"
	"github.com/soullink-tracker/server/internal/eventstore"
	"github.com/soullink-tracker/server/internal/idempotency"
	"github.com/soullink-tracker/server/internal/projection"
	"github.com/soullink-tracker/server/internal/query"
	"github.com/soullink-tracker/server/internal/run"
)

// ReadModelRepository is the combined write and read surface of the
// projected tables. Both the postgres and memory implementations satisfy it.
type ReadModelRepository interface {
	projection.Repository
	query.Repository
}

// Repositories holds all storage implementations used by the application.
// This provides a centralized location for storage initialization and makes
// dependency injection clearer.
type Repositories struct {
	Run         run.Repository
	Store       eventstore.Store
	ReadModels  ReadModelRepository
	Idempotency idempotency.Repository

	// Tx binds an append and its projection writes into one atomic unit.
	Tx engine.TxRunner
}

// InitializePostgresRepositories creates the PostgreSQL-backed storage set.
func InitializePostgresRepositories(dbPool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Run:         postgres.NewRunRepository(dbPool),
		Store:       postgres.NewEventStoreRepository(dbPool),
		ReadModels:  postgres.NewProjectionRepository(dbPool),
		Idempotency: postgres.NewIdempotencyRepository(dbPool),
		Tx:          postgres.NewTxManager(dbPool),
	}
}

// InitializeMemoryRepositories creates the in-process storage set used for
// single-node deployments and local development without a database.
func InitializeMemoryRepositories() *Repositories {
	store := eventstore.NewMemoryStore()
	return &Repositories{
		Run:         run.NewMemoryRepository(),
		Store:       store,
		ReadModels:  projection.NewMemoryRepository(),
		Idempotency: idempotency.NewMemoryRepository(),
		Tx:          store,
	}
}
