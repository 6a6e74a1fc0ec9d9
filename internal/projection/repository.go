package projection

import (
	"context"

	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
)

// Repository persists the derived read models. Implementations must be
// idempotent upserts: rebuild rewrites every row from scratch and live
// application may repeat a write after a retried command.
type Repository interface {
	UpsertEncounter(ctx context.Context, enc domain.Encounter) error
	UpsertBlockEntry(ctx context.Context, entry domain.BlockEntry) error
	UpsertLink(ctx context.Context, link domain.Link) error

	// Reset discards every read-model row for the run. Rebuild calls it
	// before replaying the log.
	Reset(ctx context.Context, runID uuid.UUID) error
}
