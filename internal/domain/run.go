package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run statuses
const (
	RunStatusActive    = "active"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run represents a bounded game session. A run owns all other entities;
// it is created once and only its metadata may change afterwards.
type Run struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Player belongs to a run. Player cardinality is fixed at session start
// (typically 3); authentication is handled by the caller.
type Player struct {
	ID        uuid.UUID `json:"id"`
	RunID     uuid.UUID `json:"run_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
