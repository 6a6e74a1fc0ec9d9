package run

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soullink-tracker/server/internal/domain"
)

func TestCreateRun(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	r, players, err := svc.CreateRun(ctx, "Kanto Trio", []string{"alice", "bob", "cara"})
	require.NoError(t, err)

	assert.Equal(t, "Kanto Trio", r.Name)
	assert.Equal(t, domain.RunStatusActive, r.Status)
	require.Len(t, players, 3)
	for _, p := range players {
		assert.Equal(t, r.ID, p.RunID)
	}

	got, err := svc.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestCreateRun_Validation(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	_, _, err := svc.CreateRun(ctx, "", []string{"alice"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = svc.CreateRun(ctx, strings.Repeat("x", MaxNameLength+1), []string{"alice"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = svc.CreateRun(ctx, "Kanto", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = svc.CreateRun(ctx, "Kanto", []string{"a", "b", "c", "d"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAddPlayer(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	r, _, err := svc.CreateRun(ctx, "Kanto", []string{"alice"})
	require.NoError(t, err)

	p, err := svc.AddPlayer(ctx, r.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", p.Name)

	players, err := svc.ListPlayers(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, players, 2)
}

func TestAddPlayer_RunFull(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	r, _, err := svc.CreateRun(ctx, "Kanto", []string{"alice", "bob", "cara"})
	require.NoError(t, err)

	_, err = svc.AddPlayer(ctx, r.ID, "dave")
	assert.ErrorIs(t, err, domain.ErrRunFull)
}

func TestAddPlayer_InactiveRun(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	r, _, err := svc.CreateRun(ctx, "Kanto", []string{"alice"})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, r.ID, domain.RunStatusCompleted)
	require.NoError(t, err)

	_, err = svc.AddPlayer(ctx, r.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrRunNotActive)
}

func TestSetStatus(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	r, _, err := svc.CreateRun(ctx, "Kanto", []string{"alice"})
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, r.ID, domain.RunStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, updated.Status)

	_, err = svc.SetStatus(ctx, r.ID, "paused")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.SetStatus(ctx, uuid.New(), domain.RunStatusActive)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRequireActive(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	r, _, err := svc.CreateRun(ctx, "Kanto", []string{"alice"})
	require.NoError(t, err)

	got, err := svc.RequireActive(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = svc.SetStatus(ctx, r.ID, domain.RunStatusCompleted)
	require.NoError(t, err)
	_, err = svc.RequireActive(ctx, r.ID)
	assert.ErrorIs(t, err, domain.ErrRunNotActive)

	_, err = svc.RequireActive(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRunExists(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	r, _, err := svc.CreateRun(ctx, "Kanto", []string{"alice"})
	require.NoError(t, err)

	ok, err := svc.RunExists(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.RunExists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetPlayer_NotFound(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	r, players, err := svc.CreateRun(ctx, "Kanto", []string{"alice"})
	require.NoError(t, err)

	_, err = svc.GetPlayer(ctx, r.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)

	// A player id from another run must not resolve.
	other, _, err := svc.CreateRun(ctx, "Johto", []string{"dana"})
	require.NoError(t, err)
	_, err = svc.GetPlayer(ctx, other.ID, players[0].ID)
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}
