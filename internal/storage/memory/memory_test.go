package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/combatant"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/encounter"
	"github.com/Aion-Studio/aion-backend-sub000/internal/storage"
	"github.com/Aion-Studio/aion-backend-sub000/internal/storage/memory"
)

func testEncounter(t *testing.T, id, heroID, monsterID string) *encounter.Encounter {
	t.Helper()
	hero := combatant.NewHero(heroID, "Kael", 100, nil)
	monster := combatant.NewMonster(monsterID, "Gnarl", 50, 2, 5, 1)
	enc, err := encounter.New(id, hero, monster, "quest-7")
	require.NoError(t, err)
	return enc
}

func TestStoreAndLoad(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	enc := testEncounter(t, "enc-1", "hero-1", "monster-1")

	require.NoError(t, store.Store(ctx, enc))

	got, err := store.Load(ctx, "enc-1")
	require.NoError(t, err)
	assert.Equal(t, "enc-1", got.ID)
	assert.Equal(t, "quest-7", got.ActionID)
	assert.Equal(t, [2]string{"hero-1", "monster-1"}, got.CombatantIDs())
}

func TestLoad_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	enc := testEncounter(t, "enc-1", "hero-1", "monster-1")
	require.NoError(t, store.Store(ctx, enc))

	first, err := store.Load(ctx, "enc-1")
	require.NoError(t, err)
	first.Round = 99
	first.Combatants[0].HP = 1

	second, err := store.Load(ctx, "enc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Round)
	assert.Equal(t, 100, second.Combatants[0].HP)
}

func TestLoadByCombatant(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Store(ctx, testEncounter(t, "enc-1", "hero-1", "monster-1")))

	got, err := store.LoadByCombatant(ctx, "monster-1")
	require.NoError(t, err)
	assert.Equal(t, "enc-1", got.ID)

	_, err = store.LoadByCombatant(ctx, "stranger")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoad_NotFound(t *testing.T) {
	store := memory.NewStore()
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	enc := testEncounter(t, "enc-1", "hero-1", "monster-1")
	require.NoError(t, store.Store(ctx, enc))

	require.NoError(t, store.Remove(ctx, enc))

	_, err := store.Load(ctx, "enc-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.LoadByCombatant(ctx, "hero-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.LoadByCombatant(ctx, "monster-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	ids, err := store.ActiveIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Removing again is a no-op.
	require.NoError(t, store.Remove(ctx, enc))
}

func TestActiveIDs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Store(ctx, testEncounter(t, "enc-b", "hero-1", "monster-1")))
	require.NoError(t, store.Store(ctx, testEncounter(t, "enc-a", "hero-2", "monster-2")))

	ids, err := store.ActiveIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"enc-a", "enc-b"}, ids)
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	enc := testEncounter(t, "enc-1", "hero-1", "monster-1")
	require.NoError(t, store.Store(ctx, enc))

	enc.Round = 4
	require.NoError(t, store.Store(ctx, enc))

	got, err := store.Load(ctx, "enc-1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Round)

	ids, err := store.ActiveIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"enc-1"}, ids)
}
