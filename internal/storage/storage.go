// Package storage defines persistence for combat encounters.
package storage

import (
	"context"
	"errors"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/encounter"
)

// ErrNotFound is returned when no encounter exists for the given key.
var ErrNotFound = errors.New("encounter not found")

// EncounterStore persists encounters and the combatant-to-encounter index.
//
// Implementations must keep the index consistent with the stored
// encounters: storing an encounter registers both combatants, removing
// it clears them.
type EncounterStore interface {
	// Store saves the encounter and indexes it under both combatant ids.
	Store(ctx context.Context, enc *encounter.Encounter) error

	// Load retrieves an encounter by its id.
	//
	// Postcondition: Returns ErrNotFound if no encounter has that id.
	Load(ctx context.Context, encounterID string) (*encounter.Encounter, error)

	// LoadByCombatant retrieves the encounter a combatant is engaged in.
	//
	// Postcondition: Returns ErrNotFound if the combatant is not in
	// any encounter.
	LoadByCombatant(ctx context.Context, combatantID string) (*encounter.Encounter, error)

	// Remove deletes the encounter and its combatant index entries.
	//
	// Postcondition: Removing an absent encounter is not an error.
	Remove(ctx context.Context, enc *encounter.Encounter) error

	// ActiveIDs lists the ids of all stored encounters.
	ActiveIDs(ctx context.Context) ([]string, error)
}
