// Package memory provides an in-memory EncounterStore for tests and
// single-process deployments.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/encounter"
	"github.com/Aion-Studio/aion-backend-sub000/internal/storage"
)

// Store keeps encounters in a key-value map guarded by a mutex.
// Encounters are stored as JSON so loads return independent copies.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
	set  map[string]struct{}
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
		set:  make(map[string]struct{}),
	}
}

// Store saves the encounter under its encounter key, adds it to the
// active set, and indexes both combatants.
func (s *Store) Store(ctx context.Context, enc *encounter.Encounter) error {
	payload, err := json.Marshal(enc)
	if err != nil {
		return fmt.Errorf("encoding encounter: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[storage.EncounterKey(enc.ID)] = payload
	s.set[enc.ID] = struct{}{}
	for _, id := range enc.CombatantIDs() {
		s.data[storage.CombatantKey(id)] = []byte(enc.ID)
	}
	return nil
}

// Load retrieves an encounter by id.
//
// Postcondition: Returns storage.ErrNotFound if the id is unknown.
func (s *Store) Load(ctx context.Context, encounterID string) (*encounter.Encounter, error) {
	s.mu.RLock()
	payload, ok := s.data[storage.EncounterKey(encounterID)]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}

	var enc encounter.Encounter
	if err := json.Unmarshal(payload, &enc); err != nil {
		return nil, fmt.Errorf("decoding encounter %s: %w", encounterID, err)
	}
	return &enc, nil
}

// LoadByCombatant resolves the combatant's reverse index and loads the
// encounter it points at.
func (s *Store) LoadByCombatant(ctx context.Context, combatantID string) (*encounter.Encounter, error) {
	s.mu.RLock()
	id, ok := s.data[storage.CombatantKey(combatantID)]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.Load(ctx, string(id))
}

// Remove deletes the encounter, its set membership, and both reverse
// index entries.
func (s *Store) Remove(ctx context.Context, enc *encounter.Encounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, storage.EncounterKey(enc.ID))
	delete(s.set, enc.ID)
	for _, id := range enc.CombatantIDs() {
		delete(s.data, storage.CombatantKey(id))
	}
	return nil
}

// ActiveIDs returns the ids of all stored encounters in sorted order.
func (s *Store) ActiveIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.set))
	for id := range s.set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
