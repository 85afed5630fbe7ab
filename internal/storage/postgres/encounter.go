package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/encounter"
	"github.com/Aion-Studio/aion-backend-sub000/internal/storage"
)

// EncounterStore persists encounters in the combat_kv table as JSONB
// documents under the same keys an external key-value store would use.
type EncounterStore struct {
	db *pgxpool.Pool
}

// NewEncounterStore creates an EncounterStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewEncounterStore(db *pgxpool.Pool) *EncounterStore {
	return &EncounterStore{db: db}
}

// Store saves the encounter and both reverse index entries in a single
// transaction.
//
// Postcondition: The encounter key, the active set, and both combatant
// keys are consistent with one another.
func (s *EncounterStore) Store(ctx context.Context, enc *encounter.Encounter) error {
	payload, err := json.Marshal(enc)
	if err != nil {
		return fmt.Errorf("encoding encounter %s: %w", enc.ID, err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsert(ctx, tx, storage.EncounterKey(enc.ID), payload); err != nil {
		return err
	}
	for _, id := range enc.CombatantIDs() {
		ref, err := json.Marshal(enc.ID)
		if err != nil {
			return fmt.Errorf("encoding encounter ref: %w", err)
		}
		if err := upsert(ctx, tx, storage.CombatantKey(id), ref); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO combat_kv (k, v)
		 VALUES ($1, jsonb_build_array($2::text))
		 ON CONFLICT (k) DO UPDATE
		 SET v = CASE WHEN combat_kv.v ? $2 THEN combat_kv.v
		              ELSE combat_kv.v || to_jsonb($2::text) END`,
		storage.SetKey, enc.ID,
	)
	if err != nil {
		return fmt.Errorf("updating encounter set: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing encounter %s: %w", enc.ID, err)
	}
	return nil
}

// Load retrieves an encounter by id.
//
// Postcondition: Returns storage.ErrNotFound if no encounter has that id.
func (s *EncounterStore) Load(ctx context.Context, encounterID string) (*encounter.Encounter, error) {
	var payload []byte
	err := s.db.QueryRow(ctx,
		`SELECT v FROM combat_kv WHERE k = $1`,
		storage.EncounterKey(encounterID),
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("querying encounter %s: %w", encounterID, err)
	}

	var enc encounter.Encounter
	if err := json.Unmarshal(payload, &enc); err != nil {
		return nil, fmt.Errorf("decoding encounter %s: %w", encounterID, err)
	}
	return &enc, nil
}

// LoadByCombatant resolves the combatant's reverse index and loads the
// encounter it points at.
//
// Postcondition: Returns storage.ErrNotFound if the combatant is not
// engaged in any encounter.
func (s *EncounterStore) LoadByCombatant(ctx context.Context, combatantID string) (*encounter.Encounter, error) {
	var ref []byte
	err := s.db.QueryRow(ctx,
		`SELECT v FROM combat_kv WHERE k = $1`,
		storage.CombatantKey(combatantID),
	).Scan(&ref)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("querying combatant index %s: %w", combatantID, err)
	}

	var encounterID string
	if err := json.Unmarshal(ref, &encounterID); err != nil {
		return nil, fmt.Errorf("decoding combatant index %s: %w", combatantID, err)
	}
	return s.Load(ctx, encounterID)
}

// Remove deletes the encounter, its set membership, and both reverse
// index entries in a single transaction.
//
// Postcondition: Removing an absent encounter is not an error.
func (s *EncounterStore) Remove(ctx context.Context, enc *encounter.Encounter) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	keys := []string{storage.EncounterKey(enc.ID)}
	for _, id := range enc.CombatantIDs() {
		keys = append(keys, storage.CombatantKey(id))
	}
	if _, err := tx.Exec(ctx, `DELETE FROM combat_kv WHERE k = ANY($1)`, keys); err != nil {
		return fmt.Errorf("deleting encounter %s: %w", enc.ID, err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE combat_kv SET v = v - $2 WHERE k = $1`,
		storage.SetKey, enc.ID,
	)
	if err != nil {
		return fmt.Errorf("updating encounter set: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing removal of %s: %w", enc.ID, err)
	}
	return nil
}

// ActiveIDs lists the ids of all stored encounters.
//
// Postcondition: Returns an empty slice when the set key is absent.
func (s *EncounterStore) ActiveIDs(ctx context.Context) ([]string, error) {
	var payload []byte
	err := s.db.QueryRow(ctx,
		`SELECT v FROM combat_kv WHERE k = $1`, storage.SetKey,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("querying encounter set: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(payload, &ids); err != nil {
		return nil, fmt.Errorf("decoding encounter set: %w", err)
	}
	return ids, nil
}

func upsert(ctx context.Context, tx pgx.Tx, key string, value []byte) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO combat_kv (k, v) VALUES ($1, $2)
		 ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("upserting key %s: %w", key, err)
	}
	return nil
}
