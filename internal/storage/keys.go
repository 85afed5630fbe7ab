package storage

import "fmt"

// SetKey indexes the set of active encounter ids.
const SetKey = "encounters"

// EncounterKey returns the storage key for an encounter record.
func EncounterKey(encounterID string) string {
	return fmt.Sprintf("encounter:%s", encounterID)
}

// CombatantKey returns the storage key mapping a combatant to the id of
// the encounter it is engaged in.
func CombatantKey(combatantID string) string {
	return fmt.Sprintf("combatant_encounter:%s", combatantID)
}
