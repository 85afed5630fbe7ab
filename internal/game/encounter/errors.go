package encounter

import "errors"

// Rule-level errors. These are returned to the caller and never poison
// the encounter or the controller.
var (
	// ErrOutOfTurnAction is returned when a command arrives from the
	// non-current combatant.
	ErrOutOfTurnAction = errors.New("action attempted out of turn")

	// ErrUnknownCombatant is returned when the sender is not a
	// participant of the encounter.
	ErrUnknownCombatant = errors.New("combatant is not part of this encounter")

	// ErrEncounterEnded is returned for any command against a terminal
	// encounter.
	ErrEncounterEnded = errors.New("encounter has ended")

	// ErrCardNotInHand is returned when PlayCard references a card the
	// sender is not holding.
	ErrCardNotInHand = errors.New("card is not in hand")

	// ErrInsufficientMana is returned when a card or spell costs more
	// mana than the sender has.
	ErrInsufficientMana = errors.New("insufficient mana")

	// ErrUnknownSpell is returned when UseSpell references a spell the
	// caster does not know.
	ErrUnknownSpell = errors.New("spell is not known to this combatant")
)
