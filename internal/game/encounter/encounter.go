// Package encounter implements the rules engine for a single combat
// instance between exactly two combatants. All operations are pure
// state transitions on the Encounter value; persistence and fan-out
// belong to the controller.
package encounter

import (
	"fmt"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/card"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/combatant"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/dice"
	"github.com/Aion-Studio/aion-backend-sub000/internal/wire"
)

// Rules carries the tunable constants of the combat system.
type Rules struct {
	// StartingMana is the mana each combatant is reset to on
	// initialization.
	StartingMana int
	// OpeningHandSize is the number of cards drawn on initialization.
	OpeningHandSize int
}

// DefaultRules returns the standard ruleset.
func DefaultRules() Rules {
	return Rules{StartingMana: 3, OpeningHandSize: 5}
}

// Encounter is one active combat instance.
//
// Invariants: exactly two distinct combatants; Round >= 1 once
// initialized and monotonically non-decreasing; CurrentTurn toggles on
// successful end-of-turn unless the receiver skips; once Terminal is
// set it stays set and Winner never changes.
type Encounter struct {
	ID          string                  `json:"id"`
	ActionID    string                  `json:"actionId,omitempty"`
	Combatants  [2]*combatant.Combatant `json:"combatants"`
	Round       int                     `json:"round"`
	CurrentTurn wire.Index              `json:"currentTurn"`
	Modifiers   []Modifier              `json:"modifiers"`
	Initiative  [2]int                  `json:"initiative"`
	Acted       [2]bool                 `json:"acted"`
	Terminal    bool                    `json:"terminal"`
	Winner      *wire.Index             `json:"winner,omitempty"`
	Initialized bool                    `json:"initialized"`
}

// New creates an encounter between two distinct combatants. The
// actionID may be empty when the encounter is not linked to a quest
// step.
//
// Precondition: id must be non-empty; c1 and c2 must be distinct.
func New(id string, c1, c2 *combatant.Combatant, actionID string) (*Encounter, error) {
	if id == "" {
		return nil, fmt.Errorf("encounter: id must not be empty")
	}
	if c1 == nil || c2 == nil || c1.ID == c2.ID {
		return nil, fmt.Errorf("encounter %q: requires exactly two distinct combatants", id)
	}
	return &Encounter{
		ID:         id,
		ActionID:   actionID,
		Combatants: [2]*combatant.Combatant{c1, c2},
		Modifiers:  []Modifier{},
	}, nil
}

// Initialize prepares the encounter for its first turn: each combatant
// has mana reset to the starting amount, the deck shuffled, and the
// opening hand drawn. Round starts at 1 with Combatant1 to act.
// Idempotent: calling twice leaves the encounter unchanged.
func (e *Encounter) Initialize(src dice.Source, rules Rules) {
	if e.Initialized {
		return
	}
	for _, c := range e.Combatants {
		c.Mana = rules.StartingMana
		c.ShuffleDeck(src)
		c.Draw(src, rules.OpeningHandSize)
	}
	e.Round = 1
	e.CurrentTurn = wire.Combatant1
	e.Initialized = true
}

// IndexOf returns the slot of the combatant with the given id.
//
// Postcondition: Returns (index, true) iff the id is a participant.
func (e *Encounter) IndexOf(id string) (wire.Index, bool) {
	switch id {
	case e.Combatants[wire.Combatant1].ID:
		return wire.Combatant1, true
	case e.Combatants[wire.Combatant2].ID:
		return wire.Combatant2, true
	}
	return 0, false
}

// CombatantByID returns the participant with the given id.
func (e *Encounter) CombatantByID(id string) (*combatant.Combatant, bool) {
	idx, ok := e.IndexOf(id)
	if !ok {
		return nil, false
	}
	return e.Combatants[idx], true
}

// Opponent returns the combatant facing the one with the given id.
//
// Precondition: id must be a participant.
func (e *Encounter) Opponent(id string) (*combatant.Combatant, bool) {
	idx, ok := e.IndexOf(id)
	if !ok {
		return nil, false
	}
	return e.Combatants[idx.Opponent()], true
}

// CombatantIDs returns both participant ids in slot order.
func (e *Encounter) CombatantIDs() [2]string {
	return [2]string{e.Combatants[0].ID, e.Combatants[1].ID}
}

// setWinner marks the encounter terminal with the given winner. The
// first call wins; later calls are ignored.
func (e *Encounter) setWinner(idx wire.Index) {
	if e.Terminal {
		return
	}
	e.Terminal = true
	w := idx
	e.Winner = &w
}

// Snapshot renders the authoritative wire state: Combatant1 fills the
// playerState slot and Combatant2 the npcState slot, each rendered as
// the union arm matching its variant.
func (e *Encounter) Snapshot() wire.EncounterState {
	return wire.EncounterState{
		PlayerState: viewOf(e.Combatants[wire.Combatant1]),
		NpcState:    viewOf(e.Combatants[wire.Combatant2]),
		Turn:        e.CurrentTurn,
		Round:       e.Round,
	}
}

func viewOf(c *combatant.Combatant) wire.CombatantState {
	if c.Hero != nil {
		h := c.Hero
		return wire.CombatantState{Player: &wire.PlayerView{
			HP:             c.HP,
			MaxHP:          c.MaxHP,
			Mana:           c.Mana,
			Zeal:           h.Zeal,
			Armor:          c.Armor,
			Strength:       h.Strength,
			Intelligence:   h.Intelligence,
			Dexterity:      h.Dexterity,
			Spells:         card.CloneSpells(h.Spells),
			Relics:         append([]string{}, h.Relics...),
			DrawnCards:     card.CloneCards(h.Hand),
			CardsInDiscard: card.CloneCards(h.Discard),
		}}
	}
	m := c.Monster
	return wire.CombatantState{Npc: &wire.NpcView{
		HP:        c.HP,
		MaxHP:     c.MaxHP,
		Mana:      c.Mana,
		Armor:     c.Armor,
		Level:     m.Level,
		DamageMin: m.DamageMin,
		DamageMax: m.DamageMax,
		Spells:    card.CloneSpells(m.Spells),
	}}
}
