// Package card defines the rule primitives of the combat system: cards,
// spells, effects, and damage types. Everything here is a plain value
// type; evaluation semantics live in the encounter package.
package card

import (
	"encoding/json"
	"fmt"
)

// CardType classifies a card for targeting and UI purposes.
type CardType string

const (
	TypeAttack  CardType = "Attack"
	TypeSpell   CardType = "Spell"
	TypeMinion  CardType = "Minion"
	TypeUtility CardType = "Utility"
)

// ValidCardType reports whether t is a recognised card type.
func ValidCardType(t CardType) bool {
	switch t {
	case TypeAttack, TypeSpell, TypeMinion, TypeUtility:
		return true
	}
	return false
}

// DamageType determines how a Damage effect interacts with armor.
// Normal damage is absorbed by armor; Chaos and Spell damage bypass it.
type DamageType string

const (
	DamageNormal DamageType = "Normal"
	DamageChaos  DamageType = "Chaos"
	DamageSpell  DamageType = "Spell"
)

// ValidDamageType reports whether d is a recognised damage type.
func ValidDamageType(d DamageType) bool {
	switch d {
	case DamageNormal, DamageChaos, DamageSpell:
		return true
	}
	return false
}

// EffectEntry pairs an effect with an optional duration in rounds.
// A nil Duration means the effect's own default applies (instant for
// one-shot effects, one-shot consumption for BuffDamage).
type EffectEntry struct {
	Effect   Effect `json:"effect"`
	Duration *int   `json:"duration,omitempty"`
}

// ModifierDuration resolves the duration to register for a durational
// effect: the entry's explicit duration wins, then the effect's own
// duration parameter, then fallback.
//
// Postcondition: Returns fallback only when neither the entry nor the
// effect carries a duration.
func (e EffectEntry) ModifierDuration(fallback int) int {
	if e.Duration != nil {
		return *e.Duration
	}
	if e.Effect.Duration > 0 {
		return e.Effect.Duration
	}
	return fallback
}

// Card is a playable card held in a hero's deck, hand, or discard pile.
type Card struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	ManaCost int           `json:"manaCost"`
	Health   int           `json:"health"`
	Damage   int           `json:"damage"`
	CardType CardType      `json:"cardType"`
	Effects  []EffectEntry `json:"effects"`
}

// Validate checks the card's structural invariants.
//
// Postcondition: Returns nil iff the card has a non-empty id, a
// recognised type, non-negative mana cost, and only valid effects.
func (c Card) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("card %q: id must not be empty", c.Name)
	}
	if c.ManaCost < 0 {
		return fmt.Errorf("card %q: manaCost must be >= 0, got %d", c.ID, c.ManaCost)
	}
	if !ValidCardType(c.CardType) {
		return fmt.Errorf("card %q: unknown card type %q", c.ID, c.CardType)
	}
	for i, e := range c.Effects {
		if err := e.Effect.Validate(); err != nil {
			return fmt.Errorf("card %q effect %d: %w", c.ID, i, err)
		}
	}
	return nil
}

// Spell is a known ability cast directly from a combatant's spell list.
// Unlike cards, spells never move between zones.
type Spell struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	ManaCost int           `json:"manaCost"`
	Effects  []EffectEntry `json:"effects"`
}

// Validate checks the spell's structural invariants.
func (s Spell) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("spell %q: id must not be empty", s.Name)
	}
	if s.ManaCost < 0 {
		return fmt.Errorf("spell %q: manaCost must be >= 0, got %d", s.ID, s.ManaCost)
	}
	for i, e := range s.Effects {
		if err := e.Effect.Validate(); err != nil {
			return fmt.Errorf("spell %q effect %d: %w", s.ID, i, err)
		}
	}
	return nil
}

// clone helpers used by the encounter package when building snapshots.

// CloneCards returns a deep copy of a card slice.
func CloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	out := c
	out.Effects = cloneEntries(c.Effects)
	return out
}

// Clone returns a deep copy of the spell.
func (s Spell) Clone() Spell {
	out := s
	out.Effects = cloneEntries(s.Effects)
	return out
}

// CloneSpells returns a deep copy of a spell slice.
func CloneSpells(spells []Spell) []Spell {
	if spells == nil {
		return nil
	}
	out := make([]Spell, len(spells))
	for i, s := range spells {
		out[i] = s.Clone()
	}
	return out
}

func cloneEntries(entries []EffectEntry) []EffectEntry {
	if entries == nil {
		return nil
	}
	out := make([]EffectEntry, len(entries))
	for i, e := range entries {
		out[i] = e
		if e.Duration != nil {
			d := *e.Duration
			out[i].Duration = &d
		}
	}
	return out
}

// ensure Card and Spell round-trip through encoding/json without a
// custom codec; only Effect carries one.
var (
	_ json.Marshaler   = Effect{}
	_ json.Unmarshaler = (*Effect)(nil)
)
