package encounter

import (
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/card"
)

// PermanentDuration marks a modifier that lasts for the rest of the
// encounter.
const PermanentDuration = -1

// Modifier is a durational effect attached to one combatant.
//
// Remaining counts rounds for ordinary modifiers, pending ticks for
// Poison, and pending skipped turns for Silence and Stun. A one-shot
// BuffDamage has OneShot set and is consumed by the owner's next
// Damage effect instead of expiring over rounds.
type Modifier struct {
	Effect    card.Effect `json:"effect"`
	Remaining int         `json:"remaining"`
	OneShot   bool        `json:"oneShot,omitempty"`
	OwnerID   string      `json:"ownerId"`
	SourceID  string      `json:"sourceId"`
}

// expired reports whether the modifier should be dropped.
func (m Modifier) expired() bool {
	return !m.OneShot && m.Remaining != PermanentDuration && m.Remaining <= 0
}

// modifiersOwnedBy returns the active modifiers on the combatant with
// the given id, preserving registration order.
func (e *Encounter) modifiersOwnedBy(ownerID string) []Modifier {
	var out []Modifier
	for _, m := range e.Modifiers {
		if m.OwnerID == ownerID {
			out = append(out, m)
		}
	}
	return out
}

// addModifier appends a modifier to the encounter.
func (e *Encounter) addModifier(m Modifier) {
	e.Modifiers = append(e.Modifiers, m)
}

// dropExpiredModifiers removes every expired modifier.
func (e *Encounter) dropExpiredModifiers() {
	kept := e.Modifiers[:0]
	for _, m := range e.Modifiers {
		if !m.expired() {
			kept = append(kept, m)
		}
	}
	e.Modifiers = kept
}

// sumBuffDamage returns the total BuffDamage held by ownerID.
func (e *Encounter) sumBuffDamage(ownerID string) int {
	total := 0
	for _, m := range e.Modifiers {
		if m.OwnerID == ownerID && m.Effect.Kind == card.EffectBuffDamage {
			total += m.Effect.Amount
		}
	}
	return total
}

// sumDebuffDamage returns the total DebuffDamage held by ownerID.
func (e *Encounter) sumDebuffDamage(ownerID string) int {
	total := 0
	for _, m := range e.Modifiers {
		if m.OwnerID == ownerID && m.Effect.Kind == card.EffectDebuffDamage {
			total += m.Effect.Amount
		}
	}
	return total
}

// consumeOneShotBuffDamage removes every one-shot BuffDamage modifier
// held by ownerID. Called after a Damage effect resolves.
func (e *Encounter) consumeOneShotBuffDamage(ownerID string) {
	kept := e.Modifiers[:0]
	for _, m := range e.Modifiers {
		if m.OwnerID == ownerID && m.Effect.Kind == card.EffectBuffDamage && m.OneShot {
			continue
		}
		kept = append(kept, m)
	}
	e.Modifiers = kept
}

// consumeSkip consumes one pending skipped turn from a Silence or Stun
// modifier on ownerID.
//
// Postcondition: Returns true iff a skip was consumed; the modifier's
// Remaining is decremented and it is dropped at zero.
func (e *Encounter) consumeSkip(ownerID string) bool {
	for i := range e.Modifiers {
		m := &e.Modifiers[i]
		if m.OwnerID != ownerID {
			continue
		}
		if m.Effect.Kind != card.EffectSilence && m.Effect.Kind != card.EffectStun {
			continue
		}
		m.Remaining--
		if m.Remaining <= 0 {
			e.Modifiers = append(e.Modifiers[:i], e.Modifiers[i+1:]...)
		}
		return true
	}
	return false
}
