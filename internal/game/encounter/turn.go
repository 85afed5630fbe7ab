package encounter

import (
	"fmt"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/card"
	"github.com/Aion-Studio/aion-backend-sub000/internal/wire"
)

// TurnResult is the outcome of one successful state transition.
type TurnResult struct {
	// Message is the typed turn message for the acting participant.
	Message wire.TurnMessage
	// State is the authoritative snapshot after the transition.
	State wire.EncounterState
	// Winner is set when this transition ended the encounter.
	Winner *wire.Index
}

// ProcessTurn validates and applies one command from the combatant with
// the given id.
//
// Validation order: participant, terminal state, turn ownership (waived
// for LeaveBattle and for reactive monster spell casts), then the
// command's own rules. Rule violations return one of the sentinel
// errors from errors.go and leave the encounter unchanged.
//
// Postcondition: On success the returned result reflects the applied
// transition; on error the encounter is untouched.
func (e *Encounter) ProcessTurn(cmd wire.Command, fromID string) (*TurnResult, error) {
	idx, ok := e.IndexOf(fromID)
	if !ok {
		return nil, ErrUnknownCombatant
	}
	if e.Terminal {
		return nil, ErrEncounterEnded
	}
	if !e.turnExempt(cmd, idx) && e.CurrentTurn != idx {
		return nil, ErrOutOfTurnAction
	}

	switch cmd.Kind {
	case wire.CmdPlayCard:
		if cmd.Card == nil {
			return nil, fmt.Errorf("play card: %w", ErrCardNotInHand)
		}
		return e.playCard(idx, *cmd.Card)
	case wire.CmdUseSpell:
		if cmd.Spell == nil {
			return nil, fmt.Errorf("use spell: %w", ErrUnknownSpell)
		}
		return e.useSpell(idx, *cmd.Spell)
	case wire.CmdEndTurn:
		return e.endTurn(idx), nil
	case wire.CmdLeaveBattle:
		return e.leaveBattle(idx), nil
	default:
		return nil, fmt.Errorf("process turn: unsupported command %q", cmd.Kind)
	}
}

// turnExempt reports whether cmd may bypass turn ownership: leaving is
// always allowed, and monsters may cast spells reactively.
func (e *Encounter) turnExempt(cmd wire.Command, idx wire.Index) bool {
	if cmd.Kind == wire.CmdLeaveBattle {
		return true
	}
	return cmd.Kind == wire.CmdUseSpell && e.Combatants[idx].Monster != nil
}

// playCard resolves a PlayCard command: the card must be in the
// sender's hand and affordable; it moves to the discard pile and its
// effects resolve in order.
func (e *Encounter) playCard(idx wire.Index, played card.Card) (*TurnResult, error) {
	actor := e.Combatants[idx]

	held, ok := actor.HandCard(played.ID)
	if !ok {
		return nil, ErrCardNotInHand
	}
	if actor.Mana < held.ManaCost {
		return nil, ErrInsufficientMana
	}

	actor.SpendMana(held.ManaCost)
	actor.PlayFromHand(held.ID)
	e.applyEffects(idx, held.Effects)

	res := &TurnResult{State: e.Snapshot(), Winner: e.Winner}
	if e.Terminal {
		res.Message = wire.Winner(*e.Winner)
	} else {
		res.Message = wire.CardPlayed(held, res.State)
	}
	return res, nil
}

// useSpell resolves a UseSpell command: like playCard but against the
// caster's spell list, with no hand or discard bookkeeping.
func (e *Encounter) useSpell(idx wire.Index, cast card.Spell) (*TurnResult, error) {
	actor := e.Combatants[idx]

	if !actor.KnowsSpell(cast.ID) {
		return nil, ErrUnknownSpell
	}
	var known card.Spell
	for _, s := range actor.Spells() {
		if s.ID == cast.ID {
			known = s
			break
		}
	}
	if actor.Mana < known.ManaCost {
		return nil, ErrInsufficientMana
	}

	actor.SpendMana(known.ManaCost)
	e.applyEffects(idx, known.Effects)

	res := &TurnResult{State: e.Snapshot(), Winner: e.Winner}
	if e.Terminal {
		res.Message = wire.Winner(*e.Winner)
	} else {
		res.Message = wire.EncounterData(res.State)
	}
	return res, nil
}

// leaveBattle ends the encounter in favour of the opponent. Accepted
// from either side regardless of whose turn it is.
func (e *Encounter) leaveBattle(idx wire.Index) *TurnResult {
	e.setWinner(idx.Opponent())
	return &TurnResult{
		Message: wire.Winner(*e.Winner),
		State:   e.Snapshot(),
		Winner:  e.Winner,
	}
}

// endTurn runs the end-of-turn hook for the acting combatant and hands
// the turn to the opponent unless the opponent is due to skip.
//
// The round advances once both combatants have completed (or had
// skipped) an end-of-turn in it; a consumed skip counts the skipped
// side as having acted.
func (e *Encounter) endTurn(idx wire.Index) *TurnResult {
	e.runEndOfTurnHook(idx)

	res := &TurnResult{Winner: e.Winner}
	if e.Terminal {
		// A poison tick on the actor can end the encounter here.
		res.Message = wire.Winner(*e.Winner)
		res.State = e.Snapshot()
		return res
	}

	e.Acted[idx] = true
	opp := idx.Opponent()
	if e.shouldSkip(opp) {
		e.Acted[opp] = true
	} else {
		e.CurrentTurn = opp
	}
	e.advanceRoundIfComplete()

	res.Message = wire.PlayerTurn(e.CurrentTurn)
	res.State = e.Snapshot()
	return res
}

// runEndOfTurnHook applies end-of-turn processing for the combatant in
// slot idx, in order: poison ticks (typed Chaos, armor is bypassed),
// then decrement of the remaining round-scoped modifiers.
func (e *Encounter) runEndOfTurnHook(idx wire.Index) {
	owner := e.Combatants[idx]

	// Poison first: each stack deals its tick, then burns one charge.
	for i := range e.Modifiers {
		m := &e.Modifiers[i]
		if m.OwnerID != owner.ID || m.Effect.Kind != card.EffectPoison {
			continue
		}
		owner.TakeDamage(m.Effect.PerTick)
		m.Remaining--
		if owner.IsDead() {
			if srcIdx, ok := e.IndexOf(m.SourceID); ok {
				e.setWinner(srcIdx)
			} else {
				e.setWinner(idx.Opponent())
			}
		}
	}

	// Round-scoped modifiers age at their owner's end of turn. Poison
	// was already decremented above; Silence and Stun burn down only
	// when a skip is consumed, and one-shot BuffDamage only when a
	// Damage effect resolves.
	for i := range e.Modifiers {
		m := &e.Modifiers[i]
		if m.OwnerID != owner.ID || m.Remaining == PermanentDuration || m.OneShot {
			continue
		}
		switch m.Effect.Kind {
		case card.EffectPoison, card.EffectSilence, card.EffectStun:
			continue
		}
		m.Remaining--
	}
	e.dropExpiredModifiers()
}

// shouldSkip consumes and reports a pending skip for the combatant in
// slot idx: an active Silence or Stun modifier first, then an
// initiative accumulator at or above the threshold.
func (e *Encounter) shouldSkip(idx wire.Index) bool {
	if e.consumeSkip(e.Combatants[idx].ID) {
		return true
	}
	if e.Initiative[idx] >= initiativeThreshold {
		e.Initiative[idx] -= initiativeThreshold
		return true
	}
	return false
}

// initiativeThreshold is the accumulator value at which a combatant
// loses its next turn.
const initiativeThreshold = 3

// advanceRoundIfComplete increments the round once both combatants have
// acted in it and resets the acted bitmap.
func (e *Encounter) advanceRoundIfComplete() {
	if e.Acted[wire.Combatant1] && e.Acted[wire.Combatant2] {
		e.Round++
		e.Acted = [2]bool{}
	}
}

// applyEffects resolves each effect entry in order against its target:
// the caster for self-targeted effects, the opponent otherwise.
// Resolution stops as soon as the encounter turns terminal.
func (e *Encounter) applyEffects(src wire.Index, entries []card.EffectEntry) {
	for _, entry := range entries {
		if e.Terminal {
			return
		}
		e.applyEffect(src, entry)
	}
}

func (e *Encounter) applyEffect(src wire.Index, entry card.EffectEntry) {
	actor := e.Combatants[src]
	target := e.Combatants[src.Opponent()]
	eff := entry.Effect

	switch eff.Kind {
	case card.EffectDamage:
		e.resolveDamage(src, src.Opponent(), eff.Amount, eff.DamageType)

	case card.EffectHeal:
		actor.Heal(eff.Amount)

	case card.EffectPoison:
		// One tick lands immediately; the rest are scheduled on the
		// target's end of turn. Poison bypasses armor.
		e.resolveDamage(src, src.Opponent(), eff.PerTick, card.DamageChaos)
		if remaining := eff.Ticks - 1; remaining > 0 && !e.Terminal {
			e.addModifier(Modifier{
				Effect:    eff,
				Remaining: remaining,
				OwnerID:   target.ID,
				SourceID:  actor.ID,
			})
		}

	case card.EffectBuffDamage:
		duration := entry.ModifierDuration(0)
		e.addModifier(Modifier{
			Effect:    eff,
			Remaining: duration,
			OneShot:   duration == 0,
			OwnerID:   actor.ID,
			SourceID:  actor.ID,
		})

	case card.EffectDebuffDamage:
		e.addModifier(Modifier{
			Effect:    eff,
			Remaining: entry.ModifierDuration(PermanentDuration),
			OwnerID:   target.ID,
			SourceID:  actor.ID,
		})

	case card.EffectBuffArmor:
		actor.GainArmor(eff.Amount)

	case card.EffectDebuffArmor:
		target.ReduceArmor(eff.Amount)

	case card.EffectInitiative:
		e.Initiative[src.Opponent()] += eff.Amount

	case card.EffectInitiativeRemove:
		acc := &e.Initiative[src.Opponent()]
		*acc -= eff.Amount
		if *acc < 0 {
			*acc = 0
		}

	case card.EffectSilence:
		e.addModifier(Modifier{
			Effect:    eff,
			Remaining: entry.ModifierDuration(1),
			OwnerID:   target.ID,
			SourceID:  actor.ID,
		})

	case card.EffectStun:
		e.addModifier(Modifier{
			Effect:    eff,
			Remaining: 1,
			OwnerID:   target.ID,
			SourceID:  actor.ID,
		})

	case card.EffectManaGain:
		actor.GainMana(eff.Amount)
	}
}

// resolveDamage applies one damage instance from the combatant in src
// to the one in tgt:
//
//	effective = amount + BuffDamage(src) - DebuffDamage(tgt), floored at 0
//	Normal damage is absorbed by armor (armor is consumed);
//	Chaos and Spell damage bypass armor entirely.
//
// One-shot BuffDamage on the source is consumed. Lethal damage marks
// the encounter terminal with src as winner.
func (e *Encounter) resolveDamage(src, tgt wire.Index, amount int, dtype card.DamageType) {
	attacker := e.Combatants[src]
	defender := e.Combatants[tgt]

	effective := amount + e.sumBuffDamage(attacker.ID) - e.sumDebuffDamage(defender.ID)
	if effective < 0 {
		effective = 0
	}

	if dtype == card.DamageNormal {
		absorbed := effective
		if defender.Armor < absorbed {
			absorbed = defender.Armor
		}
		defender.ReduceArmor(absorbed)
		effective -= absorbed
	}

	defender.TakeDamage(effective)
	e.consumeOneShotBuffDamage(attacker.ID)

	if defender.IsDead() {
		e.setWinner(src)
	}
}
