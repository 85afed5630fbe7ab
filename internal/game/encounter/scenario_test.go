package encounter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/card"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/combatant"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/encounter"
	"github.com/Aion-Studio/aion-backend-sub000/internal/wire"
)

// Fixtures: an initialized hero-vs-monster encounter with a scripted
// hand so each scenario controls exactly what is playable.

func attackCard(id string, amount int, dtype card.DamageType) card.Card {
	return card.Card{
		ID: id, Name: "Attack " + id, ManaCost: 1, Damage: amount, CardType: card.TypeAttack,
		Effects: []card.EffectEntry{
			{Effect: card.Effect{Kind: card.EffectDamage, Amount: amount, DamageType: dtype}},
		},
	}
}

func effectCard(id string, cost int, effects ...card.EffectEntry) card.Card {
	return card.Card{ID: id, Name: id, ManaCost: cost, CardType: card.TypeSpell, Effects: effects}
}

// newDuel builds a ready encounter with the given hand dealt to the
// hero and both sides at the stated vitals.
func newDuel(t *testing.T, heroHP, heroArmor, monsterHP, monsterArmor int, hand ...card.Card) *encounter.Encounter {
	t.Helper()
	hero := combatant.NewHero("hero-1", "Kael", heroHP, nil)
	hero.Armor = heroArmor
	hero.Mana = 10
	hero.Hero.Hand = card.CloneCards(hand)

	monster := combatant.NewMonster("monster-1", "Gnarl", monsterHP, 2, 5, 1)
	monster.Armor = monsterArmor
	monster.Mana = 10
	monster.Monster.Spells = []card.Spell{
		{ID: "bolt", Name: "Bolt", ManaCost: 0, Effects: []card.EffectEntry{
			{Effect: card.Effect{Kind: card.EffectDamage, Amount: 20, DamageType: card.DamageNormal}},
		}},
		{ID: "fireball", Name: "Fireball", ManaCost: 0, Effects: []card.EffectEntry{
			{Effect: card.Effect{Kind: card.EffectDamage, Amount: 25, DamageType: card.DamageChaos}},
		}},
	}

	enc, err := encounter.New("enc-1", hero, monster, "")
	require.NoError(t, err)
	enc.Round = 1
	enc.CurrentTurn = wire.Combatant1
	enc.Initialized = true
	return enc
}

func play(t *testing.T, enc *encounter.Encounter, fromID string, c card.Card) *encounter.TurnResult {
	t.Helper()
	res, err := enc.ProcessTurn(wire.Command{Kind: wire.CmdPlayCard, Card: &c}, fromID)
	require.NoError(t, err)
	return res
}

func endTurn(t *testing.T, enc *encounter.Encounter, fromID string) *encounter.TurnResult {
	t.Helper()
	res, err := enc.ProcessTurn(wire.Command{Kind: wire.CmdEndTurn}, fromID)
	require.NoError(t, err)
	return res
}

// S1: poison persists and ticks at the victim's end of turn, then
// expires.
func TestScenario_PoisonPersistsAndTicks(t *testing.T) {
	poison := effectCard("venom", 1, card.EffectEntry{
		Effect: card.Effect{Kind: card.EffectPoison, PerTick: 2, Ticks: 2},
	})
	enc := newDuel(t, 100, 0, 50, 0, poison)
	monster := enc.Combatants[wire.Combatant2]

	play(t, enc, "hero-1", poison)
	assert.Equal(t, 48, monster.HP, "instant tick lands on play")

	endTurn(t, enc, "hero-1")
	endTurn(t, enc, "monster-1")
	assert.Equal(t, 46, monster.HP, "scheduled tick lands at monster end of turn")

	endTurn(t, enc, "hero-1")
	endTurn(t, enc, "monster-1")
	assert.Equal(t, 46, monster.HP, "poison expired")
}

// S2: armor absorbs normal damage and is consumed by it.
func TestScenario_ArmorAbsorbsNormalDamageOnce(t *testing.T) {
	enc := newDuel(t, 100, 5, 50, 0)
	hero := enc.Combatants[wire.Combatant1]

	bolt := card.Spell{ID: "bolt"}
	_, err := enc.ProcessTurn(wire.Command{Kind: wire.CmdUseSpell, Spell: &bolt}, "monster-1")
	require.NoError(t, err)
	assert.Equal(t, 85, hero.HP)
	assert.Equal(t, 0, hero.Armor)

	_, err = enc.ProcessTurn(wire.Command{Kind: wire.CmdUseSpell, Spell: &bolt}, "monster-1")
	require.NoError(t, err)
	assert.Equal(t, 65, hero.HP)
}

// S3: chaos damage bypasses armor entirely.
func TestScenario_ChaosBypassesArmor(t *testing.T) {
	enc := newDuel(t, 100, 5, 50, 0)
	hero := enc.Combatants[wire.Combatant1]

	fireball := card.Spell{ID: "fireball"}
	_, err := enc.ProcessTurn(wire.Command{Kind: wire.CmdUseSpell, Spell: &fireball}, "monster-1")
	require.NoError(t, err)
	assert.Equal(t, 75, hero.HP)
	assert.Equal(t, 5, hero.Armor)
}

// S4: three initiative applications make the monster skip one turn,
// then it acts normally with the accumulator reset.
func TestScenario_InitiativeSkip(t *testing.T) {
	delay := effectCard("delay", 0, card.EffectEntry{
		Effect: card.Effect{Kind: card.EffectInitiative, Amount: 1},
	})
	enc := newDuel(t, 100, 0, 50, 0, delay, delay, delay)

	// Turn 1: hero applies initiative, monster acts.
	play(t, enc, "hero-1", delay)
	endTurn(t, enc, "hero-1")
	endTurn(t, enc, "monster-1")

	// Turn 2: same again.
	play(t, enc, "hero-1", delay)
	endTurn(t, enc, "hero-1")
	endTurn(t, enc, "monster-1")

	// Turn 3: third application reaches the threshold.
	play(t, enc, "hero-1", delay)
	res := endTurn(t, enc, "hero-1")
	assert.Equal(t, wire.Combatant1, enc.CurrentTurn, "monster skipped; hero keeps the turn")
	assert.Equal(t, wire.PlayerTurn(wire.Combatant1), res.Message)
	assert.Equal(t, 0, enc.Initiative[wire.Combatant2], "accumulator reset")

	// Next round the monster acts normally.
	endTurn(t, enc, "hero-1")
	assert.Equal(t, wire.Combatant2, enc.CurrentTurn)
}

// S5: card and mana bookkeeping across three plays.
func TestScenario_CardAndManaBookkeeping(t *testing.T) {
	hand := []card.Card{
		attackCard("a1", 2, card.DamageNormal),
		attackCard("a2", 2, card.DamageNormal),
		attackCard("a3", 2, card.DamageNormal),
		attackCard("a4", 2, card.DamageNormal),
	}
	enc := newDuel(t, 100, 0, 50, 0, hand...)
	hero := enc.Combatants[wire.Combatant1]
	hero.Mana = 3

	for _, c := range hand[:3] {
		play(t, enc, "hero-1", c)
	}
	assert.Equal(t, 0, hero.Mana)
	assert.Len(t, hero.Hero.Hand, 1)
	assert.Len(t, hero.Hero.Discard, 3)

	fourth := hand[3]
	_, err := enc.ProcessTurn(wire.Command{Kind: wire.CmdPlayCard, Card: &fourth}, "hero-1")
	assert.ErrorIs(t, err, encounter.ErrInsufficientMana)
	assert.Len(t, hero.Hero.Hand, 1, "failed play leaves the hand untouched")
}

// S6: lethal damage ends the encounter; every later command is
// rejected with EncounterEnded.
func TestScenario_TerminalOnLethal(t *testing.T) {
	strike := attackCard("strike", 5, card.DamageNormal)
	enc := newDuel(t, 100, 0, 3, 0, strike)

	res := play(t, enc, "hero-1", strike)
	require.NotNil(t, res.Winner)
	assert.Equal(t, wire.Combatant1, *res.Winner)
	assert.Equal(t, wire.Winner(wire.Combatant1), res.Message)
	assert.True(t, enc.Terminal)

	_, err := enc.ProcessTurn(wire.Command{Kind: wire.CmdEndTurn}, "hero-1")
	assert.ErrorIs(t, err, encounter.ErrEncounterEnded)
	_, err = enc.ProcessTurn(wire.Command{Kind: wire.CmdEndTurn}, "monster-1")
	assert.ErrorIs(t, err, encounter.ErrEncounterEnded)
	_, err = enc.ProcessTurn(wire.Command{Kind: wire.CmdLeaveBattle}, "hero-1")
	assert.ErrorIs(t, err, encounter.ErrEncounterEnded)
}
