// Package combatant models the participants of an encounter: a
// human-controlled hero or a CPU-controlled monster. Both share a
// vitals surface (hp, armor, mana); the variant-specific state hangs
// off exactly one of the Hero or Monster fields.
package combatant

import (
	"fmt"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/card"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/dice"
)

// Kind distinguishes hero combatants from monster combatants.
type Kind string

const (
	KindHero    Kind = "Hero"
	KindMonster Kind = "Monster"
)

// HeroState holds the hero-only portion of a combatant.
type HeroState struct {
	Zeal         int          `json:"zeal"`
	Strength     int          `json:"strength"`
	Intelligence int          `json:"intelligence"`
	Dexterity    int          `json:"dexterity"`
	Spells       []card.Spell `json:"spells"`
	Relics       []string     `json:"relics"`
	Deck         []card.Card  `json:"deck"`
	Hand         []card.Card  `json:"hand"`
	Discard      []card.Card  `json:"discard"`
}

// MonsterState holds the monster-only portion of a combatant.
type MonsterState struct {
	DamageMin int          `json:"damageMin"`
	DamageMax int          `json:"damageMax"`
	Level     int          `json:"level"`
	Spells    []card.Spell `json:"spells"`
}

// Combatant is one participant in an encounter.
//
// Invariants: 0 <= HP <= MaxHP; Armor >= 0; Mana >= 0; exactly one of
// Hero and Monster is non-nil, matching Kind; a card appears in at most
// one of deck, hand, and discard.
type Combatant struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Kind    Kind          `json:"kind"`
	HP      int           `json:"hp"`
	MaxHP   int           `json:"maxHp"`
	Armor   int           `json:"armor"`
	Mana    int           `json:"mana"`
	Hero    *HeroState    `json:"hero,omitempty"`
	Monster *MonsterState `json:"monster,omitempty"`
}

// NewHero creates a hero combatant at full health with the given deck.
//
// Precondition: id must be non-empty; maxHP > 0.
func NewHero(id, name string, maxHP int, deck []card.Card) *Combatant {
	return &Combatant{
		ID:    id,
		Name:  name,
		Kind:  KindHero,
		HP:    maxHP,
		MaxHP: maxHP,
		Hero: &HeroState{
			Spells:  []card.Spell{},
			Relics:  []string{},
			Deck:    card.CloneCards(deck),
			Hand:    []card.Card{},
			Discard: []card.Card{},
		},
	}
}

// NewMonster creates a monster combatant at full health.
//
// Precondition: id must be non-empty; maxHP > 0; damageMin <= damageMax.
func NewMonster(id, name string, maxHP, damageMin, damageMax, level int) *Combatant {
	return &Combatant{
		ID:    id,
		Name:  name,
		Kind:  KindMonster,
		HP:    maxHP,
		MaxHP: maxHP,
		Monster: &MonsterState{
			DamageMin: damageMin,
			DamageMax: damageMax,
			Level:     level,
			Spells:    []card.Spell{},
		},
	}
}

// Validate checks the combatant's structural invariants.
func (c *Combatant) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("combatant: id must not be empty")
	}
	if c.HP < 0 || c.HP > c.MaxHP {
		return fmt.Errorf("combatant %q: hp %d outside [0, %d]", c.ID, c.HP, c.MaxHP)
	}
	if c.Armor < 0 {
		return fmt.Errorf("combatant %q: armor must be >= 0, got %d", c.ID, c.Armor)
	}
	if c.Mana < 0 {
		return fmt.Errorf("combatant %q: mana must be >= 0, got %d", c.ID, c.Mana)
	}
	switch c.Kind {
	case KindHero:
		if c.Hero == nil || c.Monster != nil {
			return fmt.Errorf("combatant %q: hero variant requires exactly the Hero state", c.ID)
		}
	case KindMonster:
		if c.Monster == nil || c.Hero != nil {
			return fmt.Errorf("combatant %q: monster variant requires exactly the Monster state", c.ID)
		}
	default:
		return fmt.Errorf("combatant %q: unknown kind %q", c.ID, c.Kind)
	}
	return nil
}

// IsDead reports whether the combatant can no longer act.
func (c *Combatant) IsDead() bool { return c.HP <= 0 }

// TakeDamage reduces HP by amount, flooring at zero.
//
// Precondition: amount >= 0.
// Postcondition: HP >= 0.
func (c *Combatant) TakeDamage(amount int) {
	c.HP -= amount
	if c.HP < 0 {
		c.HP = 0
	}
}

// Heal increases HP by amount, capped at MaxHP.
//
// Precondition: amount >= 0.
// Postcondition: HP <= MaxHP.
func (c *Combatant) Heal(amount int) {
	c.HP += amount
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
}

// SpendMana deducts cost from the mana pool.
//
// Postcondition: Returns false and leaves mana unchanged when the pool
// is short; otherwise mana is reduced by cost.
func (c *Combatant) SpendMana(cost int) bool {
	if cost > c.Mana {
		return false
	}
	c.Mana -= cost
	return true
}

// GainMana adds amount to the mana pool.
func (c *Combatant) GainMana(amount int) { c.Mana += amount }

// GainArmor adds amount to armor.
func (c *Combatant) GainArmor(amount int) { c.Armor += amount }

// ReduceArmor subtracts amount from armor, flooring at zero.
//
// Postcondition: Armor >= 0.
func (c *Combatant) ReduceArmor(amount int) {
	c.Armor -= amount
	if c.Armor < 0 {
		c.Armor = 0
	}
}

// Spells returns the combatant's known spells regardless of variant.
func (c *Combatant) Spells() []card.Spell {
	switch {
	case c.Hero != nil:
		return c.Hero.Spells
	case c.Monster != nil:
		return c.Monster.Spells
	}
	return nil
}

// KnowsSpell reports whether the combatant has a spell with the given id.
func (c *Combatant) KnowsSpell(id string) bool {
	for _, s := range c.Spells() {
		if s.ID == id {
			return true
		}
	}
	return false
}

// HandCard returns the hand card with the given id.
//
// Postcondition: Returns (card, true) iff the combatant is a hero
// holding that card.
func (c *Combatant) HandCard(id string) (card.Card, bool) {
	if c.Hero == nil {
		return card.Card{}, false
	}
	for _, h := range c.Hero.Hand {
		if h.ID == id {
			return h, true
		}
	}
	return card.Card{}, false
}

// PlayFromHand removes the card with the given id from the hand and
// appends it to the discard pile.
//
// Postcondition: Returns (card, true) and moves exactly one copy on
// success; returns (zero, false) when the card is not in hand.
func (c *Combatant) PlayFromHand(id string) (card.Card, bool) {
	if c.Hero == nil {
		return card.Card{}, false
	}
	for i, h := range c.Hero.Hand {
		if h.ID == id {
			c.Hero.Hand = append(c.Hero.Hand[:i], c.Hero.Hand[i+1:]...)
			c.Hero.Discard = append(c.Hero.Discard, h)
			return h, true
		}
	}
	return card.Card{}, false
}

// ShuffleDeck permutes the hero's deck in place. No-op for monsters.
func (c *Combatant) ShuffleDeck(src dice.Source) {
	if c.Hero != nil {
		dice.Shuffle(src, c.Hero.Deck)
	}
}

// Draw moves up to n cards from the top of the deck into the hand.
// When the deck runs short, the discard pile is shuffled back into the
// deck first; if cards still run out, whatever remains is drawn.
//
// Postcondition: len(hand) grows by at most n; total card count across
// deck, hand, and discard is unchanged.
func (c *Combatant) Draw(src dice.Source, n int) {
	if c.Hero == nil || n <= 0 {
		return
	}
	h := c.Hero
	if len(h.Deck) < n && len(h.Discard) > 0 {
		h.Deck = append(h.Deck, h.Discard...)
		h.Discard = h.Discard[:0]
		dice.Shuffle(src, h.Deck)
	}
	take := n
	if take > len(h.Deck) {
		take = len(h.Deck)
	}
	h.Hand = append(h.Hand, h.Deck[:take]...)
	h.Deck = h.Deck[take:]
}

// CardCount returns the total number of cards across deck, hand, and
// discard. Zero for monsters.
func (c *Combatant) CardCount() int {
	if c.Hero == nil {
		return 0
	}
	return len(c.Hero.Deck) + len(c.Hero.Hand) + len(c.Hero.Discard)
}

// Clone returns a deep copy of the combatant.
func (c *Combatant) Clone() *Combatant {
	out := *c
	if c.Hero != nil {
		h := *c.Hero
		h.Spells = card.CloneSpells(c.Hero.Spells)
		h.Relics = append([]string{}, c.Hero.Relics...)
		h.Deck = card.CloneCards(c.Hero.Deck)
		h.Hand = card.CloneCards(c.Hero.Hand)
		h.Discard = card.CloneCards(c.Hero.Discard)
		out.Hero = &h
	}
	if c.Monster != nil {
		m := *c.Monster
		m.Spells = card.CloneSpells(c.Monster.Spells)
		out.Monster = &m
	}
	return &out
}
