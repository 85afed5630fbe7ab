// Package content loads the card, spell, monster, and hero definitions
// the combat service serves encounters from. Definitions live in YAML
// files; references between them (a monster's spell list, a hero's
// deck) are resolved against the catalog at load time.
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/card"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/combatant"
)

// yamlFile is the top-level YAML structure. A file may carry any mix of
// the four sections.
type yamlFile struct {
	Cards    []yamlCard    `yaml:"cards"`
	Spells   []yamlSpell   `yaml:"spells"`
	Monsters []yamlMonster `yaml:"monsters"`
	Heroes   []yamlHero    `yaml:"heroes"`
}

type yamlCard struct {
	ID       string       `yaml:"id"`
	Name     string       `yaml:"name"`
	ManaCost int          `yaml:"mana_cost"`
	Health   int          `yaml:"health"`
	Damage   int          `yaml:"damage"`
	CardType string       `yaml:"card_type"`
	Effects  []yamlEffect `yaml:"effects"`
}

type yamlSpell struct {
	ID       string       `yaml:"id"`
	Name     string       `yaml:"name"`
	ManaCost int          `yaml:"mana_cost"`
	Effects  []yamlEffect `yaml:"effects"`
}

type yamlEffect struct {
	Kind       string `yaml:"kind"`
	Amount     int    `yaml:"amount"`
	DamageType string `yaml:"damage_type"`
	PerTick    int    `yaml:"per_tick"`
	Ticks      int    `yaml:"ticks"`
	Duration   *int   `yaml:"duration"`
}

type yamlMonster struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	MaxHP     int      `yaml:"max_hp"`
	DamageMin int      `yaml:"damage_min"`
	DamageMax int      `yaml:"damage_max"`
	Level     int      `yaml:"level"`
	Spells    []string `yaml:"spells"`
}

type yamlHero struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	MaxHP  int      `yaml:"max_hp"`
	Deck   []string `yaml:"deck"`
	Spells []string `yaml:"spells"`
}

// MonsterTemplate is a stat block a monster combatant is stamped from.
type MonsterTemplate struct {
	ID        string
	Name      string
	MaxHP     int
	DamageMin int
	DamageMax int
	Level     int
	Spells    []string
}

// HeroTemplate is a starting loadout for a hero combatant. Deck entries
// reference card ids and may repeat.
type HeroTemplate struct {
	ID     string
	Name   string
	MaxHP  int
	Deck   []string
	Spells []string
}

// Catalog is the resolved content set. It is immutable after loading
// and safe for concurrent reads.
type Catalog struct {
	cards    map[string]card.Card
	spells   map[string]card.Spell
	monsters map[string]MonsterTemplate
	heroes   map[string]HeroTemplate
}

// LoadCatalogFromDir loads every YAML file in dir into one catalog.
//
// Precondition: dir must be a readable directory holding at least one
// YAML file.
// Postcondition: Returns a fully cross-referenced catalog or the first
// error encountered.
func LoadCatalogFromDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content directory %s: %w", dir, err)
	}

	var files []yamlFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading content file %s: %w", name, err)
		}
		var file yamlFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing content file %s: %w", name, err)
		}
		files = append(files, file)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no content files found in %s", dir)
	}

	return buildCatalog(files)
}

// LoadCatalogFromBytes builds a catalog from a single YAML document.
func LoadCatalogFromBytes(data []byte) (*Catalog, error) {
	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing content YAML: %w", err)
	}
	return buildCatalog([]yamlFile{file})
}

// buildCatalog merges the parsed files, validates every definition, and
// resolves cross references.
func buildCatalog(files []yamlFile) (*Catalog, error) {
	cat := &Catalog{
		cards:    make(map[string]card.Card),
		spells:   make(map[string]card.Spell),
		monsters: make(map[string]MonsterTemplate),
		heroes:   make(map[string]HeroTemplate),
	}

	for _, file := range files {
		for _, yc := range file.Cards {
			c, err := convertYAMLCard(yc)
			if err != nil {
				return nil, err
			}
			if _, dup := cat.cards[c.ID]; dup {
				return nil, fmt.Errorf("duplicate card id %q", c.ID)
			}
			cat.cards[c.ID] = c
		}
		for _, ys := range file.Spells {
			s, err := convertYAMLSpell(ys)
			if err != nil {
				return nil, err
			}
			if _, dup := cat.spells[s.ID]; dup {
				return nil, fmt.Errorf("duplicate spell id %q", s.ID)
			}
			cat.spells[s.ID] = s
		}
		for _, ym := range file.Monsters {
			if _, dup := cat.monsters[ym.ID]; dup {
				return nil, fmt.Errorf("duplicate monster id %q", ym.ID)
			}
			cat.monsters[ym.ID] = MonsterTemplate(ym)
		}
		for _, yh := range file.Heroes {
			if _, dup := cat.heroes[yh.ID]; dup {
				return nil, fmt.Errorf("duplicate hero id %q", yh.ID)
			}
			cat.heroes[yh.ID] = HeroTemplate(yh)
		}
	}

	if err := cat.validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (c *Catalog) validate() error {
	for id, m := range c.monsters {
		if m.MaxHP <= 0 {
			return fmt.Errorf("monster %q: max_hp must be > 0, got %d", id, m.MaxHP)
		}
		if m.DamageMin < 0 || m.DamageMax < m.DamageMin {
			return fmt.Errorf("monster %q: damage range %d..%d is invalid", id, m.DamageMin, m.DamageMax)
		}
		for _, spellID := range m.Spells {
			if _, ok := c.spells[spellID]; !ok {
				return fmt.Errorf("monster %q references unknown spell %q", id, spellID)
			}
		}
	}
	for id, h := range c.heroes {
		if h.MaxHP <= 0 {
			return fmt.Errorf("hero %q: max_hp must be > 0, got %d", id, h.MaxHP)
		}
		for _, cardID := range h.Deck {
			if _, ok := c.cards[cardID]; !ok {
				return fmt.Errorf("hero %q references unknown card %q", id, cardID)
			}
		}
		for _, spellID := range h.Spells {
			if _, ok := c.spells[spellID]; !ok {
				return fmt.Errorf("hero %q references unknown spell %q", id, spellID)
			}
		}
	}
	return nil
}

func convertYAMLCard(yc yamlCard) (card.Card, error) {
	c := card.Card{
		ID:       yc.ID,
		Name:     yc.Name,
		ManaCost: yc.ManaCost,
		Health:   yc.Health,
		Damage:   yc.Damage,
		CardType: card.CardType(yc.CardType),
	}
	for _, ye := range yc.Effects {
		entry, err := convertYAMLEffect(ye)
		if err != nil {
			return card.Card{}, fmt.Errorf("card %q: %w", yc.ID, err)
		}
		c.Effects = append(c.Effects, entry)
	}
	if err := c.Validate(); err != nil {
		return card.Card{}, err
	}
	return c, nil
}

func convertYAMLSpell(ys yamlSpell) (card.Spell, error) {
	s := card.Spell{
		ID:       ys.ID,
		Name:     ys.Name,
		ManaCost: ys.ManaCost,
	}
	for _, ye := range ys.Effects {
		entry, err := convertYAMLEffect(ye)
		if err != nil {
			return card.Spell{}, fmt.Errorf("spell %q: %w", ys.ID, err)
		}
		s.Effects = append(s.Effects, entry)
	}
	if err := s.Validate(); err != nil {
		return card.Spell{}, err
	}
	return s, nil
}

func convertYAMLEffect(ye yamlEffect) (card.EffectEntry, error) {
	eff := card.Effect{
		Kind:       card.EffectKind(ye.Kind),
		Amount:     ye.Amount,
		DamageType: card.DamageType(ye.DamageType),
		PerTick:    ye.PerTick,
		Ticks:      ye.Ticks,
	}
	entry := card.EffectEntry{Effect: eff}
	// Silence carries its duration on the effect itself; everywhere else
	// the duration is entry-level metadata.
	if ye.Duration != nil {
		if eff.Kind == card.EffectSilence {
			entry.Effect.Duration = *ye.Duration
		} else {
			d := *ye.Duration
			entry.Duration = &d
		}
	}
	if err := entry.Effect.Validate(); err != nil {
		return card.EffectEntry{}, err
	}
	return entry, nil
}

// Card returns the card with the given id.
func (c *Catalog) Card(id string) (card.Card, bool) {
	got, ok := c.cards[id]
	if !ok {
		return card.Card{}, false
	}
	return got.Clone(), true
}

// Spell returns the spell with the given id.
func (c *Catalog) Spell(id string) (card.Spell, bool) {
	got, ok := c.spells[id]
	if !ok {
		return card.Spell{}, false
	}
	return got.Clone(), true
}

// CardCount reports how many card definitions the catalog holds.
func (c *Catalog) CardCount() int { return len(c.cards) }

// MonsterIDs lists the ids of every monster template.
func (c *Catalog) MonsterIDs() []string {
	ids := make([]string, 0, len(c.monsters))
	for id := range c.monsters {
		ids = append(ids, id)
	}
	return ids
}

// NewMonster stamps a fresh monster combatant from the template with
// the given id, with its spell references resolved.
//
// Postcondition: Returns a combatant whose id is instanceID, distinct
// from the template id so several instances can coexist.
func (c *Catalog) NewMonster(templateID, instanceID string) (*combatant.Combatant, error) {
	tmpl, ok := c.monsters[templateID]
	if !ok {
		return nil, fmt.Errorf("unknown monster template %q", templateID)
	}
	m := combatant.NewMonster(instanceID, tmpl.Name, tmpl.MaxHP, tmpl.DamageMin, tmpl.DamageMax, tmpl.Level)
	for _, spellID := range tmpl.Spells {
		s := c.spells[spellID]
		m.Monster.Spells = append(m.Monster.Spells, s.Clone())
	}
	return m, nil
}

// NewHero stamps a fresh hero combatant from the template with the
// given id, with its deck and spell references resolved.
func (c *Catalog) NewHero(templateID, instanceID string) (*combatant.Combatant, error) {
	tmpl, ok := c.heroes[templateID]
	if !ok {
		return nil, fmt.Errorf("unknown hero template %q", templateID)
	}
	deck := make([]card.Card, 0, len(tmpl.Deck))
	for _, cardID := range tmpl.Deck {
		deck = append(deck, c.cards[cardID].Clone())
	}
	h := combatant.NewHero(instanceID, tmpl.Name, tmpl.MaxHP, deck)
	for _, spellID := range tmpl.Spells {
		s := c.spells[spellID]
		h.Hero.Spells = append(h.Hero.Spells, s.Clone())
	}
	return h, nil
}
