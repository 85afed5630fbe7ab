// Package wire defines the JSON protocol spoken between the combat core
// and attached transports. Field names are camelCase and enum values are
// externally tagged: unit variants serialize as bare strings, payload
// variants as single-key objects.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/card"
)

// Index identifies one of the two encounter slots.
type Index int

const (
	Combatant1 Index = iota
	Combatant2
)

// Opponent returns the other slot.
func (i Index) Opponent() Index {
	if i == Combatant1 {
		return Combatant2
	}
	return Combatant1
}

// String returns the wire tag for the index.
func (i Index) String() string {
	if i == Combatant1 {
		return "Combatant1"
	}
	return "Combatant2"
}

// MarshalJSON encodes the index as "Combatant1" or "Combatant2".
func (i Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalJSON decodes "Combatant1" or "Combatant2".
func (i *Index) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshal index: %w", err)
	}
	switch s {
	case "Combatant1":
		*i = Combatant1
	case "Combatant2":
		*i = Combatant2
	default:
		return fmt.Errorf("unmarshal index: unknown value %q", s)
	}
	return nil
}

// CommandKind names an inbound combat command variant.
type CommandKind string

const (
	CmdEnterBattle CommandKind = "EnterBattle"
	CmdLeaveBattle CommandKind = "LeaveBattle"
	CmdPlayCard    CommandKind = "PlayCard"
	CmdUseSpell    CommandKind = "UseSpell"
	CmdEndTurn     CommandKind = "EndTurn"
)

// Command is an inbound combat command. Card is set for PlayCard,
// Spell for UseSpell; the remaining variants carry no payload on the
// wire (EnterBattle's decision-maker handle is attached by the
// transport glue, never serialized).
type Command struct {
	Kind  CommandKind
	Card  *card.Card
	Spell *card.Spell
}

type playCardPayload struct {
	Card card.Card `json:"card"`
}

type useSpellPayload struct {
	Spell card.Spell `json:"spell"`
}

// MarshalJSON encodes the command externally tagged.
func (c Command) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CmdEnterBattle, CmdLeaveBattle, CmdEndTurn:
		return json.Marshal(string(c.Kind))
	case CmdPlayCard:
		if c.Card == nil {
			return nil, fmt.Errorf("marshal command: PlayCard requires a card")
		}
		return json.Marshal(map[CommandKind]playCardPayload{c.Kind: {Card: *c.Card}})
	case CmdUseSpell:
		if c.Spell == nil {
			return nil, fmt.Errorf("marshal command: UseSpell requires a spell")
		}
		return json.Marshal(map[CommandKind]useSpellPayload{c.Kind: {Spell: *c.Spell}})
	default:
		return nil, fmt.Errorf("marshal command: unknown kind %q", c.Kind)
	}
}

// UnmarshalJSON decodes a bare tag string or a single-key object.
func (c *Command) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		switch CommandKind(tag) {
		case CmdEnterBattle, CmdLeaveBattle, CmdEndTurn:
			*c = Command{Kind: CommandKind(tag)}
			return nil
		default:
			return fmt.Errorf("unmarshal command: unknown unit variant %q", tag)
		}
	}

	var raw map[CommandKind]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal command: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("unmarshal command: expected exactly one variant tag, got %d", len(raw))
	}
	for kind, body := range raw {
		switch kind {
		case CmdPlayCard:
			var p playCardPayload
			if err := json.Unmarshal(body, &p); err != nil {
				return fmt.Errorf("unmarshal PlayCard: %w", err)
			}
			*c = Command{Kind: kind, Card: &p.Card}
		case CmdUseSpell:
			var p useSpellPayload
			if err := json.Unmarshal(body, &p); err != nil {
				return fmt.Errorf("unmarshal UseSpell: %w", err)
			}
			*c = Command{Kind: kind, Spell: &p.Spell}
		default:
			return fmt.Errorf("unmarshal command: unknown variant %q", kind)
		}
	}
	return nil
}
