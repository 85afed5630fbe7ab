package wire

import (
	"encoding/json"
	"fmt"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/card"
)

// PlayerView is the hero arm of the combatant state union.
type PlayerView struct {
	HP             int          `json:"hp"`
	MaxHP          int          `json:"maxHp"`
	Mana           int          `json:"mana"`
	Zeal           int          `json:"zeal"`
	Armor          int          `json:"armor"`
	Strength       int          `json:"strength"`
	Intelligence   int          `json:"intelligence"`
	Dexterity      int          `json:"dexterity"`
	Spells         []card.Spell `json:"spells"`
	Relics         []string     `json:"relics"`
	DrawnCards     []card.Card  `json:"drawnCards"`
	CardsInDiscard []card.Card  `json:"cardsInDiscard"`
}

// NpcView is the monster arm of the combatant state union.
type NpcView struct {
	HP        int          `json:"hp"`
	MaxHP     int          `json:"maxHp"`
	Mana      int          `json:"mana"`
	Armor     int          `json:"armor"`
	Level     int          `json:"level"`
	DamageMin int          `json:"damageMin"`
	DamageMax int          `json:"damageMax"`
	Spells    []card.Spell `json:"spells"`
}

// CombatantState is the discriminated union {Player | Npc}. Exactly one
// arm is non-nil.
type CombatantState struct {
	Player *PlayerView
	Npc    *NpcView
}

// MarshalJSON encodes the union externally tagged:
// {"Player":{...}} or {"Npc":{...}}.
func (s CombatantState) MarshalJSON() ([]byte, error) {
	switch {
	case s.Player != nil:
		return json.Marshal(map[string]*PlayerView{"Player": s.Player})
	case s.Npc != nil:
		return json.Marshal(map[string]*NpcView{"Npc": s.Npc})
	default:
		return nil, fmt.Errorf("marshal combatant state: neither arm set")
	}
}

// UnmarshalJSON decodes the single-key union object.
func (s *CombatantState) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal combatant state: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("unmarshal combatant state: expected exactly one variant tag, got %d", len(raw))
	}
	for tag, body := range raw {
		switch tag {
		case "Player":
			var v PlayerView
			if err := json.Unmarshal(body, &v); err != nil {
				return fmt.Errorf("unmarshal Player state: %w", err)
			}
			*s = CombatantState{Player: &v}
		case "Npc":
			var v NpcView
			if err := json.Unmarshal(body, &v); err != nil {
				return fmt.Errorf("unmarshal Npc state: %w", err)
			}
			*s = CombatantState{Npc: &v}
		default:
			return fmt.Errorf("unmarshal combatant state: unknown variant %q", tag)
		}
	}
	return nil
}

// EncounterState is the authoritative snapshot broadcast to both
// participants after every successful transition.
type EncounterState struct {
	PlayerState CombatantState `json:"playerState"`
	NpcState    CombatantState `json:"npcState"`
	Turn        Index          `json:"turn"`
	Round       int            `json:"round"`
}

// TurnMessageKind names an outbound turn message variant.
type TurnMessageKind string

const (
	MsgEncounterData TurnMessageKind = "EncounterData"
	MsgPlayerTurn    TurnMessageKind = "PlayerTurn"
	MsgWinner        TurnMessageKind = "Winner"
	MsgCardPlayed    TurnMessageKind = "CardPlayed"
	MsgError         TurnMessageKind = "Error"
)

// TurnMessage is an authoritative outbound message. The fields set
// depend on Kind:
//
//	EncounterData: State
//	PlayerTurn:    Index
//	Winner:        Index
//	CardPlayed:    Card, State
//	Error:         Message (rule violation echoed back to the sender)
type TurnMessage struct {
	Kind    TurnMessageKind
	Index   Index
	State   *EncounterState
	Card    *card.Card
	Message string
}

// EncounterData builds an EncounterData message.
func EncounterData(state EncounterState) TurnMessage {
	return TurnMessage{Kind: MsgEncounterData, State: &state}
}

// PlayerTurn builds a PlayerTurn message.
func PlayerTurn(idx Index) TurnMessage {
	return TurnMessage{Kind: MsgPlayerTurn, Index: idx}
}

// Winner builds a Winner message.
func Winner(idx Index) TurnMessage {
	return TurnMessage{Kind: MsgWinner, Index: idx}
}

// CardPlayed builds a CardPlayed message.
func CardPlayed(c card.Card, state EncounterState) TurnMessage {
	return TurnMessage{Kind: MsgCardPlayed, Card: &c, State: &state}
}

// ErrorMessage builds an Error message carrying a rule violation.
func ErrorMessage(msg string) TurnMessage {
	return TurnMessage{Kind: MsgError, Message: msg}
}

type cardPlayedPayload struct {
	Card  card.Card      `json:"card"`
	State EncounterState `json:"state"`
}

// MarshalJSON encodes the message externally tagged.
func (m TurnMessage) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case MsgEncounterData:
		if m.State == nil {
			return nil, fmt.Errorf("marshal turn message: EncounterData requires state")
		}
		return json.Marshal(map[TurnMessageKind]*EncounterState{m.Kind: m.State})
	case MsgPlayerTurn, MsgWinner:
		return json.Marshal(map[TurnMessageKind]Index{m.Kind: m.Index})
	case MsgCardPlayed:
		if m.Card == nil || m.State == nil {
			return nil, fmt.Errorf("marshal turn message: CardPlayed requires card and state")
		}
		return json.Marshal(map[TurnMessageKind]cardPlayedPayload{m.Kind: {Card: *m.Card, State: *m.State}})
	case MsgError:
		return json.Marshal(map[TurnMessageKind]string{m.Kind: m.Message})
	default:
		return nil, fmt.Errorf("marshal turn message: unknown kind %q", m.Kind)
	}
}

// UnmarshalJSON decodes the single-key variant object.
func (m *TurnMessage) UnmarshalJSON(data []byte) error {
	var raw map[TurnMessageKind]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal turn message: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("unmarshal turn message: expected exactly one variant tag, got %d", len(raw))
	}
	for kind, body := range raw {
		switch kind {
		case MsgEncounterData:
			var st EncounterState
			if err := json.Unmarshal(body, &st); err != nil {
				return fmt.Errorf("unmarshal EncounterData: %w", err)
			}
			*m = TurnMessage{Kind: kind, State: &st}
		case MsgPlayerTurn, MsgWinner:
			var idx Index
			if err := json.Unmarshal(body, &idx); err != nil {
				return fmt.Errorf("unmarshal %s: %w", kind, err)
			}
			*m = TurnMessage{Kind: kind, Index: idx}
		case MsgCardPlayed:
			var p cardPlayedPayload
			if err := json.Unmarshal(body, &p); err != nil {
				return fmt.Errorf("unmarshal CardPlayed: %w", err)
			}
			*m = TurnMessage{Kind: kind, Card: &p.Card, State: &p.State}
		case MsgError:
			var msg string
			if err := json.Unmarshal(body, &msg); err != nil {
				return fmt.Errorf("unmarshal Error: %w", err)
			}
			*m = TurnMessage{Kind: kind, Message: msg}
		default:
			return fmt.Errorf("unmarshal turn message: unknown variant %q", kind)
		}
	}
	return nil
}
