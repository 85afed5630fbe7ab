package card

import (
	"encoding/json"
	"fmt"
)

// EffectKind names one of the recognised effect variants. The string
// values double as the externally-tagged JSON enum tags.
type EffectKind string

const (
	EffectDamage           EffectKind = "Damage"
	EffectHeal             EffectKind = "Heal"
	EffectPoison           EffectKind = "Poison"
	EffectBuffDamage       EffectKind = "BuffDamage"
	EffectDebuffDamage     EffectKind = "DebuffDamage"
	EffectBuffArmor        EffectKind = "BuffArmor"
	EffectDebuffArmor      EffectKind = "DebuffArmor"
	EffectInitiative       EffectKind = "Initiative"
	EffectInitiativeRemove EffectKind = "InitiativeRemove"
	EffectSilence          EffectKind = "Silence"
	EffectStun             EffectKind = "Stun"
	EffectManaGain         EffectKind = "ManaGain"
)

// Effect is the tagged effect variant. Only the fields meaningful for
// the Kind are set:
//
//	Damage:           Amount, DamageType
//	Heal:             Amount
//	Poison:           PerTick, Ticks
//	BuffDamage:       Amount, Duration (0 = one-shot)
//	DebuffDamage:     Amount
//	BuffArmor:        Amount
//	DebuffArmor:      Amount
//	Initiative:       Amount
//	InitiativeRemove: Amount
//	Silence:          Duration
//	Stun:             (no parameters)
//	ManaGain:         Amount
type Effect struct {
	Kind       EffectKind
	Amount     int
	DamageType DamageType
	PerTick    int
	Ticks      int
	Duration   int
}

// SelfTargeted reports whether the effect applies to its caster rather
// than the opponent: Heal, BuffDamage, BuffArmor, and ManaGain.
func (e Effect) SelfTargeted() bool {
	switch e.Kind {
	case EffectHeal, EffectBuffDamage, EffectBuffArmor, EffectManaGain:
		return true
	}
	return false
}

// Validate checks the effect's parameters for its kind.
//
// Postcondition: Returns nil iff the kind is recognised and all
// amounts for that kind are non-negative.
func (e Effect) Validate() error {
	switch e.Kind {
	case EffectDamage:
		if !ValidDamageType(e.DamageType) {
			return fmt.Errorf("damage effect: unknown damage type %q", e.DamageType)
		}
		if e.Amount < 0 {
			return fmt.Errorf("damage effect: amount must be >= 0, got %d", e.Amount)
		}
	case EffectPoison:
		if e.PerTick < 0 || e.Ticks < 1 {
			return fmt.Errorf("poison effect: perTick must be >= 0 and ticks >= 1, got %d/%d", e.PerTick, e.Ticks)
		}
	case EffectSilence:
		if e.Duration < 1 {
			return fmt.Errorf("silence effect: duration must be >= 1, got %d", e.Duration)
		}
	case EffectStun:
		// no parameters
	case EffectHeal, EffectBuffDamage, EffectDebuffDamage, EffectBuffArmor,
		EffectDebuffArmor, EffectInitiative, EffectInitiativeRemove, EffectManaGain:
		if e.Amount < 0 {
			return fmt.Errorf("%s effect: amount must be >= 0, got %d", e.Kind, e.Amount)
		}
	default:
		return fmt.Errorf("unknown effect kind %q", e.Kind)
	}
	return nil
}

// JSON payload shapes, one per parameterised variant. Field names are
// camelCase; the variant tag wraps the payload as a single-key object.
// Parameterless variants serialize as a bare tag string.

type amountPayload struct {
	Amount int `json:"amount"`
}

type damagePayload struct {
	Amount     int        `json:"amount"`
	DamageType DamageType `json:"damageType"`
}

type poisonPayload struct {
	PerTick int `json:"perTick"`
	Ticks   int `json:"ticks"`
}

type buffDamagePayload struct {
	Amount   int  `json:"amount"`
	Duration *int `json:"duration,omitempty"`
}

type durationPayload struct {
	Duration int `json:"duration"`
}

// MarshalJSON encodes the effect as an externally-tagged value:
// {"Damage":{"amount":5,"damageType":"Normal"}} or "Stun".
func (e Effect) MarshalJSON() ([]byte, error) {
	var payload any
	switch e.Kind {
	case EffectDamage:
		payload = damagePayload{Amount: e.Amount, DamageType: e.DamageType}
	case EffectPoison:
		payload = poisonPayload{PerTick: e.PerTick, Ticks: e.Ticks}
	case EffectBuffDamage:
		p := buffDamagePayload{Amount: e.Amount}
		if e.Duration > 0 {
			d := e.Duration
			p.Duration = &d
		}
		payload = p
	case EffectSilence:
		payload = durationPayload{Duration: e.Duration}
	case EffectStun:
		return json.Marshal(string(e.Kind))
	case EffectHeal, EffectDebuffDamage, EffectBuffArmor, EffectDebuffArmor,
		EffectInitiative, EffectInitiativeRemove, EffectManaGain:
		payload = amountPayload{Amount: e.Amount}
	default:
		return nil, fmt.Errorf("marshal effect: unknown kind %q", e.Kind)
	}
	return json.Marshal(map[EffectKind]any{e.Kind: payload})
}

// UnmarshalJSON decodes either a bare tag string or a single-key
// externally-tagged object.
func (e *Effect) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		switch EffectKind(tag) {
		case EffectStun:
			*e = Effect{Kind: EffectStun}
			return nil
		default:
			return fmt.Errorf("unmarshal effect: unknown unit variant %q", tag)
		}
	}

	var raw map[EffectKind]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal effect: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("unmarshal effect: expected exactly one variant tag, got %d", len(raw))
	}

	for kind, body := range raw {
		out := Effect{Kind: kind}
		switch kind {
		case EffectDamage:
			var p damagePayload
			if err := json.Unmarshal(body, &p); err != nil {
				return fmt.Errorf("unmarshal %s effect: %w", kind, err)
			}
			out.Amount = p.Amount
			out.DamageType = p.DamageType
		case EffectPoison:
			var p poisonPayload
			if err := json.Unmarshal(body, &p); err != nil {
				return fmt.Errorf("unmarshal %s effect: %w", kind, err)
			}
			out.PerTick = p.PerTick
			out.Ticks = p.Ticks
		case EffectBuffDamage:
			var p buffDamagePayload
			if err := json.Unmarshal(body, &p); err != nil {
				return fmt.Errorf("unmarshal %s effect: %w", kind, err)
			}
			out.Amount = p.Amount
			if p.Duration != nil {
				out.Duration = *p.Duration
			}
		case EffectSilence:
			var p durationPayload
			if err := json.Unmarshal(body, &p); err != nil {
				return fmt.Errorf("unmarshal %s effect: %w", kind, err)
			}
			out.Duration = p.Duration
		case EffectStun:
			// tolerated as {"Stun":{}} on input
		case EffectHeal, EffectDebuffDamage, EffectBuffArmor, EffectDebuffArmor,
			EffectInitiative, EffectInitiativeRemove, EffectManaGain:
			var p amountPayload
			if err := json.Unmarshal(body, &p); err != nil {
				return fmt.Errorf("unmarshal %s effect: %w", kind, err)
			}
			out.Amount = p.Amount
		default:
			return fmt.Errorf("unmarshal effect: unknown variant %q", kind)
		}
		*e = out
	}
	return nil
}
