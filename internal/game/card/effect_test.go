package card_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/card"
)

func TestEffect_MarshalExternallyTagged(t *testing.T) {
	tests := []struct {
		name   string
		effect card.Effect
		want   string
	}{
		{
			name:   "damage",
			effect: card.Effect{Kind: card.EffectDamage, Amount: 20, DamageType: card.DamageNormal},
			want:   `{"Damage":{"amount":20,"damageType":"Normal"}}`,
		},
		{
			name:   "heal",
			effect: card.Effect{Kind: card.EffectHeal, Amount: 5},
			want:   `{"Heal":{"amount":5}}`,
		},
		{
			name:   "poison",
			effect: card.Effect{Kind: card.EffectPoison, PerTick: 2, Ticks: 2},
			want:   `{"Poison":{"perTick":2,"ticks":2}}`,
		},
		{
			name:   "buff damage one-shot omits duration",
			effect: card.Effect{Kind: card.EffectBuffDamage, Amount: 3},
			want:   `{"BuffDamage":{"amount":3}}`,
		},
		{
			name:   "buff damage with duration",
			effect: card.Effect{Kind: card.EffectBuffDamage, Amount: 3, Duration: 2},
			want:   `{"BuffDamage":{"amount":3,"duration":2}}`,
		},
		{
			name:   "silence",
			effect: card.Effect{Kind: card.EffectSilence, Duration: 1},
			want:   `{"Silence":{"duration":1}}`,
		},
		{
			name:   "stun is a bare tag",
			effect: card.Effect{Kind: card.EffectStun},
			want:   `"Stun"`,
		},
		{
			name:   "mana gain",
			effect: card.Effect{Kind: card.EffectManaGain, Amount: 2},
			want:   `{"ManaGain":{"amount":2}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.effect)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestEffect_RoundTrip(t *testing.T) {
	effects := []card.Effect{
		{Kind: card.EffectDamage, Amount: 25, DamageType: card.DamageChaos},
		{Kind: card.EffectDamage, Amount: 7, DamageType: card.DamageSpell},
		{Kind: card.EffectHeal, Amount: 10},
		{Kind: card.EffectPoison, PerTick: 3, Ticks: 4},
		{Kind: card.EffectBuffDamage, Amount: 2},
		{Kind: card.EffectBuffDamage, Amount: 2, Duration: 3},
		{Kind: card.EffectDebuffDamage, Amount: 1},
		{Kind: card.EffectBuffArmor, Amount: 5},
		{Kind: card.EffectDebuffArmor, Amount: 2},
		{Kind: card.EffectInitiative, Amount: 1},
		{Kind: card.EffectInitiativeRemove, Amount: 1},
		{Kind: card.EffectSilence, Duration: 2},
		{Kind: card.EffectStun},
		{Kind: card.EffectManaGain, Amount: 3},
	}

	for _, e := range effects {
		data, err := json.Marshal(e)
		require.NoError(t, err)
		var got card.Effect
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, e, got, "round-trip of %s", e.Kind)
	}
}

func TestEffect_UnmarshalRejectsUnknown(t *testing.T) {
	var e card.Effect
	assert.Error(t, json.Unmarshal([]byte(`{"Vanish":{"amount":1}}`), &e))
	assert.Error(t, json.Unmarshal([]byte(`"Vanish"`), &e))
	assert.Error(t, json.Unmarshal([]byte(`{"Damage":{"amount":1},"Heal":{"amount":1}}`), &e))
}

func TestEffect_Validate(t *testing.T) {
	tests := []struct {
		name    string
		effect  card.Effect
		wantErr bool
	}{
		{"valid damage", card.Effect{Kind: card.EffectDamage, Amount: 5, DamageType: card.DamageNormal}, false},
		{"damage with bad type", card.Effect{Kind: card.EffectDamage, Amount: 5, DamageType: "Holy"}, true},
		{"negative heal", card.Effect{Kind: card.EffectHeal, Amount: -1}, true},
		{"poison needs ticks", card.Effect{Kind: card.EffectPoison, PerTick: 2}, true},
		{"silence needs duration", card.Effect{Kind: card.EffectSilence}, true},
		{"stun", card.Effect{Kind: card.EffectStun}, false},
		{"unknown kind", card.Effect{Kind: "Vanish"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.effect.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEffect_SelfTargeted(t *testing.T) {
	assert.True(t, card.Effect{Kind: card.EffectHeal}.SelfTargeted())
	assert.True(t, card.Effect{Kind: card.EffectBuffDamage}.SelfTargeted())
	assert.True(t, card.Effect{Kind: card.EffectBuffArmor}.SelfTargeted())
	assert.True(t, card.Effect{Kind: card.EffectManaGain}.SelfTargeted())
	assert.False(t, card.Effect{Kind: card.EffectDamage}.SelfTargeted())
	assert.False(t, card.Effect{Kind: card.EffectPoison}.SelfTargeted())
	assert.False(t, card.Effect{Kind: card.EffectSilence}.SelfTargeted())
	assert.False(t, card.Effect{Kind: card.EffectDebuffDamage}.SelfTargeted())
}

func TestCard_JSONFieldNames(t *testing.T) {
	c := card.Card{
		ID:       "bolt",
		Name:     "Bolt",
		ManaCost: 1,
		Damage:   20,
		CardType: card.TypeAttack,
		Effects: []card.EffectEntry{
			{Effect: card.Effect{Kind: card.EffectDamage, Amount: 20, DamageType: card.DamageNormal}},
		},
	}
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id":"bolt","name":"Bolt","manaCost":1,"health":0,"damage":20,
		"cardType":"Attack",
		"effects":[{"effect":{"Damage":{"amount":20,"damageType":"Normal"}}}]
	}`, string(data))

	var got card.Card
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, c, got)
}

func TestCard_Validate(t *testing.T) {
	valid := card.Card{ID: "a", Name: "A", ManaCost: 1, CardType: card.TypeAttack}
	require.NoError(t, valid.Validate())

	noID := valid
	noID.ID = ""
	assert.Error(t, noID.Validate())

	badType := valid
	badType.CardType = "Trap"
	assert.Error(t, badType.Validate())

	negMana := valid
	negMana.ManaCost = -1
	assert.Error(t, negMana.Validate())
}

func TestEffectEntry_ModifierDuration(t *testing.T) {
	two := 2
	assert.Equal(t, 2, card.EffectEntry{Effect: card.Effect{Kind: card.EffectSilence, Duration: 1}, Duration: &two}.ModifierDuration(0))
	assert.Equal(t, 1, card.EffectEntry{Effect: card.Effect{Kind: card.EffectSilence, Duration: 1}}.ModifierDuration(0))
	assert.Equal(t, 5, card.EffectEntry{Effect: card.Effect{Kind: card.EffectDebuffDamage, Amount: 1}}.ModifierDuration(5))
}

func TestSpell_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := card.Spell{
			ID:       rapid.StringMatching(`[a-z]{1,10}`).Draw(t, "id"),
			Name:     rapid.StringMatching(`[A-Za-z ]{1,16}`).Draw(t, "name"),
			ManaCost: rapid.IntRange(0, 10).Draw(t, "cost"),
			Effects: []card.EffectEntry{
				{Effect: card.Effect{
					Kind:       card.EffectDamage,
					Amount:     rapid.IntRange(0, 50).Draw(t, "amount"),
					DamageType: card.DamageType(rapid.SampledFrom([]string{"Normal", "Chaos", "Spell"}).Draw(t, "dtype")),
				}},
			},
		}
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var got card.Spell
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.ID != s.ID || got.ManaCost != s.ManaCost || len(got.Effects) != 1 {
			t.Fatalf("round-trip mismatch: %+v vs %+v", s, got)
		}
	})
}
