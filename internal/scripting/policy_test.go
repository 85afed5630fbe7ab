package scripting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/card"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/combatant"
	"github.com/Aion-Studio/aion-backend-sub000/internal/scripting"
	"github.com/Aion-Studio/aion-backend-sub000/internal/wire"
)

func testMonster() (*combatant.Combatant, *combatant.Combatant) {
	monster := combatant.NewMonster("monster-1", "Gnarl", 50, 2, 5, 1)
	monster.Mana = 3
	monster.Monster.Spells = []card.Spell{
		{ID: "bolt", Name: "Bolt", ManaCost: 1, Effects: []card.EffectEntry{
			{Effect: card.Effect{Kind: card.EffectDamage, Amount: 10, DamageType: card.DamageNormal}},
		}},
		{ID: "nova", Name: "Nova", ManaCost: 5, Effects: []card.EffectEntry{
			{Effect: card.Effect{Kind: card.EffectDamage, Amount: 30, DamageType: card.DamageSpell}},
		}},
	}
	hero := combatant.NewHero("hero-1", "Kael", 100, nil)
	return monster, hero
}

func TestNewPolicy_RequiresDecide(t *testing.T) {
	_, err := scripting.NewPolicy(`x = 1`, 0, zap.NewNop())
	assert.Error(t, err)

	_, err = scripting.NewPolicy(`syntax error here`, 0, zap.NewNop())
	assert.Error(t, err)

	p, err := scripting.NewPolicy(`function decide(state) return "EndTurn" end`, 0, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestDecide_EndTurnString(t *testing.T) {
	p, err := scripting.NewPolicy(`function decide(state) return "EndTurn" end`, 0, zap.NewNop())
	require.NoError(t, err)

	monster, hero := testMonster()
	cmd := p.Decide(monster, hero, 1)
	assert.Equal(t, wire.CmdEndTurn, cmd.Kind)
}

func TestDecide_UseSpell(t *testing.T) {
	script := `
function decide(state)
  for _, spell in ipairs(state.self.spells) do
    if spell.manaCost <= state.self.mana then
      return {action = "UseSpell", spell = spell.id}
    end
  end
  return "EndTurn"
end`
	p, err := scripting.NewPolicy(script, 0, zap.NewNop())
	require.NoError(t, err)

	monster, hero := testMonster()
	cmd := p.Decide(monster, hero, 1)
	require.Equal(t, wire.CmdUseSpell, cmd.Kind)
	require.NotNil(t, cmd.Spell)
	assert.Equal(t, "bolt", cmd.Spell.ID)
	assert.Equal(t, 1, cmd.Spell.ManaCost)
}

func TestDecide_ReadsOpponentState(t *testing.T) {
	script := `
function decide(state)
  if state.opponent.hp < 20 then
    return {action = "UseSpell", spell = "bolt"}
  end
  return "EndTurn"
end`
	p, err := scripting.NewPolicy(script, 0, zap.NewNop())
	require.NoError(t, err)

	monster, hero := testMonster()
	assert.Equal(t, wire.CmdEndTurn, p.Decide(monster, hero, 1).Kind)

	hero.HP = 10
	assert.Equal(t, wire.CmdUseSpell, p.Decide(monster, hero, 1).Kind)
}

func TestDecide_UnknownSpellFallsBackToEndTurn(t *testing.T) {
	p, err := scripting.NewPolicy(
		`function decide(state) return {action = "UseSpell", spell = "missing"} end`,
		0, zap.NewNop())
	require.NoError(t, err)

	monster, hero := testMonster()
	cmd := p.Decide(monster, hero, 1)
	assert.Equal(t, wire.CmdEndTurn, cmd.Kind)
}

func TestDecide_RuntimeErrorFallsBackToEndTurn(t *testing.T) {
	p, err := scripting.NewPolicy(
		`function decide(state) error("boom") end`,
		0, zap.NewNop())
	require.NoError(t, err)

	monster, hero := testMonster()
	assert.Equal(t, wire.CmdEndTurn, p.Decide(monster, hero, 1).Kind)
}

func TestDecide_InfiniteLoopIsTerminated(t *testing.T) {
	p, err := scripting.NewPolicy(
		`function decide(state) while true do end end`,
		10_000, zap.NewNop())
	require.NoError(t, err)

	monster, hero := testMonster()
	assert.Equal(t, wire.CmdEndTurn, p.Decide(monster, hero, 1).Kind)
}

func TestDecide_SandboxBlocksDangerousGlobals(t *testing.T) {
	p, err := scripting.NewPolicy(
		`function decide(state) loadfile("/etc/passwd") return "EndTurn" end`,
		0, zap.NewNop())
	require.NoError(t, err)

	monster, hero := testMonster()
	// loadfile is nil in the sandbox, so the call raises and we fall back.
	assert.Equal(t, wire.CmdEndTurn, p.Decide(monster, hero, 1).Kind)
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.lua")
	require.NoError(t, os.WriteFile(path,
		[]byte(`function decide(state) return "EndTurn" end`), 0644))

	p, err := scripting.LoadPolicy(path, 0, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = scripting.LoadPolicy(filepath.Join(dir, "missing.lua"), 0, zap.NewNop())
	assert.Error(t, err)
}
