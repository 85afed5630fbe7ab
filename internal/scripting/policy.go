package scripting

import (
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/card"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/combatant"
	"github.com/Aion-Studio/aion-backend-sub000/internal/wire"
)

// Policy evaluates a Lua script to pick a CPU opponent's next command.
//
// Each Decide call runs in a fresh sandboxed LState so a runaway script
// cannot exhaust the instruction budget for later turns.
type Policy struct {
	source    string
	instLimit int
	logger    *zap.Logger
}

// LoadPolicy reads a policy script from disk.
//
// The script must define a global function decide(state) returning
// either the string "EndTurn" or a table {action="UseSpell", spell=id}.
//
// Precondition: path must point to a readable Lua file.
// Postcondition: Returns a Policy whose script compiles, or an error.
func LoadPolicy(path string, instLimit int, logger *zap.Logger) (*Policy, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy script %s: %w", path, err)
	}
	return NewPolicy(string(source), instLimit, logger)
}

// NewPolicy builds a Policy from in-memory Lua source.
//
// Postcondition: Returns an error if the script fails to run or does
// not define a decide function.
func NewPolicy(source string, instLimit int, logger *zap.Logger) (*Policy, error) {
	L := NewSandboxedState(instLimit)
	defer L.Close()

	if err := L.DoString(source); err != nil {
		return nil, fmt.Errorf("loading policy script: %w", err)
	}
	if _, ok := L.GetGlobal("decide").(*lua.LFunction); !ok {
		return nil, fmt.Errorf("policy script does not define decide()")
	}

	return &Policy{source: source, instLimit: instLimit, logger: logger}, nil
}

// Decide evaluates the policy for the given combatant.
//
// Precondition: self must be a participant in the snapshot.
// Postcondition: Returns a well-formed command; script failures fall
// back to EndTurn so combat never stalls on a broken policy.
func (p *Policy) Decide(self *combatant.Combatant, opponent *combatant.Combatant, round int) wire.Command {
	cmd, err := p.decide(self, opponent, round)
	if err != nil {
		p.logger.Warn("policy script failed, ending turn",
			zap.String("combatant_id", self.ID),
			zap.Error(err))
		return wire.Command{Kind: wire.CmdEndTurn}
	}
	return cmd
}

func (p *Policy) decide(self, opponent *combatant.Combatant, round int) (wire.Command, error) {
	L := NewSandboxedState(p.instLimit)
	defer L.Close()

	if err := L.DoString(p.source); err != nil {
		return wire.Command{}, fmt.Errorf("loading policy script: %w", err)
	}
	fn, ok := L.GetGlobal("decide").(*lua.LFunction)
	if !ok {
		return wire.Command{}, fmt.Errorf("policy script does not define decide()")
	}

	state := L.NewTable()
	state.RawSetString("round", lua.LNumber(round))
	state.RawSetString("self", combatantTable(L, self))
	state.RawSetString("opponent", combatantTable(L, opponent))

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, state); err != nil {
		return wire.Command{}, fmt.Errorf("calling decide: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	return commandFromLua(ret, self)
}

func combatantTable(L *lua.LState, c *combatant.Combatant) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(c.ID))
	t.RawSetString("hp", lua.LNumber(c.HP))
	t.RawSetString("maxHp", lua.LNumber(c.MaxHP))
	t.RawSetString("mana", lua.LNumber(c.Mana))
	t.RawSetString("armor", lua.LNumber(c.Armor))

	spells := L.NewTable()
	for _, s := range c.Spells() {
		st := L.NewTable()
		st.RawSetString("id", lua.LString(s.ID))
		st.RawSetString("name", lua.LString(s.Name))
		st.RawSetString("manaCost", lua.LNumber(s.ManaCost))
		spells.Append(st)
	}
	t.RawSetString("spells", spells)
	return t
}

func commandFromLua(v lua.LValue, self *combatant.Combatant) (wire.Command, error) {
	switch ret := v.(type) {
	case lua.LString:
		if string(ret) == "EndTurn" {
			return wire.Command{Kind: wire.CmdEndTurn}, nil
		}
		return wire.Command{}, fmt.Errorf("unknown action %q", string(ret))
	case *lua.LTable:
		action := lua.LVAsString(ret.RawGetString("action"))
		switch action {
		case "EndTurn":
			return wire.Command{Kind: wire.CmdEndTurn}, nil
		case "UseSpell":
			id := lua.LVAsString(ret.RawGetString("spell"))
			for _, s := range self.Spells() {
				if s.ID == id {
					clone := card.CloneSpells([]card.Spell{s})[0]
					return wire.Command{Kind: wire.CmdUseSpell, Spell: &clone}, nil
				}
			}
			return wire.Command{}, fmt.Errorf("unknown spell %q", id)
		default:
			return wire.Command{}, fmt.Errorf("unknown action %q", action)
		}
	default:
		return wire.Command{}, fmt.Errorf("decide returned %s, want string or table", v.Type())
	}
}
