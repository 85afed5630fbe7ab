package decision

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Aion-Studio/aion-backend-sub000/internal/game/card"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/combatant"
	"github.com/Aion-Studio/aion-backend-sub000/internal/scripting"
	"github.com/Aion-Studio/aion-backend-sub000/internal/wire"
)

// maxActionsPerTurn caps how many commands the CPU issues in one turn
// so a misbehaving policy cannot stall the encounter.
const maxActionsPerTurn = 10

// CPU drives a monster combatant. It reads the turn-message stream and,
// whenever the turn passes to its seat, plays out a full turn: a Lua
// policy when one is configured, otherwise the built-in greedy spell
// policy. Every turn ends with an EndTurn command, so rejected actions
// never stall the encounter.
type CPU struct {
	monster     *combatant.Combatant
	encounterID string
	policy      *scripting.Policy
	delay       time.Duration
	logger      *zap.Logger

	mu       sync.Mutex
	started  bool
	commands chan<- wire.Command
	results  chan wire.TurnMessage
	done     chan struct{}
}

// NewCPU creates a CPU decision maker for the given monster.
//
// Precondition: monster must be a Monster-variant combatant.
// policy may be nil to select the built-in policy.
func NewCPU(monster *combatant.Combatant, encounterID string, policy *scripting.Policy, delay time.Duration, logger *zap.Logger) *CPU {
	return &CPU{
		monster:     monster,
		encounterID: encounterID,
		policy:      policy,
		delay:       delay,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// ID returns the monster's combatant id.
func (c *CPU) ID() string {
	return c.monster.ID
}

// EncounterID returns the encounter the monster belongs to.
func (c *CPU) EncounterID() string {
	return c.encounterID
}

// CommandSender returns the controller-facing command channel, for
// injecting commands from outside the built-in reader.
//
// Precondition: Start must have been called.
func (c *CPU) CommandSender() chan<- wire.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commands
}

// Start spawns the turn-message reader.
//
// Postcondition: Returns the channel the controller delivers turn
// messages to. Calling Start again returns the same channel.
func (c *CPU) Start(commands chan<- wire.Command, idx wire.Index) chan<- wire.TurnMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return c.results
	}
	c.started = true
	c.commands = commands
	c.results = make(chan wire.TurnMessage, resultBuffer)

	go c.run(c.results, commands, idx)

	return c.results
}

// Shutdown stops the reader task. Idempotent.
func (c *CPU) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// run consumes turn messages, playing a full turn whenever the turn
// reaches the monster's seat and standing down once a winner is
// declared. Error messages are ignored: the turn already ends with
// EndTurn, so a rejected action costs nothing.
func (c *CPU) run(results <-chan wire.TurnMessage, commands chan<- wire.Command, idx wire.Index) {
	var lastState *wire.EncounterState
	for {
		select {
		case <-c.done:
			return
		case msg := <-results:
			switch msg.Kind {
			case wire.MsgEncounterData, wire.MsgCardPlayed:
				lastState = msg.State
			case wire.MsgPlayerTurn:
				if msg.Index == idx {
					c.takeTurn(commands, idx, lastState)
				}
			case wire.MsgWinner:
				return
			}
		}
	}
}

// takeTurn issues the monster's commands for one turn, always finishing
// with EndTurn.
func (c *CPU) takeTurn(commands chan<- wire.Command, idx wire.Index, state *wire.EncounterState) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-c.done:
			return
		}
	}

	self, opponent, round := c.workingState(idx, state)
	for i := 0; i < maxActionsPerTurn; i++ {
		cmd := c.decide(self, opponent, round)
		if cmd.Kind == wire.CmdEndTurn {
			break
		}
		if cmd.Kind == wire.CmdUseSpell && cmd.Spell != nil {
			if !self.SpendMana(cmd.Spell.ManaCost) {
				break
			}
		}
		if !c.send(commands, cmd) {
			return
		}
	}
	c.send(commands, wire.Command{Kind: wire.CmdEndTurn})
}

func (c *CPU) send(commands chan<- wire.Command, cmd wire.Command) bool {
	select {
	case commands <- cmd:
		return true
	case <-c.done:
		return false
	}
}

// decide picks the monster's next action against the working state.
func (c *CPU) decide(self, opponent *combatant.Combatant, round int) wire.Command {
	if c.policy != nil {
		return c.policy.Decide(self, opponent, round)
	}
	for _, s := range self.Spells() {
		if s.ManaCost <= self.Mana {
			clone := card.CloneSpells([]card.Spell{s})[0]
			return wire.Command{Kind: wire.CmdUseSpell, Spell: &clone}
		}
	}
	return wire.Command{Kind: wire.CmdEndTurn}
}

// workingState builds local combatant copies seeded from the last
// authoritative snapshot, so mana bookkeeping across the turn is
// accurate without waiting for echoes.
func (c *CPU) workingState(idx wire.Index, state *wire.EncounterState) (*combatant.Combatant, *combatant.Combatant, int) {
	self := c.monster.Clone()
	opponent := combatant.NewHero("opponent", "Opponent", self.MaxHP, nil)
	round := 1
	if state != nil {
		overlay(self, viewOf(state, idx))
		overlay(opponent, viewOf(state, idx.Opponent()))
		round = state.Round
	}
	return self, opponent, round
}

func viewOf(state *wire.EncounterState, idx wire.Index) wire.CombatantState {
	if idx == wire.Combatant1 {
		return state.PlayerState
	}
	return state.NpcState
}

// overlay copies the authoritative vitals from a snapshot view onto a
// working combatant.
func overlay(c *combatant.Combatant, view wire.CombatantState) {
	switch {
	case view.Player != nil:
		c.HP = view.Player.HP
		c.MaxHP = view.Player.MaxHP
		c.Mana = view.Player.Mana
		c.Armor = view.Player.Armor
	case view.Npc != nil:
		c.HP = view.Npc.HP
		c.MaxHP = view.Npc.MaxHP
		c.Mana = view.Npc.Mana
		c.Armor = view.Npc.Armor
	}
}
