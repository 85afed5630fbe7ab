package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aion-Studio/aion-backend-sub000/internal/events"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/combatant"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/decision"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/dice"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/encounter"
	"github.com/Aion-Studio/aion-backend-sub000/internal/scripting"
	"github.com/Aion-Studio/aion-backend-sub000/internal/storage"
	"github.com/Aion-Studio/aion-backend-sub000/internal/wire"
)

// inboxCapacity bounds the controller inbox; senders back-pressure when
// it fills.
const inboxCapacity = 100

// ErrShuttingDown is returned by Send when the controller has stopped.
var ErrShuttingDown = errors.New("controller shutting down")

// Deps are the controller's collaborators.
type Deps struct {
	Store  storage.EncounterStore
	Bus    events.Bus
	Logger *zap.Logger

	// Rules defaults to encounter.DefaultRules() when zero.
	Rules encounter.Rules
	// Dice defaults to a crypto-backed source when nil.
	Dice dice.Source
	// Policy optionally scripts CPU opponents.
	Policy *scripting.Policy
	// CPUTurnDelay is the pause before a CPU opponent acts.
	CPUTurnDelay time.Duration
	// InboxCapacity bounds the controller inbox; 0 uses the default.
	InboxCapacity int
}

// Controller is the single-writer combat actor.
type Controller struct {
	deps  Deps
	inbox chan Message
	done  chan struct{}
	state *sharedState
}

// New creates a Controller. Run must be called for messages to be
// processed.
//
// Precondition: deps.Store and deps.Logger must be non-nil.
func New(deps Deps) *Controller {
	if deps.Rules == (encounter.Rules{}) {
		deps.Rules = encounter.DefaultRules()
	}
	if deps.Dice == nil {
		deps.Dice = dice.NewCryptoSource()
	}
	if deps.InboxCapacity <= 0 {
		deps.InboxCapacity = inboxCapacity
	}
	return &Controller{
		deps:  deps,
		inbox: make(chan Message, deps.InboxCapacity),
		done:  make(chan struct{}),
		state: newSharedState(),
	}
}

// Send enqueues a message, back-pressuring when the inbox is full.
//
// Postcondition: Returns ctx.Err() on cancellation or ErrShuttingDown
// once the controller has stopped.
func (c *Controller) Send(ctx context.Context, msg Message) error {
	select {
	case <-c.done:
		return ErrShuttingDown
	default:
	}
	select {
	case c.inbox <- msg:
		return nil
	case <-c.done:
		return ErrShuttingDown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestEncounterState asks for the combatant's opening snapshot,
// initializing the encounter on first contact.
//
// Postcondition: Returns (nil, nil) when the combatant has no stored
// encounter.
func (c *Controller) RequestEncounterState(ctx context.Context, combatantID string) (*StateReply, error) {
	reply := make(chan *StateReply, 1)
	if err := c.Send(ctx, RequestState{CombatantID: combatantID, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-c.done:
		return nil, ErrShuttingDown
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run consumes the inbox until ctx is cancelled, then shuts down every
// registered decision maker and runner.
//
// Precondition: Run must be called exactly once.
func (c *Controller) Run(ctx context.Context) {
	defer c.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.inbox:
			c.handle(ctx, msg)
		}
	}
}

func (c *Controller) shutdown() {
	close(c.done)
	for id := range c.state.decisionMakers {
		c.state.drop(id)
	}
}

// handle dispatches one inbox message. All sharedState access happens
// here.
func (c *Controller) handle(ctx context.Context, msg Message) {
	switch m := msg.(type) {
	case EncounterCheck:
		_, err := c.deps.Store.LoadByCombatant(ctx, m.CombatantID)
		replyTo(m.Reply, err == nil)
	case AddEncounter:
		replyTo(m.Reply, c.deps.Store.Store(ctx, m.Encounter))
	case RemoveEncounter:
		replyTo(m.Reply, c.removeEncounter(ctx, m.EncounterID))
	case CreateNpcEncounter:
		enc, err := c.createNpcEncounter(ctx, m.Hero, m.Monster, m.ActionID)
		replyTo(m.Reply, CreateNpcEncounterResult{Encounter: enc, Err: err})
	case GetEncounter:
		enc, err := c.deps.Store.Load(ctx, m.EncounterID)
		replyTo(m.Reply, GetEncounterResult{Encounter: enc, Err: err})
	case GetCombatant:
		cb, err := c.getCombatant(ctx, m.CombatantID)
		replyTo(m.Reply, GetCombatantResult{Combatant: cb, Err: err})
	case AddDecisionMaker:
		c.state.decisionMakers[m.DM.ID()] = m.DM
		replyTo(m.Reply, struct{}{})
	case RemoveSingleDecisionMaker:
		c.state.drop(m.CombatantID)
	case RemoveDecisionMakers:
		c.removeDecisionMakers(ctx, m.EncounterID)
		replyTo(m.Reply, struct{}{})
	case StartEncounterForCombatant:
		c.startRunner(ctx, m.CombatantID)
	case RequestState:
		replyTo(m.Reply, c.requestState(ctx, m.CombatantID))
	case Combat:
		c.handleCombat(ctx, m)
	case SendMsgsToPlayer:
		c.sendMsgsToPlayer(ctx, m.CombatantID, m.Result)
	case NotifyPlayers:
		c.notifyPlayers(ctx, m.SenderID, m.Message)
	case CleanupEncounter:
		c.cleanupEncounter(ctx, m.EncounterID)
	default:
		c.deps.Logger.Error("unknown controller message",
			zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// replyTo is a best-effort one-shot reply. A caller that dropped its
// receiver must not deadlock the handler.
func replyTo[T any](ch chan<- T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
	}
}

func (c *Controller) removeEncounter(ctx context.Context, encounterID string) error {
	enc, err := c.deps.Store.Load(ctx, encounterID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	return c.deps.Store.Remove(ctx, enc)
}

func (c *Controller) createNpcEncounter(ctx context.Context, hero, monster *combatant.Combatant, actionID string) (*encounter.Encounter, error) {
	enc, err := encounter.New(uuid.NewString(), hero, monster, actionID)
	if err != nil {
		return nil, err
	}
	if err := c.deps.Store.Store(ctx, enc); err != nil {
		return nil, fmt.Errorf("persisting encounter %s: %w", enc.ID, err)
	}
	return enc, nil
}

func (c *Controller) getCombatant(ctx context.Context, combatantID string) (*combatant.Combatant, error) {
	enc, err := c.deps.Store.LoadByCombatant(ctx, combatantID)
	if err != nil {
		return nil, err
	}
	cb, ok := enc.CombatantByID(combatantID)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cb, nil
}

func (c *Controller) removeDecisionMakers(ctx context.Context, encounterID string) {
	enc, err := c.deps.Store.Load(ctx, encounterID)
	if err != nil {
		// The encounter may already be gone; drop any CPU decision
		// makers still pointing at it.
		for id, dm := range c.state.decisionMakers {
			if cpu, ok := dm.(*decision.CPU); ok && cpu.EncounterID() == encounterID {
				c.state.drop(id)
			}
		}
		return
	}
	for _, id := range enc.CombatantIDs() {
		c.state.drop(id)
	}
}

// requestState lazily initializes the encounter and returns its opening
// snapshot, or nil when the combatant has no encounter.
func (c *Controller) requestState(ctx context.Context, combatantID string) *StateReply {
	enc, err := c.deps.Store.LoadByCombatant(ctx, combatantID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.deps.Logger.Error("loading encounter for state request",
				zap.String("combatant_id", combatantID), zap.Error(err))
		}
		return nil
	}
	if !enc.Initialized {
		enc.Initialize(c.deps.Dice, c.deps.Rules)
		if err := c.deps.Store.Store(ctx, enc); err != nil {
			c.deps.Logger.Error("persisting initialized encounter",
				zap.String("encounter_id", enc.ID), zap.Error(err))
			return nil
		}
	}
	return &StateReply{
		Message:  wire.EncounterData(enc.Snapshot()),
		ActionID: enc.ActionID,
	}
}

// handleCombat interprets EnterBattle and LeaveBattle and forwards
// gameplay commands to the rules engine.
func (c *Controller) handleCombat(ctx context.Context, m Combat) {
	switch m.Command.Kind {
	case wire.CmdEnterBattle:
		c.enterBattle(ctx, m.FromID, m.DM)
	case wire.CmdLeaveBattle:
		c.leaveBattle(ctx, m.FromID)
	default:
		c.processCommand(ctx, m.FromID, m.Command)
	}
}

// enterBattle registers the joining decision maker, attaches a CPU
// opponent when the other seat is a monster without one, starts both
// runners, and initializes the encounter.
func (c *Controller) enterBattle(ctx context.Context, fromID string, dm decision.DecisionMaker) {
	if dm != nil {
		// A reconnect replaces any stale registration, runner included.
		if _, exists := c.state.decisionMakers[fromID]; exists {
			c.state.drop(fromID)
		}
		c.state.decisionMakers[fromID] = dm
	}

	enc, err := c.deps.Store.LoadByCombatant(ctx, fromID)
	if err != nil {
		c.deps.Logger.Warn("enter battle without encounter",
			zap.String("combatant_id", fromID), zap.Error(err))
		return
	}

	opponent, ok := enc.Opponent(fromID)
	if !ok {
		return
	}
	if opponent.Kind == combatant.KindMonster {
		if _, exists := c.state.decisionMakers[opponent.ID]; !exists {
			cpu := decision.NewCPU(opponent.Clone(), enc.ID, c.deps.Policy, c.deps.CPUTurnDelay, c.deps.Logger)
			c.state.decisionMakers[opponent.ID] = cpu
			c.startRunner(ctx, opponent.ID)
		}
	}
	c.startRunner(ctx, fromID)

	if !enc.Initialized {
		enc.Initialize(c.deps.Dice, c.deps.Rules)
	}
	if err := c.deps.Store.Store(ctx, enc); err != nil {
		c.deps.Logger.Error("persisting encounter on enter battle",
			zap.String("encounter_id", enc.ID), zap.Error(err))
	}
}

// leaveBattle resolves the forfeit, announces the winner, and cleans
// up.
func (c *Controller) leaveBattle(ctx context.Context, fromID string) {
	enc, err := c.deps.Store.LoadByCombatant(ctx, fromID)
	if err != nil {
		c.deps.Logger.Warn("leave battle without encounter",
			zap.String("combatant_id", fromID), zap.Error(err))
		return
	}

	res, err := enc.ProcessTurn(wire.Command{Kind: wire.CmdLeaveBattle}, fromID)
	if err == nil {
		c.notifyPlayers(ctx, fromID, res.Message)
	}
	c.cleanupEncounter(ctx, enc.ID)
}

// processCommand runs one gameplay command through the rules engine,
// persists the outcome, and broadcasts it.
func (c *Controller) processCommand(ctx context.Context, fromID string, cmd wire.Command) {
	enc, err := c.deps.Store.LoadByCombatant(ctx, fromID)
	if err != nil {
		c.deliver(fromID, wire.ErrorMessage("encounter not found"))
		return
	}

	res, err := enc.ProcessTurn(cmd, fromID)
	if err != nil {
		c.deps.Logger.Info("rejected combat command",
			zap.String("combatant_id", fromID),
			zap.String("command", string(cmd.Kind)),
			zap.Error(err))
		c.deliver(fromID, wire.ErrorMessage(err.Error()))
		return
	}

	// Persist before anything becomes observable.
	if err := c.deps.Store.Store(ctx, enc); err != nil {
		c.deps.Logger.Error("persisting encounter transition",
			zap.String("encounter_id", enc.ID), zap.Error(err))
		c.deliver(fromID, wire.ErrorMessage("persistence failure, retry"))
		return
	}

	if res.Winner != nil {
		c.notifyPlayers(ctx, fromID, res.Message)
		c.cleanupEncounter(ctx, enc.ID)
		return
	}

	// The snapshot broadcast goes out first so both sides observe the
	// transition before any turn handoff. Turn handoffs concern both
	// sides; other results go to the actor alone.
	c.broadcastSnapshot(enc, fromID)
	c.deliver(fromID, res.Message)
	if res.Message.Kind == wire.MsgPlayerTurn {
		if opponent, ok := enc.Opponent(fromID); ok {
			c.deliver(opponent.ID, res.Message)
		}
	}
}

// sendMsgsToPlayer delivers a result to the combatant plus the
// authoritative snapshot to both participants.
func (c *Controller) sendMsgsToPlayer(ctx context.Context, combatantID string, result wire.TurnMessage) {
	c.deliver(combatantID, result)
	enc, err := c.deps.Store.LoadByCombatant(ctx, combatantID)
	if err != nil {
		return
	}
	c.broadcastSnapshot(enc, combatantID)
}

// notifyPlayers delivers one message to the sender and their opponent.
func (c *Controller) notifyPlayers(ctx context.Context, senderID string, msg wire.TurnMessage) {
	c.deliver(senderID, msg)
	enc, err := c.deps.Store.LoadByCombatant(ctx, senderID)
	if err != nil {
		return
	}
	if opponent, ok := enc.Opponent(senderID); ok {
		c.deliver(opponent.ID, msg)
	}
}

// broadcastSnapshot sends the authoritative encounter snapshot to both
// participants.
func (c *Controller) broadcastSnapshot(enc *encounter.Encounter, senderID string) {
	snapshot := wire.EncounterData(enc.Snapshot())
	c.deliver(senderID, snapshot)
	if opponent, ok := enc.Opponent(senderID); ok {
		c.deliver(opponent.ID, snapshot)
	}
}

// deliver pushes a turn message to a combatant's result sender without
// blocking the handler.
func (c *Controller) deliver(combatantID string, msg wire.TurnMessage) {
	sender, ok := c.state.resultSenders[combatantID]
	if !ok {
		return
	}
	select {
	case sender <- msg:
	default:
		c.deps.Logger.Warn("result sender full, dropping turn message",
			zap.String("combatant_id", combatantID),
			zap.String("kind", string(msg.Kind)))
	}
}

// cleanupEncounter removes decision makers then the encounter itself.
func (c *Controller) cleanupEncounter(ctx context.Context, encounterID string) {
	c.removeDecisionMakers(ctx, encounterID)
	if err := c.removeEncounter(ctx, encounterID); err != nil {
		c.deps.Logger.Error("removing encounter",
			zap.String("encounter_id", encounterID), zap.Error(err))
	}
}

// startRunner wires a decision maker into the encounter: starts its
// bridge, registers the result sender, and spawns the command loop.
func (c *Controller) startRunner(ctx context.Context, combatantID string) {
	dm, ok := c.state.decisionMakers[combatantID]
	if !ok {
		c.deps.Logger.Warn("no decision maker registered",
			zap.String("combatant_id", combatantID))
		return
	}
	if _, running := c.state.shutdownNotifiers[combatantID]; running {
		return
	}

	enc, err := c.deps.Store.LoadByCombatant(ctx, combatantID)
	if err != nil {
		c.deps.Logger.Warn("starting runner without encounter",
			zap.String("combatant_id", combatantID), zap.Error(err))
		return
	}
	idx, ok := enc.IndexOf(combatantID)
	if !ok {
		return
	}

	notifier := make(chan struct{})
	commands := make(chan wire.Command, inboxCapacity)
	results := dm.Start(commands, idx)

	c.state.resultSenders[combatantID] = results
	c.state.shutdownNotifiers[combatantID] = notifier

	go c.runLoop(combatantID, commands, notifier)
}

// runLoop forwards the combatant's commands into the inbox until the
// shutdown notifier fires. Serializing through the inbox keeps runners
// from racing on encounter state.
func (c *Controller) runLoop(combatantID string, commands <-chan wire.Command, notifier <-chan struct{}) {
	ctx := context.Background()
	for {
		select {
		case <-notifier:
			return
		case <-c.done:
			return
		case cmd := <-commands:
			if err := c.Send(ctx, Combat{Command: cmd, FromID: combatantID}); err != nil {
				return
			}
		}
	}
}
