// Package controller implements the single-writer combat actor: one
// task owns all decision-maker registrations and serializes every
// encounter transition through a typed inbox.
package controller

import (
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/combatant"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/decision"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/encounter"
	"github.com/Aion-Studio/aion-backend-sub000/internal/wire"
)

// Message is a controller inbox message. Each carries a one-shot reply
// channel where the caller expects a value; replies are best-effort so
// a caller that dropped its receiver cannot deadlock the handler.
type Message interface {
	controllerMessage()
}

// EncounterCheck asks whether an active encounter exists for the
// combatant.
type EncounterCheck struct {
	CombatantID string
	Reply       chan<- bool
}

// AddEncounter persists and indexes a freshly constructed encounter.
type AddEncounter struct {
	Encounter *encounter.Encounter
	Reply     chan<- error
}

// RemoveEncounter deletes the encounter and its combatant index
// entries.
type RemoveEncounter struct {
	EncounterID string
	Reply       chan<- error
}

// CreateNpcEncounter builds and persists a hero-versus-monster
// encounter.
type CreateNpcEncounter struct {
	Hero     *combatant.Combatant
	Monster  *combatant.Combatant
	ActionID string
	Reply    chan<- CreateNpcEncounterResult
}

// CreateNpcEncounterResult carries the created encounter or the error
// that prevented it.
type CreateNpcEncounterResult struct {
	Encounter *encounter.Encounter
	Err       error
}

// GetEncounter is a read-only encounter lookup through persistence.
type GetEncounter struct {
	EncounterID string
	Reply       chan<- GetEncounterResult
}

// GetEncounterResult carries the loaded encounter or an error.
type GetEncounterResult struct {
	Encounter *encounter.Encounter
	Err       error
}

// GetCombatant is a read-only combatant lookup through persistence.
type GetCombatant struct {
	CombatantID string
	Reply       chan<- GetCombatantResult
}

// GetCombatantResult carries the loaded combatant or an error.
type GetCombatantResult struct {
	Combatant *combatant.Combatant
	Err       error
}

// AddDecisionMaker registers a decision maker in shared state.
type AddDecisionMaker struct {
	DM    decision.DecisionMaker
	Reply chan<- struct{}
}

// RemoveSingleDecisionMaker notifies shutdown and drops the handle for
// one combatant.
type RemoveSingleDecisionMaker struct {
	CombatantID string
}

// RemoveDecisionMakers drops the decision makers for every combatant in
// the encounter.
type RemoveDecisionMakers struct {
	EncounterID string
	Reply       chan<- struct{}
}

// StartEncounterForCombatant spawns the per-combatant runner loop.
type StartEncounterForCombatant struct {
	CombatantID string
}

// RequestState lazily initializes the combatant's encounter and returns
// its opening snapshot.
type RequestState struct {
	CombatantID string
	Reply       chan<- *StateReply
}

// StateReply is the opening snapshot plus the encounter's quest action
// tag. A nil *StateReply means no encounter exists for the combatant.
type StateReply struct {
	Message  wire.TurnMessage
	ActionID string
}

// Combat carries a combatant's command. EnterBattle additionally
// carries the decision maker to register; all other kinds are gameplay
// commands forwarded from a runner.
type Combat struct {
	Command wire.Command
	FromID  string
	DM      decision.DecisionMaker
}

// SendMsgsToPlayer delivers a result to one combatant and the
// authoritative snapshot to both participants.
type SendMsgsToPlayer struct {
	CombatantID string
	Result      wire.TurnMessage
}

// NotifyPlayers delivers one message to the sender and their opponent.
type NotifyPlayers struct {
	Message  wire.TurnMessage
	SenderID string
}

// CleanupEncounter removes the encounter's decision makers and then the
// encounter itself.
type CleanupEncounter struct {
	EncounterID string
}

func (EncounterCheck) controllerMessage()             {}
func (AddEncounter) controllerMessage()               {}
func (RemoveEncounter) controllerMessage()            {}
func (CreateNpcEncounter) controllerMessage()         {}
func (GetEncounter) controllerMessage()               {}
func (GetCombatant) controllerMessage()               {}
func (AddDecisionMaker) controllerMessage()           {}
func (RemoveSingleDecisionMaker) controllerMessage()  {}
func (RemoveDecisionMakers) controllerMessage()       {}
func (StartEncounterForCombatant) controllerMessage() {}
func (RequestState) controllerMessage()               {}
func (Combat) controllerMessage()                     {}
func (SendMsgsToPlayer) controllerMessage()           {}
func (NotifyPlayers) controllerMessage()              {}
func (CleanupEncounter) controllerMessage()           {}
