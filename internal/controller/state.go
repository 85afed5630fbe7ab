package controller

import (
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/decision"
	"github.com/Aion-Studio/aion-backend-sub000/internal/wire"
)

// sharedState is the in-memory registry owned exclusively by the
// controller task. No lock: every access happens inside the inbox
// handler.
type sharedState struct {
	decisionMakers    map[string]decision.DecisionMaker
	resultSenders     map[string]chan<- wire.TurnMessage
	shutdownNotifiers map[string]chan struct{}
}

func newSharedState() *sharedState {
	return &sharedState{
		decisionMakers:    make(map[string]decision.DecisionMaker),
		resultSenders:     make(map[string]chan<- wire.TurnMessage),
		shutdownNotifiers: make(map[string]chan struct{}),
	}
}

// drop shuts down and removes everything registered for the combatant.
func (s *sharedState) drop(combatantID string) {
	if dm, ok := s.decisionMakers[combatantID]; ok {
		dm.Shutdown()
		delete(s.decisionMakers, combatantID)
	}
	if notifier, ok := s.shutdownNotifiers[combatantID]; ok {
		close(notifier)
		delete(s.shutdownNotifiers, combatantID)
	}
	delete(s.resultSenders, combatantID)
}
