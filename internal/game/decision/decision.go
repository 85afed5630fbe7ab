// Package decision bridges combatant transports to the combat
// controller. Each decision maker is a per-combatant task pair: one
// direction carries commands toward the controller, the other carries
// authoritative turn messages back out.
package decision

import "github.com/Aion-Studio/aion-backend-sub000/internal/wire"

// resultBuffer bounds the outbound turn-message channel so a stalled
// reader cannot block the controller.
const resultBuffer = 64

// DecisionMaker is the uniform capability set shared by player-backed
// and CPU-backed combatants.
type DecisionMaker interface {
	// ID returns the combatant id this decision maker acts for.
	ID() string

	// Start begins bridging. Commands the combatant issues are written
	// to commands; idx is the combatant's seat in the encounter. The
	// returned channel is where the controller delivers turn messages.
	//
	// Precondition: Start must be called at most once.
	Start(commands chan<- wire.Command, idx wire.Index) chan<- wire.TurnMessage

	// Shutdown stops all bridging tasks. Idempotent.
	Shutdown()
}
