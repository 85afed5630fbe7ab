package decision

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Aion-Studio/aion-backend-sub000/internal/events"
	"github.com/Aion-Studio/aion-backend-sub000/internal/wire"
)

// Player bridges a human combatant's transport to the controller.
//
// The transport writes commands through Inbound and reads turn messages
// from Outbound. Between them sit two tasks: a forwarder pushing
// commands toward the controller and an interceptor that watches for a
// winning terminal message before relaying traffic out.
type Player struct {
	id       string
	actionID string
	bus      events.Bus
	logger   *zap.Logger

	inbound  chan wire.Command
	outbound chan wire.TurnMessage
	results  chan wire.TurnMessage

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// NewPlayer creates a player decision maker.
//
// Precondition: id must be non-empty; logger must be non-nil. bus may
// be nil when the encounter has no quest action attached.
func NewPlayer(id, actionID string, bus events.Bus, logger *zap.Logger) *Player {
	return &Player{
		id:       id,
		actionID: actionID,
		bus:      bus,
		logger:   logger,
		inbound:  make(chan wire.Command, resultBuffer),
		outbound: make(chan wire.TurnMessage, resultBuffer),
		done:     make(chan struct{}),
	}
}

// ID returns the combatant id.
func (p *Player) ID() string {
	return p.id
}

// Inbound is the channel the transport writes the player's commands to.
func (p *Player) Inbound() chan<- wire.Command {
	return p.inbound
}

// Outbound is the channel the transport reads turn messages from. It is
// closed when the decision maker shuts down.
func (p *Player) Outbound() <-chan wire.TurnMessage {
	return p.outbound
}

// Start spawns the forwarding and interception tasks.
//
// Postcondition: Returns the channel the controller delivers turn
// messages to. Calling Start again returns the same channel.
func (p *Player) Start(commands chan<- wire.Command, idx wire.Index) chan<- wire.TurnMessage {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return p.results
	}
	p.started = true
	p.results = make(chan wire.TurnMessage, resultBuffer)

	go p.forward(commands)
	go p.intercept(idx)

	return p.results
}

// forward relays transport commands to the controller until shutdown.
func (p *Player) forward(commands chan<- wire.Command) {
	for {
		select {
		case <-p.done:
			return
		case cmd := <-p.inbound:
			select {
			case commands <- cmd:
			case <-p.done:
				return
			}
		}
	}
}

// intercept relays turn messages to the transport, publishing a quest
// completion when this player wins a quest-tagged encounter. On shutdown
// it drains the results buffer so a terminal message delivered just
// before teardown still reaches the transport.
func (p *Player) intercept(idx wire.Index) {
	defer close(p.outbound)
	for {
		select {
		case <-p.done:
			p.drain(idx)
			return
		case msg := <-p.results:
			p.relay(idx, msg)
		}
	}
}

func (p *Player) drain(idx wire.Index) {
	for {
		select {
		case msg := <-p.results:
			p.relay(idx, msg)
		default:
			return
		}
	}
}

func (p *Player) relay(idx wire.Index, msg wire.TurnMessage) {
	if msg.Kind == wire.MsgWinner && msg.Index == idx && p.actionID != "" && p.bus != nil {
		p.bus.PublishQuestActionCompleted(events.QuestActionCompleted{
			HeroID:   p.id,
			ActionID: p.actionID,
		})
	}
	select {
	case p.outbound <- msg:
	default:
		p.logger.Warn("dropping turn message, outbound buffer full",
			zap.String("combatant_id", p.id),
			zap.String("kind", string(msg.Kind)))
	}
}

// Shutdown stops both tasks. The outbound channel closes so the
// transport writer observes EOF.
func (p *Player) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.done:
	default:
		close(p.done)
	}
}
