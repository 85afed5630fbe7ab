package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/Aion-Studio/aion-backend-sub000/internal/config"
	"github.com/Aion-Studio/aion-backend-sub000/internal/content"
	"github.com/Aion-Studio/aion-backend-sub000/internal/controller"
	"github.com/Aion-Studio/aion-backend-sub000/internal/events"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/decision"
	"github.com/Aion-Studio/aion-backend-sub000/internal/wire"
)

// CombatServer exposes encounters over WebSocket. Each connection is
// one combatant's seat: inbound frames are combat commands, outbound
// frames are turn messages, both in the combat JSON encoding.
type CombatServer struct {
	cfg     config.ServerConfig
	ctrl    *controller.Controller
	bus     events.Bus
	catalog *content.Catalog
	logger  *zap.Logger
	http    *http.Server
}

// NewCombatServer creates the WebSocket server.
//
// Precondition: ctrl and logger must be non-nil. bus may be nil when
// quest completion events are not wanted; catalog may be nil to disable
// encounter creation over HTTP.
func NewCombatServer(cfg config.ServerConfig, ctrl *controller.Controller, bus events.Bus, catalog *content.Catalog, logger *zap.Logger) *CombatServer {
	s := &CombatServer{
		cfg:     cfg,
		ctrl:    ctrl,
		bus:     bus,
		catalog: catalog,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /encounters", s.handleCreateEncounter)
	mux.HandleFunc("GET /combat/{combatantID}", s.handleCombat)

	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadTimeout,
	}
	return s
}

// Start runs the HTTP listener. It blocks until Stop is called or the
// listener fails.
func (s *CombatServer) Start() error {
	s.logger.Info("combat server listening", zap.String("addr", s.cfg.Addr()))
	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("combat server: %w", err)
	}
	return nil
}

// Stop drains in-flight connections within the configured grace period.
func (s *CombatServer) Stop() {
	grace := s.cfg.ShutdownGracePeriod
	if grace <= 0 {
		grace = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("combat server shutdown", zap.Error(err))
	}
}

func (s *CombatServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type createEncounterRequest struct {
	HeroID          string `json:"heroId"`
	HeroTemplate    string `json:"heroTemplate"`
	MonsterTemplate string `json:"monsterTemplate"`
	ActionID        string `json:"actionId"`
}

type createEncounterResponse struct {
	EncounterID string `json:"encounterId"`
	HeroID      string `json:"heroId"`
	MonsterID   string `json:"monsterId"`
}

// handleCreateEncounter stamps a hero and a monster from the content
// catalog and stores a fresh encounter between them.
func (s *CombatServer) handleCreateEncounter(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		http.Error(w, "encounter creation disabled", http.StatusNotImplemented)
		return
	}

	var req createEncounterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	heroID := req.HeroID
	if heroID == "" {
		heroID = uuid.NewString()
	}

	hero, err := s.catalog.NewHero(req.HeroTemplate, heroID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	monster, err := s.catalog.NewMonster(req.MonsterTemplate, uuid.NewString())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	reply := make(chan controller.CreateNpcEncounterResult, 1)
	if err := s.ctrl.Send(ctx, controller.CreateNpcEncounter{
		Hero:     hero,
		Monster:  monster,
		ActionID: req.ActionID,
		Reply:    reply,
	}); err != nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	var res controller.CreateNpcEncounterResult
	select {
	case res = <-reply:
	case <-ctx.Done():
		return
	}
	if res.Err != nil {
		s.logger.Warn("creating encounter", zap.Error(res.Err))
		http.Error(w, res.Err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createEncounterResponse{
		EncounterID: res.Encounter.ID,
		HeroID:      hero.ID,
		MonsterID:   monster.ID,
	})
}

// handleCombat seats one combatant. The combatant must already be in a
// stored encounter; the first frame must be the EnterBattle command.
func (s *CombatServer) handleCombat(w http.ResponseWriter, r *http.Request) {
	combatantID := r.PathValue("combatantID")
	ctx := r.Context()

	opening, err := s.ctrl.RequestEncounterState(ctx, combatantID)
	if err != nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	if opening == nil {
		http.Error(w, "no encounter for combatant", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin policy is the proxy's job
	})
	if err != nil {
		s.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	cmd, err := readCommand(ctx, conn)
	if err != nil || cmd.Kind != wire.CmdEnterBattle {
		writeMessage(ctx, conn, wire.ErrorMessage("first frame must be EnterBattle"))
		conn.Close(websocket.StatusPolicyViolation, "expected EnterBattle")
		return
	}

	player := decision.NewPlayer(combatantID, opening.ActionID, s.bus, s.logger)
	if err := s.ctrl.Send(ctx, controller.Combat{
		Command: wire.Command{Kind: wire.CmdEnterBattle},
		FromID:  combatantID,
		DM:      player,
	}); err != nil {
		return
	}

	// The opening snapshot goes out before the writer task owns the
	// connection.
	if err := writeMessage(ctx, conn, opening.Message); err != nil {
		return
	}

	// Protocol errors flow through the same writer as turn messages so
	// the connection has a single writing task.
	protocolErrs := make(chan wire.TurnMessage, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, conn, player.Outbound(), protocolErrs)
	}()

	s.readLoop(ctx, conn, combatantID, player, protocolErrs)

	// The seat is vacated but the encounter stays stored, so the
	// combatant can reconnect and resume.
	_ = s.ctrl.Send(context.Background(), controller.RemoveSingleDecisionMaker{CombatantID: combatantID})
	<-writerDone
}

// readLoop decodes inbound frames into commands. Malformed frames are
// reported back and the seat stays alive.
func (s *CombatServer) readLoop(ctx context.Context, conn *websocket.Conn, combatantID string, player *decision.Player, protocolErrs chan<- wire.TurnMessage) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			s.logger.Info("combatant disconnected",
				zap.String("combatant_id", combatantID))
			return
		}
		var cmd wire.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.logger.Debug("malformed command frame",
				zap.String("combatant_id", combatantID), zap.Error(err))
			select {
			case protocolErrs <- wire.ErrorMessage("malformed command"):
			default:
			}
			continue
		}
		select {
		case player.Inbound() <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

// writeLoop owns the connection's write side until the outbound stream
// closes.
func (s *CombatServer) writeLoop(ctx context.Context, conn *websocket.Conn, outbound <-chan wire.TurnMessage, protocolErrs <-chan wire.TurnMessage) {
	for {
		select {
		case msg, ok := <-outbound:
			if !ok {
				return
			}
			if err := writeMessage(ctx, conn, msg); err != nil {
				return
			}
		case msg := <-protocolErrs:
			if err := writeMessage(ctx, conn, msg); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func readCommand(ctx context.Context, conn *websocket.Conn) (wire.Command, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return wire.Command{}, err
	}
	var cmd wire.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return wire.Command{}, err
	}
	return cmd, nil
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg wire.TurnMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
