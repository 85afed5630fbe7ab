package server

import (
	"context"
	"encoding/json"
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"nhooyr.io/websocket"

	"github.com/Aion-Studio/aion-backend-sub000/internal/config"
	"github.com/Aion-Studio/aion-backend-sub000/internal/content"
	"github.com/Aion-Studio/aion-backend-sub000/internal/controller"
	"github.com/Aion-Studio/aion-backend-sub000/internal/events"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/card"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/combatant"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/dice"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/encounter"
	"github.com/Aion-Studio/aion-backend-sub000/internal/storage/memory"
	"github.com/Aion-Studio/aion-backend-sub000/internal/wire"
)

type wsTestEnv struct {
	ts   *httptest.Server
	ctrl *controller.Controller
	bus  *events.ChannelBus
}

func setupWSTest(t *testing.T) *wsTestEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	bus := events.NewChannelBus(logger, 8)
	t.Cleanup(bus.Close)

	ctrl := controller.New(controller.Deps{
		Store:  store,
		Bus:    bus,
		Logger: logger,
		Dice:   dice.NewSequenceSource(0),
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ctrl.Run(ctx)

	hero := combatant.NewHero("hero-1", "Kael", 60, []card.Card{
		{ID: "jab", Name: "Jab", ManaCost: 1, CardType: card.TypeAttack, Effects: []card.EffectEntry{
			{Effect: card.Effect{Kind: card.EffectDamage, Amount: 3, DamageType: card.DamageNormal}},
		}},
	})
	monster := combatant.NewMonster("monster-1", "Gnarl", 40, 2, 5, 1)
	monster.Monster.Spells = []card.Spell{
		{ID: "claw", Name: "Claw", ManaCost: 1, Effects: []card.EffectEntry{
			{Effect: card.Effect{Kind: card.EffectDamage, Amount: 4, DamageType: card.DamageNormal}},
		}},
	}
	enc, err := encounter.New("enc-ws", hero, monster, "action-ws")
	require.NoError(t, err)
	require.NoError(t, store.Store(context.Background(), enc))

	catalog, err := content.LoadCatalogFromDir(filepath.Join("..", "..", "content"))
	require.NoError(t, err)

	srv := NewCombatServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, ctrl, bus, catalog, logger)
	ts := httptest.NewServer(srv.http.Handler)
	t.Cleanup(ts.Close)

	return &wsTestEnv{ts: ts, ctrl: ctrl, bus: bus}
}

func wsURL(ts *httptest.Server, combatantID string) string {
	return strings.Replace(ts.URL, "http://", "ws://", 1) + "/combat/" + combatantID
}

func dialSeat(ctx context.Context, t *testing.T, env *wsTestEnv, combatantID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, wsURL(env.ts, combatantID), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func wsSend(ctx context.Context, t *testing.T, conn *websocket.Conn, cmd wire.Command) {
	t.Helper()
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func wsRead(ctx context.Context, t *testing.T, conn *websocket.Conn) wire.TurnMessage {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg wire.TurnMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// wsReadKind reads frames until one of the wanted kind arrives.
func wsReadKind(ctx context.Context, t *testing.T, conn *websocket.Conn, kind wire.TurnMessageKind) wire.TurnMessage {
	t.Helper()
	for {
		msg := wsRead(ctx, t, conn)
		if msg.Kind == kind {
			return msg
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := setupWSTest(t)
	resp, err := http.Get(env.ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCombatRejectsUnknownCombatant(t *testing.T) {
	env := setupWSTest(t)
	resp, err := http.Get(env.ts.URL + "/combat/stranger")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCombatSeatOpensWithSnapshot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	env := setupWSTest(t)

	conn := dialSeat(ctx, t, env, "hero-1")
	wsSend(ctx, t, conn, wire.Command{Kind: wire.CmdEnterBattle})

	opening := wsRead(ctx, t, conn)
	assert.Equal(t, wire.MsgEncounterData, opening.Kind)
	require.NotNil(t, opening.State)
	assert.Equal(t, 1, opening.State.Round)
	require.NotNil(t, opening.State.PlayerState.Player)
	assert.Len(t, opening.State.PlayerState.Player.DrawnCards, 1)
}

func TestCombatFullExchangeWithCPUOpponent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	env := setupWSTest(t)

	conn := dialSeat(ctx, t, env, "hero-1")
	wsSend(ctx, t, conn, wire.Command{Kind: wire.CmdEnterBattle})
	wsReadKind(ctx, t, conn, wire.MsgEncounterData)

	wsSend(ctx, t, conn, wire.Command{Kind: wire.CmdEndTurn})

	handoff := wsReadKind(ctx, t, conn, wire.MsgPlayerTurn)
	assert.Equal(t, wire.Combatant2, handoff.Index)

	// The CPU opponent takes its turn and hands control back.
	back := wsReadKind(ctx, t, conn, wire.MsgPlayerTurn)
	assert.Equal(t, wire.Combatant1, back.Index)
}

func TestCombatMalformedFrameKeepsSeatAlive(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	env := setupWSTest(t)

	conn := dialSeat(ctx, t, env, "hero-1")
	wsSend(ctx, t, conn, wire.Command{Kind: wire.CmdEnterBattle})
	wsReadKind(ctx, t, conn, wire.MsgEncounterData)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))
	errFrame := wsReadKind(ctx, t, conn, wire.MsgError)
	assert.Equal(t, "malformed command", errFrame.Message)

	// The seat still processes commands afterwards.
	wsSend(ctx, t, conn, wire.Command{Kind: wire.CmdEndTurn})
	handoff := wsReadKind(ctx, t, conn, wire.MsgPlayerTurn)
	assert.Equal(t, wire.Combatant2, handoff.Index)
}

func TestCreateEncounterFromTemplates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	env := setupWSTest(t)

	body := []byte(`{"heroTemplate":"duelist","monsterTemplate":"gnarl-stalker","actionId":"quest-3"}`)
	resp, err := http.Post(env.ts.URL+"/encounters", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		EncounterID string `json:"encounterId"`
		HeroID      string `json:"heroId"`
		MonsterID   string `json:"monsterId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.EncounterID)
	require.NotEmpty(t, created.HeroID)

	// The stamped hero can take its seat immediately.
	conn := dialSeat(ctx, t, env, created.HeroID)
	wsSend(ctx, t, conn, wire.Command{Kind: wire.CmdEnterBattle})
	opening := wsRead(ctx, t, conn)
	assert.Equal(t, wire.MsgEncounterData, opening.Kind)
}

func TestCreateEncounterUnknownTemplate(t *testing.T) {
	env := setupWSTest(t)
	body := []byte(`{"heroTemplate":"nobody","monsterTemplate":"gnarl-stalker"}`)
	resp, err := http.Post(env.ts.URL+"/encounters", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCombatFirstFrameMustEnterBattle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	env := setupWSTest(t)

	conn := dialSeat(ctx, t, env, "hero-1")
	wsSend(ctx, t, conn, wire.Command{Kind: wire.CmdEndTurn})

	msg := wsRead(ctx, t, conn)
	assert.Equal(t, wire.MsgError, msg.Kind)

	_, _, err := conn.Read(ctx)
	assert.Error(t, err, "the server closes the connection")
}
