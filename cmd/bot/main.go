package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hexplan.ai/internal/logging"
	"hexplan.ai/internal/protocol"
	"hexplan.ai/internal/sim/scenario"
	"hexplan.ai/internal/sim/tuning"
)

func main() {
	var (
		url          = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name         = flag.String("name", "bot", "client name")
		scenarioPath = flag.String("scenario", "./scenarios/skirmish.yaml", "scenario to submit as TEAM_PLAN")
		tuningPath   = flag.String("tuning", "./configs/tuning.yaml", "tuning used to normalize the scenario")
		timeout      = flag.Duration("timeout", 10*time.Second, "read timeout per response")
	)
	flag.Parse()

	base, err := logging.New("info", true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = base.Sync() }()
	logger := base.Named("bot")

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		logger.Fatal("load tuning", zap.Error(err))
	}
	sc, err := scenario.Load(*scenarioPath, tune)
	if err != nil {
		logger.Fatal("load scenario", zap.Error(err))
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatal("dial", zap.Error(err))
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		MaxQueue:        8,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatal("send HELLO", zap.Error(err))
	}

	_ = conn.SetReadDeadline(time.Now().Add(*timeout))
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		logger.Fatal("read WELCOME", zap.Error(err))
	}
	logger.Info("WELCOME",
		zap.String("session_id", welcome.SessionID),
		zap.String("tuning_digest", welcome.TuningDigest),
		zap.Int("max_nodes_cap", welcome.MaxNodesCap),
	)
	if welcome.TuningDigest != tune.Digest() {
		logger.Warn("server tuning differs from local tuning; plans may not match simulate")
	}

	world := sc.World()
	goals := sc.Goals(world)
	req := protocol.TeamPlanMsg{
		Type:             protocol.TypeTeamPlan,
		ProtocolVersion:  protocol.Version,
		ID:               uuid.NewString(),
		State:            world.Facts(),
		Actions:          sc.Instances(world),
		MaxNodesPerAgent: sc.MaxNodesPerAgent,
	}
	for _, id := range sc.Order() {
		req.Agents = append(req.Agents, protocol.TeamAgent{ID: id, Goals: goals[id]})
	}
	if err := conn.WriteJSON(req); err != nil {
		logger.Fatal("send TEAM_PLAN", zap.Error(err))
	}

	_ = conn.SetReadDeadline(time.Now().Add(*timeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		logger.Fatal("read response", zap.Error(err))
	}
	resp, err := protocol.DecodeBase(msg)
	if err != nil {
		logger.Fatal("decode response", zap.Error(err))
	}
	switch resp.Type {
	case protocol.TypeTeamResult:
		var res protocol.TeamResultMsg
		if err := json.Unmarshal(msg, &res); err != nil {
			logger.Fatal("decode TEAM_RESULT", zap.Error(err))
		}
		for _, p := range res.Plans {
			goal := "-"
			if p.Goal != nil {
				goal = p.Goal.String()
			}
			fmt.Printf("%s found=%v goal=%s cost=%g expanded=%d plan=[%s]\n",
				p.Agent, p.Found, goal, p.Cost, p.Expanded, strings.Join(p.Actions, " "))
		}
	case protocol.TypeError:
		var e protocol.ErrorMsg
		_ = json.Unmarshal(msg, &e)
		logger.Fatal("server error", zap.String("code", e.Code), zap.String("message", e.Message))
	default:
		logger.Fatal("unexpected response", zap.String("type", resp.Type))
	}

	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}
