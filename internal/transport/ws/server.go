package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
	"hexplan.ai/internal/goap/planner"
	"hexplan.ai/internal/logging"
	"hexplan.ai/internal/observe"
	"hexplan.ai/internal/protocol"
	"hexplan.ai/internal/sim/runner"
	"hexplan.ai/internal/sim/tuning"
)

type Config struct {
	Tuning  tuning.Tuning
	Logger  *zap.Logger
	Metrics *observe.Metrics
	// Plans receives one record per planned agent; RunID is the session id.
	Plans runner.PlanSink
}

// Server is the planning service: after a HELLO/WELCOME handshake each
// connection submits PLAN, TEAM_PLAN and GROUND requests, answered in order.
type Server struct {
	cfg Config
	log *zap.Logger

	upgrader websocket.Upgrader
	sessions atomic.Int64
}

func NewServer(cfg Config) *Server {
	return &Server{
		cfg: cfg,
		log: logging.OrNop(cfg.Logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Sessions reports currently connected sessions.
func (s *Server) Sessions() int64 { return s.sessions.Load() }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}
		log := s.log.With(zap.String("session", sessionID))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		s.sessions.Add(1)
		s.cfg.Metrics.SessionOpened(ctx)
		defer func() {
			s.sessions.Add(-1)
			s.cfg.Metrics.SessionClosed(context.Background())
		}()
		log.Info("session opened", zap.String("remote", r.RemoteAddr))

		// Writer goroutine.
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop. Requests are served one at a time.
		var seq int
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			resp := s.Dispatch(ctx, sessionID, seq, msg)
			seq++
			b, err := json.Marshal(resp)
			if err != nil {
				log.Error("marshal response", zap.Error(err))
				b, _ = json.Marshal(protocol.NewError("", protocol.ErrInternal, "marshal response"))
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}

		cancel()
		wg.Wait()
		log.Info("session closed", zap.Int("requests", seq))
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.ValidateClient(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out = make(chan []byte, maxQ)

	sessionID = uuid.NewString()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		TuningDigest:    s.cfg.Tuning.Digest(),
		MaxNodes:        s.cfg.Tuning.MaxNodes,
		MaxNodesCap:     s.cfg.Tuning.MaxNodesCap,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", nil
	}
	return sessionID, out
}

// Dispatch validates one client message and returns the response to send.
// seq numbers the session's requests and is recorded as the plan round.
func (s *Server) Dispatch(ctx context.Context, sessionID string, seq int, raw []byte) (resp any) {
	base, err := protocol.ValidateClient(raw)
	if err != nil {
		return protocol.NewError(base.ID, protocol.ErrProtoBadRequest, err.Error())
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.NewError(base.ID, protocol.ErrProtoBadRequest, "bad protocol_version")
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("request panicked", zap.String("type", base.Type), zap.Any("panic", r))
			resp = protocol.NewError(base.ID, protocol.ErrInternal, "internal error")
		}
	}()

	switch base.Type {
	case protocol.TypePlan:
		var m protocol.PlanMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return protocol.NewError(base.ID, protocol.ErrBadRequest, err.Error())
		}
		return s.handlePlan(ctx, sessionID, seq, m)
	case protocol.TypeTeamPlan:
		var m protocol.TeamPlanMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return protocol.NewError(base.ID, protocol.ErrBadRequest, err.Error())
		}
		return s.handleTeamPlan(ctx, sessionID, seq, m)
	case protocol.TypeGround:
		var m protocol.GroundMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return protocol.NewError(base.ID, protocol.ErrBadRequest, err.Error())
		}
		return s.handleGround(m)
	default:
		return protocol.NewError(base.ID, protocol.ErrBadRequest, fmt.Sprintf("unexpected %s", base.Type))
	}
}

func (s *Server) handlePlan(ctx context.Context, sessionID string, seq int, m protocol.PlanMsg) any {
	budget := s.cfg.Tuning.Clamp(m.MaxNodes)
	started := time.Now()
	res := planner.Search(facts.FromFacts(m.State...), m.Actions, m.Goal, budget)
	status := "found"
	if !res.Found {
		status = "not_found"
	}
	s.cfg.Metrics.RecordPlan(ctx, "plan", status, res.Expanded, time.Since(started))
	s.recordPlan(runner.PlanRecord{
		RunID:    sessionID,
		Round:    seq,
		Goal:     m.Goal.String(),
		Found:    res.Found,
		Actions:  planner.Names(res.Plan, m.Actions),
		Cost:     res.Cost,
		Expanded: res.Expanded,
	})

	if !res.Found {
		return protocol.NewError(m.ID, protocol.ErrNoPlan,
			fmt.Sprintf("no plan for %s within %d nodes (expanded %d)", m.Goal, budget, res.Expanded))
	}
	return protocol.PlanResultMsg{
		Type:            protocol.TypePlanResult,
		ProtocolVersion: protocol.Version,
		ID:              m.ID,
		Found:           true,
		Plan:            []int(res.Plan),
		Actions:         planner.Names(res.Plan, m.Actions),
		Cost:            res.Cost,
		Expanded:        res.Expanded,
		MaxNodes:        budget,
	}
}

func (s *Server) handleTeamPlan(ctx context.Context, sessionID string, seq int, m protocol.TeamPlanMsg) any {
	order := make([]string, 0, len(m.Agents))
	goals := make(map[string][]action.Goal, len(m.Agents))
	for _, a := range m.Agents {
		if _, dup := goals[a.ID]; dup {
			return protocol.NewError(m.ID, protocol.ErrBadRequest, "duplicate agent "+a.ID)
		}
		order = append(order, a.ID)
		goals[a.ID] = append([]action.Goal{}, a.Goals...)
	}

	requested := m.MaxNodesPerAgent
	if requested <= 0 {
		requested = s.cfg.Tuning.MaxNodesPerAgent
	}
	budget := s.cfg.Tuning.Clamp(requested)
	started := time.Now()
	res := planner.PlanTeam(facts.FromFacts(m.State...), m.Actions, goals, order, budget)

	out := protocol.TeamResultMsg{
		Type:            protocol.TypeTeamResult,
		ProtocolVersion: protocol.Version,
		ID:              m.ID,
		Plans:           make([]protocol.TeamAgentPlan, 0, len(order)),
		Final:           res.Final.Facts(),
	}
	found, expanded := 0, 0
	for _, agent := range order {
		ap := res.Agents[agent]
		global := ap.Global()
		names := make([]string, 0, len(global))
		for _, i := range global {
			names = append(names, m.Actions[i].Name)
		}
		p := protocol.TeamAgentPlan{
			Agent:     agent,
			Found:     ap.Found(),
			GoalIndex: ap.GoalIndex,
			Plan:      global,
			Actions:   names,
			Cost:      ap.Cost,
			Expanded:  ap.Expanded,
		}
		rec := runner.PlanRecord{
			RunID:    sessionID,
			Round:    seq,
			Agent:    agent,
			Found:    ap.Found(),
			Actions:  names,
			Cost:     ap.Cost,
			Expanded: ap.Expanded,
		}
		if ap.Found() {
			g := ap.Goal
			p.Goal = &g
			rec.Goal = g.String()
			found++
		}
		expanded += ap.Expanded
		out.Plans = append(out.Plans, p)
		s.recordPlan(rec)
	}

	status := "found"
	switch {
	case found == 0:
		status = "not_found"
	case found < len(order):
		status = "partial"
	}
	s.cfg.Metrics.RecordPlan(ctx, "team", status, expanded, time.Since(started))
	return out
}

func (s *Server) handleGround(m protocol.GroundMsg) any {
	st := facts.FromFacts(m.State...)
	out := []action.Instance{}
	for _, a := range m.Attacks {
		a.Defaults(s.cfg.Tuning)
		if a.Agent == "" {
			a.Agent = m.Agent
		}
		out = append(out, a.Grounder().Ground(st, a.Agent)...)
	}
	for _, mv := range m.Moves {
		mv.Defaults(s.cfg.Tuning)
		out = append(out, mv.Grounder().Ground(st, mv.Agent)...)
	}
	return protocol.GroundedMsg{
		Type:            protocol.TypeGrounded,
		ProtocolVersion: protocol.Version,
		ID:              m.ID,
		Actions:         out,
	}
}

func (s *Server) recordPlan(r runner.PlanRecord) {
	if s.cfg.Plans != nil {
		s.cfg.Plans.RecordPlan(r)
	}
}

// TuningHandler serves the active tuning and its digest to loopback callers.
func (s *Server) TuningHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := struct {
			ProtocolVersion string        `json:"protocol_version"`
			Digest          string        `json:"digest"`
			Sessions        int64         `json:"sessions"`
			Tuning          tuning.Tuning `json:"tuning"`
		}{
			ProtocolVersion: protocol.Version,
			Digest:          s.cfg.Tuning.Digest(),
			Sessions:        s.Sessions(),
			Tuning:          s.cfg.Tuning,
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
