package protocol

import (
	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
	"hexplan.ai/internal/sim/scenario"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	// MaxQueue bounds the server's outbound queue for this session.
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	TuningDigest    string `json:"tuning_digest"`
	MaxNodes        int    `json:"max_nodes"`
	MaxNodesCap     int    `json:"max_nodes_cap"`
}

// PLAN (client -> server): one goal, one flat action list.
type PlanMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ID              string            `json:"id"`
	State           []facts.Fact      `json:"state"`
	Actions         []action.Instance `json:"actions"`
	Goal            action.Goal       `json:"goal"`
	// MaxNodes <= 0 means the server default.
	MaxNodes int `json:"max_nodes,omitempty"`
}

// PLAN_RESULT (server -> client)
type PlanResultMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ID              string   `json:"id"`
	Found           bool     `json:"found"`
	Plan            []int    `json:"plan"`
	Actions         []string `json:"actions"`
	Cost            float64  `json:"cost"`
	Expanded        int      `json:"expanded"`
	MaxNodes        int      `json:"max_nodes"`
}

type TeamAgent struct {
	ID    string        `json:"id"`
	Goals []action.Goal `json:"goals"`
}

// TEAM_PLAN (client -> server): agents plan in the listed order.
type TeamPlanMsg struct {
	Type             string            `json:"type"`
	ProtocolVersion  string            `json:"protocol_version"`
	ID               string            `json:"id"`
	State            []facts.Fact      `json:"state"`
	Actions          []action.Instance `json:"actions"`
	Agents           []TeamAgent       `json:"agents"`
	MaxNodesPerAgent int               `json:"max_nodes_per_agent,omitempty"`
}

type TeamAgentPlan struct {
	Agent string `json:"agent"`
	Found bool   `json:"found"`
	// GoalIndex is the accepted goal's position in the agent's goal list, or -1.
	GoalIndex int          `json:"goal_index"`
	Goal      *action.Goal `json:"goal,omitempty"`
	// Plan holds indices into the request's action list.
	Plan     []int    `json:"plan"`
	Actions  []string `json:"actions"`
	Cost     float64  `json:"cost"`
	Expanded int      `json:"expanded"`
}

// TEAM_RESULT (server -> client)
type TeamResultMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ID              string          `json:"id"`
	Plans           []TeamAgentPlan `json:"plans"`
	// Final is the committed state after every accepted plan.
	Final []facts.Fact `json:"final"`
}

// GROUND (client -> server)
type GroundMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	ID              string       `json:"id"`
	State           []facts.Fact `json:"state"`
	// Agent tags attacks that do not name their own agent.
	Agent   string                `json:"agent,omitempty"`
	Attacks []scenario.AttackSpec `json:"attacks,omitempty"`
	Moves   []scenario.MoveSpec   `json:"moves,omitempty"`
}

// GROUNDED (server -> client)
type GroundedMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ID              string            `json:"id"`
	Actions         []action.Instance `json:"actions"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

func NewError(id, code, message string) ErrorMsg {
	return ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		ID:              id,
		Code:            code,
		Message:         message,
	}
}
