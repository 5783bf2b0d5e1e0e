package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello      = "HELLO"
	TypeWelcome    = "WELCOME"
	TypePlan       = "PLAN"
	TypePlanResult = "PLAN_RESULT"
	TypeTeamPlan   = "TEAM_PLAN"
	TypeTeamResult = "TEAM_RESULT"
	TypeGround     = "GROUND"
	TypeGrounded   = "GROUNDED"
	TypeError      = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ID              string `json:"id,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
