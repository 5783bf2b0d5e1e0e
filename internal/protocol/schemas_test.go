package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
)

func TestValidateClient_Samples(t *testing.T) {
	samples := []string{
		`{"type":"HELLO","protocol_version":"1.0","client_name":"bot1","max_queue":8}`,
		`{
		  "type":"PLAN","protocol_version":"1.0","id":"p1",
		  "state":[{"key":"At","hex":[0,0]},{"key":"HasItem","bool":false}],
		  "actions":[
		    {"name":"Move","pre":[{"key":"At","hex":[0,0]}],"eff":[{"key":"At","hex":[1,0]}],"cost":1},
		    {"name":"Pickup","pre":[{"key":"At","hex":[1,0]}],"eff":[{"key":"HasItem","bool":true}],"cost":1,"agent":"u1"}
		  ],
		  "goal":{"key":"HasItem","value":{"bool":true}},
		  "max_nodes":100
		}`,
		`{
		  "type":"TEAM_PLAN","protocol_version":"1.0","id":"t1",
		  "state":[{"key":"Free","bool":true}],
		  "actions":[{"name":"Claim","pre":[{"key":"Free","bool":true}],"eff":[{"key":"Free","bool":false}],"cost":1}],
		  "agents":[{"id":"a","goals":[{"key":"Free","value":{"bool":false}}]},{"id":"b","goals":[]}]
		}`,
		`{
		  "type":"GROUND","protocol_version":"1.0","id":"g1",
		  "state":[{"key":"EnemyAt:orc","str":"2,0"}],
		  "agent":"u1",
		  "attacks":[{"damage":5}],
		  "moves":[{"agent":"u1","radius":2,"blocked":[[1,0]]}]
		}`,
	}
	for i, s := range samples {
		if _, err := ValidateClient([]byte(s)); err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
	}
}

func TestValidateClient_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown type":    `{"type":"OBS","protocol_version":"1.0"}`,
		"missing goal":    `{"type":"PLAN","protocol_version":"1.0","id":"p","state":[],"actions":[]}`,
		"two value kinds": `{"type":"PLAN","protocol_version":"1.0","id":"p","state":[{"key":"A","bool":true,"int":1}],"actions":[],"goal":{"key":"A","value":{"bool":true}}}`,
		"bad hex":         `{"type":"GROUND","protocol_version":"1.0","id":"g","state":[{"key":"At","hex":[1]}]}`,
		"not json":        `{"type":`,
	}
	for name, raw := range cases {
		if _, err := ValidateClient([]byte(raw)); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}

func TestPlanMsg_DecodesIntoCoreTypes(t *testing.T) {
	raw := `{"type":"PLAN","protocol_version":"1.0","id":"p1",
	  "state":[{"key":"At","hex":[0,0]}],
	  "actions":[{"name":"Move","pre":[{"key":"At","hex":[0,0]}],"eff":[{"key":"At","hex":[1,0]}],"cost":1}],
	  "goal":{"key":"At","value":{"hex":[1,0]}}}`
	var m PlanMsg
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Goal != action.NewGoal("At", facts.HexValue(facts.Hex(1, 0))) {
		t.Fatalf("goal=%v", m.Goal)
	}
	if len(m.Actions) != 1 || m.Actions[0].Cost != 1 || m.MaxNodes != 0 {
		t.Fatalf("msg=%+v", m)
	}
}

func TestNewError(t *testing.T) {
	b, err := json.Marshal(NewError("x", ErrNoPlan, "goal unreachable"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"type":"ERROR"`) || !strings.Contains(s, `"code":"E_NO_PLAN"`) {
		t.Fatalf("json=%s", s)
	}
	for typ := range clientSchemas {
		if _, ok := SchemaFile(typ); !ok {
			t.Fatalf("missing schema for %s", typ)
		}
	}
}
