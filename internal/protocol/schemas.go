package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"hexplan.ai/internal/sim/scenario"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "https://hexplan.ai/schemas/protocol/"

// Client message types and their schema files.
var clientSchemas = map[string]string{
	TypeHello:    "hello.schema.json",
	TypePlan:     "plan.schema.json",
	TypeTeamPlan: "team_plan.schema.json",
	TypeGround:   "ground.schema.json",
}

var (
	schemasOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func schemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(scenario.SchemaURL, strings.NewReader(scenario.SchemaJSON())); err != nil {
			compileErr = err
			return
		}
		for _, name := range clientSchemas {
			b, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				compileErr = err
				return
			}
			if err := c.AddResource(schemaBase+name, bytes.NewReader(b)); err != nil {
				compileErr = err
				return
			}
		}
		out := make(map[string]*jsonschema.Schema, len(clientSchemas))
		for typ, name := range clientSchemas {
			s, err := c.Compile(schemaBase + name)
			if err != nil {
				compileErr = fmt.Errorf("compile %s: %w", name, err)
				return
			}
			out[typ] = s
		}
		compiled = out
	})
	return compiled, compileErr
}

// SchemaFile returns the embedded schema for a client message type.
func SchemaFile(typ string) ([]byte, bool) {
	name, ok := clientSchemas[typ]
	if !ok {
		return nil, false
	}
	b, err := schemaFS.ReadFile("schemas/" + name)
	return b, err == nil
}

// ValidateClient checks a client message against the schema for its type.
func ValidateClient(raw []byte) (BaseMessage, error) {
	base, err := DecodeBase(raw)
	if err != nil {
		return base, fmt.Errorf("decode: %w", err)
	}
	all, err := schemas()
	if err != nil {
		return base, err
	}
	s, ok := all[base.Type]
	if !ok {
		return base, fmt.Errorf("unknown message type %q", base.Type)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return base, fmt.Errorf("decode: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return base, err
	}
	return base, nil
}
