package scenario

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"hexplan.ai/internal/sim/tuning"
)

//go:embed scenario.schema.json
var schemaJSON string

// SchemaURL identifies the scenario schema; other schemas reference its $defs.
const SchemaURL = "https://hexplan.ai/schemas/scenario.schema.json"

func SchemaJSON() string { return schemaJSON }

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(SchemaURL, schemaJSON)
	})
	return schema, schemaErr
}

// Load reads a .yaml/.yml or .json scenario file.
func Load(path string, t tuning.Tuning) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	yamlInput := false
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		yamlInput = true
	}
	s, err := Parse(raw, yamlInput, t)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse validates raw against the scenario schema and decodes it. YAML input
// is converted to JSON first so both forms share one schema and one digest.
func Parse(raw []byte, yamlInput bool, t tuning.Tuning) (*Scenario, error) {
	var doc any
	if yamlInput {
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: yaml: %v", ErrInvalid, err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: json: %v", ErrInvalid, err)
		}
	}

	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	// Round-trip so the validator sees json.Number rather than YAML ints.
	var generic any
	dec := json.NewDecoder(bytes.NewReader(canonical))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile scenario schema: %w", err)
	}
	if err := sch.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var s Scenario
	if err := json.Unmarshal(canonical, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	s.Normalize(t)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(canonical)
	s.Digest = hex.EncodeToString(sum[:])
	return &s, nil
}
