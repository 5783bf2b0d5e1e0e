package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`

	TickRateHz int `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	MaxTicks   int `yaml:"max_ticks" json:"max_ticks"`

	// Planner budgets. Requests asking for more than MaxNodesCap are clamped.
	MaxNodes         int `yaml:"max_nodes" json:"max_nodes"`
	MaxNodesPerAgent int `yaml:"max_nodes_per_agent" json:"max_nodes_per_agent"`
	MaxNodesCap      int `yaml:"max_nodes_cap" json:"max_nodes_cap"`
	ReplanRounds     int `yaml:"replan_rounds" json:"replan_rounds"`

	Attack Attack `yaml:"attack" json:"attack"`
	Move   Move   `yaml:"move" json:"move"`

	// Durations maps an action name prefix to seconds. The longest matching
	// prefix wins; unmatched actions run instantly.
	Durations map[string]float64 `yaml:"durations" json:"durations"`
}

type Attack struct {
	Name   string  `yaml:"name" json:"name"`
	Damage int     `yaml:"damage" json:"damage"`
	Cost   float64 `yaml:"cost" json:"cost"`
}

type Move struct {
	Cost   float64 `yaml:"cost" json:"cost"`
	Radius int     `yaml:"radius" json:"radius"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:  "1.0",
		TickRateHz:       10,
		MaxTicks:         6000,
		MaxNodes:         1000,
		MaxNodesPerAgent: 5000,
		MaxNodesCap:      200000,
		ReplanRounds:     4,
		Attack:           Attack{Name: "Attack", Damage: 5, Cost: 1},
		Move:             Move{Cost: 1, Radius: 3},
		Durations: map[string]float64{
			"Move":   0.5,
			"Attack": 1.0,
		},
	}
}

// Load reads tuning.yaml over Defaults. An empty path returns the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	// yaml.v3 merges into a non-nil map, so a durations block must start empty.
	defaults := t.Durations
	t.Durations = nil
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.Durations == nil {
		t.Durations = defaults
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if strings.TrimSpace(t.ProtocolVersion) == "" {
		return fmt.Errorf("protocol_version must not be empty")
	}
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.MaxTicks <= 0 {
		return fmt.Errorf("max_ticks must be > 0")
	}
	if t.MaxNodes < 0 || t.MaxNodesPerAgent < 0 {
		return fmt.Errorf("max_nodes and max_nodes_per_agent must be >= 0")
	}
	if t.MaxNodesCap <= 0 {
		return fmt.Errorf("max_nodes_cap must be > 0")
	}
	if t.ReplanRounds < 0 {
		return fmt.Errorf("replan_rounds must be >= 0")
	}
	if t.Attack.Damage < 0 || t.Attack.Cost < 0 {
		return fmt.Errorf("attack damage and cost must be >= 0")
	}
	if t.Move.Cost < 0 || t.Move.Radius < 0 {
		return fmt.Errorf("move cost and radius must be >= 0")
	}
	for prefix, d := range t.Durations {
		if d < 0 {
			return fmt.Errorf("duration for %q must be >= 0", prefix)
		}
	}
	return nil
}

// Clamp bounds a requested node budget by MaxNodesCap. Zero or less means MaxNodes.
func (t Tuning) Clamp(requested int) int {
	if requested <= 0 {
		requested = t.MaxNodes
	}
	if requested > t.MaxNodesCap {
		return t.MaxNodesCap
	}
	return requested
}

// TickSeconds is the simulated time one tick advances.
func (t Tuning) TickSeconds() float64 {
	return 1 / float64(t.TickRateHz)
}

// DurationFor returns the configured duration for an action name. The bool is
// false when the action should run instantly.
func (t Tuning) DurationFor(name string) (float64, bool) {
	best := -1
	var d float64
	for prefix, v := range t.Durations {
		if strings.HasPrefix(name, prefix) && len(prefix) > best {
			best = len(prefix)
			d = v
		}
	}
	return d, best >= 0 && d > 0
}

// Digest is the sha256 of the canonical JSON form. Durations are emitted in
// key order by encoding/json.
func (t Tuning) Digest() string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

