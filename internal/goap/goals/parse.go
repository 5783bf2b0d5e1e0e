package goals

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hexplan.ai/internal/goap/facts"
)

var ErrSyntax = errors.New("goals: bad long-term goal")

// Parse reads the String form of a goal. Custom goals carry an opaque planner
// goal and cannot be parsed back.
func Parse(s string) (LongTerm, error) {
	kind, body, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	bad := func() (LongTerm, error) { return nil, fmt.Errorf("%w: %q", ErrSyntax, s) }

	switch kind {
	case "KillAllEnemies":
		if body == "unlimited" {
			return KillAllEnemies{}, nil
		}
		r, err := strconv.Atoi(body)
		if err != nil {
			return bad()
		}
		return KillAllEnemies{SearchRadius: &r}, nil
	case "Protect", "ReachArea":
		list, reason, _ := strings.Cut(body, ":")
		hs, ok := parseHexList(list)
		if !ok {
			return bad()
		}
		if kind == "Protect" {
			return Protect{Targets: hs, Reason: reason}, nil
		}
		return ReachArea{Centers: hs, Reason: reason}, nil
	case "SiegeCastle":
		if body == "" {
			return bad()
		}
		return SiegeCastle{CastleID: body}, nil
	case "ReachPosition":
		pos, reason, _ := strings.Cut(body, ":")
		h, ok := facts.ParseHex(pos)
		if !ok {
			return bad()
		}
		return ReachPosition{Target: h, Reason: reason}, nil
	case "EliminateTarget":
		if body == "" {
			return bad()
		}
		return EliminateTarget{TargetID: body}, nil
	case "StayInFormation":
		d, err := strconv.Atoi(body)
		if err != nil {
			return bad()
		}
		return StayInFormation{MaxDistance: d}, nil
	case "ControlZone":
		pos, radius, ok := strings.Cut(body, ":")
		if !ok {
			return bad()
		}
		h, ok := facts.ParseHex(pos)
		r, err := strconv.Atoi(radius)
		if !ok || err != nil {
			return bad()
		}
		return ControlZone{Center: h, Radius: r}, nil
	case "ProtectAlly":
		i := strings.LastIndexByte(body, ':')
		if i <= 0 {
			return bad()
		}
		d, err := strconv.Atoi(body[i+1:])
		if err != nil {
			return bad()
		}
		return ProtectAlly{AllyID: body[:i], MaxDistance: d}, nil
	default:
		return bad()
	}
}

// ParseAll parses a list, stopping at the first error.
func ParseAll(ss []string) ([]LongTerm, error) {
	out := make([]LongTerm, 0, len(ss))
	for _, s := range ss {
		g, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func parseHexList(s string) ([]facts.HexCoord, bool) {
	if s == "" {
		return nil, false
	}
	parts := strings.Split(s, ";")
	out := make([]facts.HexCoord, 0, len(parts))
	for _, p := range parts {
		h, ok := facts.ParseHex(p)
		if !ok {
			return nil, false
		}
		out = append(out, h)
	}
	return out, true
}
