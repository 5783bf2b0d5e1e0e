package facts

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind uint8

const (
	KindBool Kind = iota + 1
	KindInt
	KindStr
	KindHex
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindStr:
		return "str"
	case KindHex:
		return "hex"
	default:
		return "unknown"
	}
}

// HexCoord is an axial hex coordinate.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

func Hex(q, r int) HexCoord { return HexCoord{Q: q, R: r} }

func (h HexCoord) Distance(o HexCoord) int {
	dq := h.Q - o.Q
	dr := h.R - o.R
	return (abs(dq) + abs(dq+dr) + abs(dr)) / 2
}

// Neighbors returns the six adjacent coordinates: N, NE, SE, S, SW, NW.
func (h HexCoord) Neighbors() [6]HexCoord {
	return [6]HexCoord{
		{h.Q, h.R - 1},
		{h.Q + 1, h.R - 1},
		{h.Q + 1, h.R},
		{h.Q, h.R + 1},
		{h.Q - 1, h.R + 1},
		{h.Q - 1, h.R},
	}
}

func (h HexCoord) String() string { return strconv.Itoa(h.Q) + "," + strconv.Itoa(h.R) }

// ParseHex parses the "q,r" form written by HexCoord.String.
func ParseHex(s string) (HexCoord, bool) {
	qs, rs, ok := strings.Cut(s, ",")
	if !ok {
		return HexCoord{}, false
	}
	q, err := strconv.Atoi(strings.TrimSpace(qs))
	if err != nil {
		return HexCoord{}, false
	}
	r, err := strconv.Atoi(strings.TrimSpace(rs))
	if err != nil {
		return HexCoord{}, false
	}
	return HexCoord{Q: q, R: r}, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Value is a typed fact value. The zero Value is invalid and never equals a
// constructed one.
type Value struct {
	kind Kind
	b    bool
	i    int
	s    string
	h    HexCoord
}

func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Int(i int) Value           { return Value{kind: KindInt, i: i} }
func Str(s string) Value        { return Value{kind: KindStr, s: s} }
func HexValue(h HexCoord) Value { return Value{kind: KindHex, h: h} }

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsValid() bool { return v.kind != 0 }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int, bool)   { return v.i, v.kind == KindInt }
func (v Value) AsStr() (string, bool) {
	return v.s, v.kind == KindStr
}
func (v Value) AsHex() (HexCoord, bool) { return v.h, v.kind == KindHex }

// Location reads a hex value, or a legacy "q,r" string.
func (v Value) Location() (HexCoord, bool) {
	switch v.kind {
	case KindHex:
		return v.h, true
	case KindStr:
		return ParseHex(v.s)
	default:
		return HexCoord{}, false
	}
}

// Equal reports same kind and same payload.
func (v Value) Equal(o Value) bool { return v == o }

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.Itoa(v.i)
	case KindStr:
		return strconv.Quote(v.s)
	case KindHex:
		return "(" + v.h.String() + ")"
	default:
		return "<invalid>"
	}
}

// canonical is the tagged form used in state keys and digests.
func (v Value) canonical() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "b:1"
		}
		return "b:0"
	case KindInt:
		return "i:" + strconv.Itoa(v.i)
	case KindStr:
		return "s:" + strconv.Quote(v.s)
	case KindHex:
		return fmt.Sprintf("h:%d,%d", v.h.Q, v.h.R)
	default:
		return "?"
	}
}

// Fact is a single (key, value) pair, used for preconditions, effects and goals.
type Fact struct {
	Key   string
	Value Value
}

func F(key string, v Value) Fact { return Fact{Key: key, Value: v} }

func (f Fact) String() string { return f.Key + "=" + f.Value.String() }
