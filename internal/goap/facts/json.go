package facts

import (
	"encoding/json"
	"fmt"
)

// wireValue is the JSON form of a Value: exactly one field set.
type wireValue struct {
	Bool *bool   `json:"bool,omitempty"`
	Int  *int    `json:"int,omitempty"`
	Str  *string `json:"str,omitempty"`
	Hex  *[2]int `json:"hex,omitempty"`
}

func (v Value) toWire() (wireValue, error) {
	var w wireValue
	switch v.kind {
	case KindBool:
		b := v.b
		w.Bool = &b
	case KindInt:
		i := v.i
		w.Int = &i
	case KindStr:
		s := v.s
		w.Str = &s
	case KindHex:
		h := [2]int{v.h.Q, v.h.R}
		w.Hex = &h
	default:
		return w, fmt.Errorf("facts: cannot encode invalid value")
	}
	return w, nil
}

func (w wireValue) toValue() (Value, error) {
	n := 0
	var v Value
	if w.Bool != nil {
		n++
		v = Bool(*w.Bool)
	}
	if w.Int != nil {
		n++
		v = Int(*w.Int)
	}
	if w.Str != nil {
		n++
		v = Str(*w.Str)
	}
	if w.Hex != nil {
		n++
		v = HexValue(HexCoord{Q: w.Hex[0], R: w.Hex[1]})
	}
	if n != 1 {
		return Value{}, fmt.Errorf("facts: value must set exactly one of bool/int/str/hex (got %d)", n)
	}
	return v, nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	w, err := v.toWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var w wireValue
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out, err := w.toValue()
	if err != nil {
		return err
	}
	*v = out
	return nil
}

type wireFact struct {
	Key string `json:"key"`
	wireValue
}

// MarshalJSON writes the flattened form {"key":"At","hex":[0,0]}.
func (f Fact) MarshalJSON() ([]byte, error) {
	w, err := f.Value.toWire()
	if err != nil {
		return nil, fmt.Errorf("fact %q: %w", f.Key, err)
	}
	return json.Marshal(wireFact{Key: f.Key, wireValue: w})
}

func (f *Fact) UnmarshalJSON(b []byte) error {
	var w wireFact
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Key == "" {
		return fmt.Errorf("facts: fact key must not be empty")
	}
	v, err := w.wireValue.toValue()
	if err != nil {
		return fmt.Errorf("fact %q: %w", w.Key, err)
	}
	*f = Fact{Key: w.Key, Value: v}
	return nil
}

// MarshalJSON writes the state as a key-sorted fact list.
func (s *State) MarshalJSON() ([]byte, error) {
	fs := s.Facts()
	if fs == nil {
		fs = []Fact{}
	}
	return json.Marshal(fs)
}

func (s *State) UnmarshalJSON(b []byte) error {
	var fs []Fact
	if err := json.Unmarshal(b, &fs); err != nil {
		return err
	}
	*s = *FromFacts(fs...)
	return nil
}
