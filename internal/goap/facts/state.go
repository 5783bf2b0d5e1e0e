// Package facts holds the flat equality-fact store the planner searches over.
//
// A State maps fact names to typed values. A missing key is "unknown" and never
// satisfies anything. There are no ranges, wildcards or numeric comparisons.
package facts

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

type State struct {
	facts map[string]Value
}

func NewState() *State {
	return &State{facts: map[string]Value{}}
}

// FromFacts builds a state by inserting fs in order.
func FromFacts(fs ...Fact) *State {
	s := &State{facts: make(map[string]Value, len(fs))}
	for _, f := range fs {
		s.facts[f.Key] = f.Value
	}
	return s
}

func (s *State) Get(key string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s.facts[key]
	return v, ok
}

func (s *State) Insert(key string, v Value) {
	if s.facts == nil {
		s.facts = map[string]Value{}
	}
	s.facts[key] = v
}

func (s *State) Delete(key string) { delete(s.facts, key) }

// Satisfies is exact equality against the current value; false when absent.
func (s *State) Satisfies(key string, v Value) bool {
	cur, ok := s.Get(key)
	return ok && cur == v
}

// ApplyEffects inserts each effect in order, so a later effect for the same
// key wins.
func (s *State) ApplyEffects(effects []Fact) {
	for _, e := range effects {
		s.Insert(e.Key, e.Value)
	}
}

func (s *State) Clone() *State {
	out := &State{facts: make(map[string]Value, s.Len())}
	if s != nil {
		for k, v := range s.facts {
			out.facts[k] = v
		}
	}
	return out
}

func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return len(s.facts)
}

func (s *State) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.facts))
	for k := range s.facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Facts returns all pairs sorted by key.
func (s *State) Facts() []Fact {
	keys := s.Keys()
	out := make([]Fact, 0, len(keys))
	for _, k := range keys {
		out = append(out, Fact{Key: k, Value: s.facts[k]})
	}
	return out
}

// Range calls fn for each fact in key order until fn returns false.
func (s *State) Range(fn func(key string, v Value) bool) {
	for _, k := range s.Keys() {
		if !fn(k, s.facts[k]) {
			return
		}
	}
}

// CanonicalKey is an order-independent encoding of the state's contents: two
// states with the same facts produce the same key regardless of insertion
// history.
func (s *State) CanonicalKey() string {
	var b strings.Builder
	for _, k := range s.Keys() {
		b.WriteString(quoteKey(k))
		b.WriteByte('=')
		b.WriteString(s.facts[k].canonical())
		b.WriteByte(';')
	}
	return b.String()
}

func (s *State) Digest() string {
	sum := sha256.Sum256([]byte(s.CanonicalKey()))
	return hex.EncodeToString(sum[:])
}

func (s *State) Equal(o *State) bool {
	if s.Len() != o.Len() {
		return false
	}
	for k, v := range s.facts {
		ov, ok := o.Get(k)
		if !ok || ov != v {
			return false
		}
	}
	return true
}

func (s *State) String() string {
	parts := make([]string, 0, s.Len())
	for _, f := range s.Facts() {
		parts = append(parts, f.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func quoteKey(k string) string {
	if strings.ContainsAny(k, "=;\\") {
		r := strings.NewReplacer(`\`, `\\`, `=`, `\=`, `;`, `\;`)
		return r.Replace(k)
	}
	return k
}
