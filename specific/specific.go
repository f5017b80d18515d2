// Package specific implements the row-classifier axis (s1/s2/s3) used to
// select which report rows a control-expression cell slice reads.
package specific

import (
	"strconv"
	"strings"
)

// Wildcard and NoneLiteral are the two tokens that make a Specific match
// unconditionally, without needing catalog expansion.
const (
	Wildcard    = "*"
	NoneLiteral = ""
)

// Specific holds one axis's literal token set, as written in a control
// formula's bracketed specific list: plain codes, range literals ("a-b"),
// or a wildcard/empty set that matches any row.
type Specific struct {
	tokens  map[string]struct{}
	order   []string
	def     string
	hasDef  bool
}

// New builds a Specific from the raw literal tokens parsed out of a
// formula's specific bracket, e.g. []string{"1", "3-5"}.
func New(tokens []string) *Specific {
	s := &Specific{tokens: make(map[string]struct{}, len(tokens))}
	for _, t := range tokens {
		s.add(t)
	}
	return s
}

// Any builds the unconditional Specific ({None} in spec terms).
func Any() *Specific {
	return New(nil)
}

func (s *Specific) add(t string) {
	if _, ok := s.tokens[t]; !ok {
		s.tokens[t] = struct{}{}
		s.order = append(s.order, t)
	}
}

// SetDefault records the axis default taken from the schema's format
// definition, used when a row omits this axis entirely.
func (s *Specific) SetDefault(v string) {
	s.def = v
	s.hasDef = true
}

// NeedExpand reports whether this Specific's token set is anything other
// than the wildcard/empty set, i.e. whether it must be resolved against a
// catalog before it can be matched against rows.
func (s *Specific) NeedExpand() bool {
	if len(s.order) == 0 {
		return false
	}
	if len(s.order) == 1 && (s.order[0] == Wildcard || s.order[0] == NoneLiteral) {
		return false
	}
	return true
}

// Expand replaces every "a-b" range literal in the token set with the
// inclusive run of catalog ids between a and b (spec.md §4.2, §8 law 8).
// ids is the catalog's ordered id list.
func (s *Specific) Expand(ids []string) {
	if !s.NeedExpand() {
		return
	}
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	expanded := make(map[string]struct{})
	var order []string
	push := func(v string) {
		if _, ok := expanded[v]; !ok {
			expanded[v] = struct{}{}
			order = append(order, v)
		}
	}

	for _, tok := range s.order {
		start, end, isRange := splitRange(tok)
		if !isRange {
			push(tok)
			continue
		}
		si, sok := index[start]
		ei, eok := index[end]
		if !sok || !eok {
			continue
		}
		if si > ei {
			si, ei = ei, si
		}
		for i := si; i <= ei; i++ {
			push(ids[i])
		}
	}

	s.tokens = expanded
	s.order = order
}

// splitRange splits "a-b" into its endpoints. A token containing a dot is
// never a range (it would collide with decimal-looking codes).
func splitRange(tok string) (start, end string, ok bool) {
	if !strings.Contains(tok, "-") || strings.Contains(tok, ".") {
		return "", "", false
	}
	parts := strings.SplitN(tok, "-", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// Match reports whether the given row value for this axis is admitted by
// the Specific. An empty rowVal falls back to the axis default, if any.
// Wildcards and the empty set always match.
func (s *Specific) Match(rowVal string) bool {
	if len(s.order) == 0 {
		return true
	}
	if len(s.order) == 1 && (s.order[0] == Wildcard || s.order[0] == NoneLiteral) {
		return true
	}
	if rowVal == "" {
		if s.hasDef {
			rowVal = s.def
		} else {
			return false
		}
	}
	_, ok := s.tokens[rowVal]
	return ok
}

// Tokens returns the current literal/expanded token set, for callers (such
// as the evaluator's spec-preparation step) that need to inspect it.
func (s *Specific) Tokens() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// IsNumericCode reports whether tok parses as an integer row/column code,
// used by callers formatting coordinates for diagnostics.
func IsNumericCode(tok string) bool {
	_, err := strconv.Atoi(tok)
	return err == nil
}
