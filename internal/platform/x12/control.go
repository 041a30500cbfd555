package x12

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"sync/atomic"
)

// ControlScope selects which envelope level a control number is for.
type ControlScope int

const (
	ScopeInterchange ControlScope = iota
	ScopeGroup
	ScopeTransaction
)

// maxControlNumber is the largest value that fits the nine-digit fields.
const maxControlNumber = 999_999_999

func (s ControlScope) String() string {
	switch s {
	case ScopeInterchange:
		return "interchange"
	case ScopeGroup:
		return "group"
	case ScopeTransaction:
		return "transaction"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// minWidth is the zero-padded width each scope is rendered at. ISA-13 is
// always nine digits; ST-02 is four to nine; GS-06 is one to nine.
func (s ControlScope) minWidth() int {
	switch s {
	case ScopeInterchange:
		return 9
	case ScopeTransaction:
		return 4
	default:
		return 1
	}
}

// ControlNumbers is the interchange/group/transaction triple threaded through
// one envelope, header and trailer alike.
type ControlNumbers struct {
	Interchange string `json:"interchange"`
	Group       string `json:"group"`
	Transaction string `json:"transaction"`
}

// Validate checks that every number is numeric and fits its scope's width.
func (c ControlNumbers) Validate() error {
	checks := []struct {
		scope ControlScope
		value string
	}{
		{ScopeInterchange, c.Interchange},
		{ScopeGroup, c.Group},
		{ScopeTransaction, c.Transaction},
	}
	for _, chk := range checks {
		if !isDigits(chk.value) {
			return fmt.Errorf("x12: %s control number %q is not numeric", chk.scope, chk.value)
		}
		if len(chk.value) < chk.scope.minWidth() || len(chk.value) > 9 {
			return fmt.Errorf("x12: %s control number %q must be %d to 9 digits", chk.scope, chk.value, chk.scope.minWidth())
		}
	}
	return nil
}

// ControlNumberGenerator hands out control numbers. It is the only mutable
// state shared between encoders, so callers construct one and pass it to
// every codec that must not reuse numbers. Safe for concurrent use.
type ControlNumberGenerator struct {
	last [3]atomic.Uint64
}

// NewControlNumberGenerator returns a generator whose first numbers are the
// given values. Empty or zero fields start at 1.
func NewControlNumberGenerator(start ControlNumbers) (*ControlNumberGenerator, error) {
	g := &ControlNumberGenerator{}
	for scope, value := range []string{start.Interchange, start.Group, start.Transaction} {
		n := uint64(1)
		if value != "" {
			v, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("x12: %s start %q: %w", ControlScope(scope), value, err)
			}
			if v > maxControlNumber {
				return nil, fmt.Errorf("x12: %s start %q exceeds nine digits", ControlScope(scope), value)
			}
			if v > 0 {
				n = v
			}
		}
		g.last[scope].Store(n - 1)
	}
	return g, nil
}

// NewRandomControlNumberGenerator seeds each scope from crypto/rand, so two
// processes started in the same second do not begin at the same numbers.
func NewRandomControlNumberGenerator() (*ControlNumberGenerator, error) {
	g := &ControlNumberGenerator{}
	var buf [8]byte
	for scope := range g.last {
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, fmt.Errorf("x12: seed control numbers: %w", err)
		}
		// Leave headroom below the maximum before the first wrap.
		g.last[scope].Store(binary.BigEndian.Uint64(buf[:]) % 900_000_000)
	}
	return g, nil
}

// Next returns the next number for scope, zero padded to the scope's width.
// After 999999999 the sequence wraps to 1.
func (g *ControlNumberGenerator) Next(scope ControlScope) string {
	counter := &g.last[scope]
	for {
		cur := counter.Load()
		next := cur + 1
		if next > maxControlNumber {
			next = 1
		}
		if counter.CompareAndSwap(cur, next) {
			return formatControlNumber(scope, next)
		}
	}
}

// NextTriple draws one number from each scope for a new transaction.
func (g *ControlNumberGenerator) NextTriple() ControlNumbers {
	return ControlNumbers{
		Interchange: g.Next(ScopeInterchange),
		Group:       g.Next(ScopeGroup),
		Transaction: g.Next(ScopeTransaction),
	}
}

func formatControlNumber(scope ControlScope, n uint64) string {
	return fmt.Sprintf("%0*d", scope.minWidth(), n)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
