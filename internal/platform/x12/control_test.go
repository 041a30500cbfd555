package x12

import (
	"sync"
	"testing"
)

func TestControlNumberGenerator_Sequence(t *testing.T) {
	g, err := NewControlNumberGenerator(ControlNumbers{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := g.NextTriple()
	want := ControlNumbers{Interchange: "000000001", Group: "1", Transaction: "0001"}
	if first != want {
		t.Errorf("expected %+v, got %+v", want, first)
	}

	second := g.NextTriple()
	want = ControlNumbers{Interchange: "000000002", Group: "2", Transaction: "0002"}
	if second != want {
		t.Errorf("expected %+v, got %+v", want, second)
	}
}

func TestControlNumberGenerator_Seeded(t *testing.T) {
	g, err := NewControlNumberGenerator(ControlNumbers{Interchange: "500", Group: "20", Transaction: "12345"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := g.NextTriple()
	want := ControlNumbers{Interchange: "000000500", Group: "20", Transaction: "12345"}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("generated numbers should validate: %v", err)
	}
}

func TestControlNumberGenerator_Wraps(t *testing.T) {
	g, err := NewControlNumberGenerator(ControlNumbers{Interchange: "999999999"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := g.Next(ScopeInterchange); got != "999999999" {
		t.Errorf("expected 999999999, got %s", got)
	}
	if got := g.Next(ScopeInterchange); got != "000000001" {
		t.Errorf("expected wrap to 000000001, got %s", got)
	}
}

func TestControlNumberGenerator_InvalidStart(t *testing.T) {
	for _, start := range []ControlNumbers{{Interchange: "abc"}, {Group: "1000000000"}, {Transaction: "-1"}} {
		if _, err := NewControlNumberGenerator(start); err == nil {
			t.Errorf("expected error for start %+v", start)
		}
	}
}

func TestControlNumberGenerator_ConcurrentUnique(t *testing.T) {
	g, err := NewRandomControlNumberGenerator()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const workers, perWorker = 16, 200
	var (
		mu   sync.Mutex
		seen = make(map[string]bool, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, g.Next(ScopeInterchange))
			}
			mu.Lock()
			defer mu.Unlock()
			for _, n := range local {
				if seen[n] {
					t.Errorf("duplicate control number %s", n)
				}
				seen[n] = true
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d unique numbers, got %d", workers*perWorker, len(seen))
	}
}

func TestControlNumbers_Validate(t *testing.T) {
	valid := ControlNumbers{Interchange: "000000001", Group: "1", Transaction: "0001"}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	bad := []ControlNumbers{
		{Interchange: "1", Group: "1", Transaction: "0001"},
		{Interchange: "000000001", Group: "", Transaction: "0001"},
		{Interchange: "000000001", Group: "1", Transaction: "1"},
		{Interchange: "00000000A", Group: "1", Transaction: "0001"},
		{Interchange: "000000001", Group: "1", Transaction: "0000000001"},
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("expected %+v to be rejected", c)
		}
	}
}

func TestControlScope_String(t *testing.T) {
	if ScopeGroup.String() != "group" {
		t.Errorf("unexpected scope name %s", ScopeGroup)
	}
	if ControlScope(9).String() != "scope(9)" {
		t.Errorf("unexpected scope name %s", ControlScope(9))
	}
}
