package clock

import (
	"sync"
	"testing"
	"time"
)

func TestScripted(t *testing.T) {
	t1 := time.Date(2018, 6, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Second)

	c := NewScripted(t1, t2)

	tests := []struct {
		name     string
		expected time.Time
		calls    int
	}{
		{"first", t1, 1},
		{"second", t2, 2},
		{"past end repeats last", t2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Now()
			if !got.Equal(tt.expected) {
				t.Errorf("Now() = %v, expected %v", got, tt.expected)
			}
			if c.Calls() != tt.calls {
				t.Errorf("Calls() = %d, expected %d", c.Calls(), tt.calls)
			}
		})
	}
}

func TestScriptedEmpty(t *testing.T) {
	c := NewScripted()
	if got := c.Now(); !got.IsZero() {
		t.Errorf("Now() = %v, expected zero time", got)
	}
	if c.Calls() != 1 {
		t.Errorf("Calls() = %d, expected 1", c.Calls())
	}
}

func TestManual(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)

	if !m.Now().Equal(start) {
		t.Fatalf("Now() = %v, expected %v", m.Now(), start)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Advance(time.Second)
		}()
	}
	wg.Wait()

	if expected := start.Add(10 * time.Second); !m.Now().Equal(expected) {
		t.Errorf("Now() = %v, expected %v", m.Now(), expected)
	}

	m.Set(start)
	if !m.Now().Equal(start) {
		t.Errorf("Now() after Set = %v, expected %v", m.Now(), start)
	}
}

func TestFunc(t *testing.T) {
	fixed := time.Date(2020, 2, 2, 2, 2, 2, 0, time.UTC)
	var c Clock = Func(func() time.Time { return fixed })
	if !c.Now().Equal(fixed) {
		t.Errorf("Now() = %v, expected %v", c.Now(), fixed)
	}
}
