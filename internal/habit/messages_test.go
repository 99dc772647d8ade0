package habit

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func TestMessageForDay(t *testing.T) {
	for day := 1; day <= 14; day++ {
		msg, ok := MessageForDay(day)
		if !ok || msg == "" {
			t.Errorf("day %d has no message", day)
		}
	}
	for _, day := range []int{-1, 0, 15, 100} {
		if msg, ok := MessageForDay(day); ok || msg != "" {
			t.Errorf("day %d: got %q, want none", day, msg)
		}
	}
}

func TestResetMessengerDeterministic(t *testing.T) {
	a := NewResetMessenger(rand.NewPCG(7, 11))
	b := NewResetMessenger(rand.NewPCG(7, 11))
	for i := 0; i < 20; i++ {
		x, y := a.Pick(), b.Pick()
		if x != y {
			t.Fatalf("pick %d differs: %q vs %q", i, x, y)
		}
		if !slices.Contains(resetMessages, x) {
			t.Fatalf("pick %d returned unknown message %q", i, x)
		}
	}
}

func TestRandomResetMessage(t *testing.T) {
	if msg := RandomResetMessage(); !slices.Contains(resetMessages, msg) {
		t.Errorf("unexpected message %q", msg)
	}
}
