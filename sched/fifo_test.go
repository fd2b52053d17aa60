package sched

import (
	"math/rand"
	"testing"
)

func TestRoundRobinSkipsIdleWhileOthersWait(t *testing.T) {
	q := NewRoundRobinQueue(8)
	idle := mkThread("idle", 0)
	idle.IsIdle = true
	real := mkThread("real", 0)

	q.Put(idle)
	q.Put(real)

	first := q.GetNext()
	if first.Name != "real" {
		t.Fatalf("GetNext = %s, want real (idle should rotate to tail)", first.Name)
	}
}

func TestRoundRobinReturnsIdleAlone(t *testing.T) {
	q := NewRoundRobinQueue(8)
	idle := mkThread("idle", 0)
	idle.IsIdle = true
	q.Put(idle)

	got := q.GetNext()
	if got != idle {
		t.Fatalf("GetNext should return the only thread even if idle")
	}
}

func TestLotteryTicketsWeightSelection(t *testing.T) {
	q := NewLotteryQueue(8, rand.New(rand.NewSource(42)))
	heavy := mkThread("heavy", 0)
	heavy.Constraints.Aperiodic.Priority = 1000
	light := mkThread("light", 0)
	light.Constraints.Aperiodic.Priority = 1

	q.Put(heavy)
	q.Put(light)

	counts := map[string]int{}
	for i := 0; i < 200; i++ {
		q := NewLotteryQueue(8, rand.New(rand.NewSource(int64(i))))
		q.Put(heavy)
		q.Put(light)
		counts[q.GetNext().Name]++
	}
	if counts["heavy"] <= counts["light"] {
		t.Fatalf("expected heavy to win far more draws, got %v", counts)
	}
}

func TestLotteryRemove(t *testing.T) {
	q := NewLotteryQueue(8, rand.New(rand.NewSource(1)))
	a := mkThread("a", 0)
	b := mkThread("b", 0)
	q.Put(a)
	q.Put(b)

	if !q.Remove(a) {
		t.Fatal("remove should succeed")
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1", q.Len())
	}
	if q.totalProb != q.tickets(b) {
		t.Fatalf("totalProb = %d, want %d", q.totalProb, q.tickets(b))
	}
}
