package monitor

import (
	"sync"
	"testing"
	"time"
)

func TestBarrierReleasesAllParticipants(t *testing.T) {
	const n = 4
	b := NewBarrier(n)
	var wg sync.WaitGroup
	done := make([]bool, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Wait()
			done[i] = true
		}(i)
	}

	waitOrTimeout(t, &wg, time.Second)
	for i, d := range done {
		if !d {
			t.Errorf("participant %d never released", i)
		}
	}
}

func TestBarrierReusableAcrossGenerations(t *testing.T) {
	b := NewBarrier(2)
	var wg sync.WaitGroup
	for round := 0; round < 3; round++ {
		wg.Add(2)
		go func() { defer wg.Done(); b.Wait() }()
		go func() { defer wg.Done(); b.Wait() }()
		waitOrTimeout(t, &wg, time.Second)
	}
}

type recordingFollower struct {
	mu  sync.Mutex
	got DebugState
}

func (f *recordingFollower) Propagate(s DebugState) {
	f.mu.Lock()
	f.got = s
	f.mu.Unlock()
}

func TestMonitorPublishesStateToFollowers(t *testing.T) {
	const n = 3
	followers := make([]Follower, n)
	recs := make([]*recordingFollower, n)
	for i := range followers {
		r := &recordingFollower{}
		recs[i] = r
		followers[i] = r
	}
	m := NewMonitor(n, followers)

	var wg sync.WaitGroup
	wg.Add(n)

	go func() {
		defer wg.Done()
		m.Enter(0, nil)
		m.Leave(0, DebugState{Registers: [8]uint64{1, 2, 3}})
	}()
	for i := 1; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			m.SyncEntry(i)
		}(i)
	}

	waitOrTimeout(t, &wg, time.Second)

	// recs[0] belongs to the leader, which is the source of the
	// published state and never propagates to itself.
	for i := 1; i < n; i++ {
		recs[i].mu.Lock()
		got := recs[i].got
		recs[i].mu.Unlock()
		if got.Registers[2] != 3 {
			t.Errorf("follower %d state = %+v, want Registers[2]=3", i, got)
		}
	}

	entered, _ := m.Check()
	if entered {
		t.Error("monitor should be left (entryFlag cleared) after Leave")
	}
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for goroutines")
	}
}
