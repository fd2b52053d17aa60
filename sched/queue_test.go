package sched

import "testing"

func mkThread(name string, deadline uint64) *Thread {
	t := NewThread(name, -1, 0)
	t.Deadline = deadline
	return t
}

func TestEDFQueueOrdersByDeadline(t *testing.T) {
	q := NewEDFQueue(QueueRunnable, 8)
	a := mkThread("a", 300)
	b := mkThread("b", 100)
	c := mkThread("c", 200)

	for _, th := range []*Thread{a, b, c} {
		if !q.Enqueue(th) {
			t.Fatalf("enqueue %s failed", th.Name)
		}
		if th.QueueTag != QueueRunnable {
			t.Errorf("%s QueueTag = %v, want QueueRunnable", th.Name, th.QueueTag)
		}
	}

	order := []string{}
	for q.Len() > 0 {
		order = append(order, q.Dequeue().Name)
	}
	want := []string{"b", "c", "a"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("dequeue order = %v, want %v", order, want)
		}
	}
}

func TestEDFQueueCapacity(t *testing.T) {
	q := NewEDFQueue(QueuePending, 1)
	if !q.Enqueue(mkThread("a", 1)) {
		t.Fatal("first enqueue should succeed")
	}
	if q.Enqueue(mkThread("b", 2)) {
		t.Fatal("second enqueue should fail at capacity")
	}
}

func TestEDFQueueRemove(t *testing.T) {
	q := NewEDFQueue(QueueRunnable, 8)
	a := mkThread("a", 10)
	b := mkThread("b", 20)
	q.Enqueue(a)
	q.Enqueue(b)

	if !q.Remove(a) {
		t.Fatal("remove of present thread should succeed")
	}
	if a.QueueTag != QueueNone {
		t.Errorf("removed thread QueueTag = %v, want QueueNone", a.QueueTag)
	}
	if q.Remove(a) {
		t.Fatal("second remove of same thread should fail")
	}
	if got := q.Peek().Name; got != "b" {
		t.Errorf("remaining thread = %s, want b", got)
	}
}
