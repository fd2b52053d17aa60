package sched

import "container/heap"

// edfHeap is the container/heap.Interface backing EDFQueue, keyed on
// Thread.Deadline ascending — for the runnable queue that gives
// earliest-deadline-first order; for the pending queue the same field
// holds the next arrival time, giving earliest-arrival-first order.
type edfHeap []*Thread

func (h edfHeap) Len() int            { return len(h) }
func (h edfHeap) Less(i, j int) bool  { return h[i].Deadline < h[j].Deadline }
func (h edfHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *edfHeap) Push(x interface{}) { *h = append(*h, x.(*Thread)) }
func (h *edfHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// EDFQueue is the binary heap priority queue backing the runnable and
// pending queues: fixed logical capacity, O(log n) enqueue/dequeue,
// O(n log n) remove-by-identity via drain-and-rebuild.
type EDFQueue struct {
	tag      QueueTag
	capacity int
	h        edfHeap
}

// NewEDFQueue constructs an empty queue tagged with the QueueTag it
// represents (QueueRunnable or QueuePending), used to keep the invariant
// that a thread's QueueTag always matches the queue holding it easy to
// maintain at every call site.
func NewEDFQueue(tag QueueTag, capacity int) *EDFQueue {
	q := &EDFQueue{tag: tag, capacity: capacity}
	heap.Init(&q.h)
	return q
}

// Enqueue pushes t, keyed by its current Deadline, and sets its
// QueueTag. Returns false (a programming error) if the queue is at
// capacity; the caller panics.
func (q *EDFQueue) Enqueue(t *Thread) bool {
	if len(q.h) >= q.capacity {
		return false
	}
	heap.Push(&q.h, t)
	t.QueueTag = q.tag
	return true
}

// Dequeue removes and returns the minimum-deadline thread, or nil if
// empty.
func (q *EDFQueue) Dequeue() *Thread {
	if len(q.h) == 0 {
		return nil
	}
	t := heap.Pop(&q.h).(*Thread)
	t.QueueTag = QueueNone
	return t
}

// Peek returns the minimum-deadline thread without removing it, or nil.
func (q *EDFQueue) Peek() *Thread {
	if len(q.h) == 0 {
		return nil
	}
	return q.h[0]
}

// Remove removes t by identity if present, draining and rebuilding the
// heap — acceptable because it runs only on rare paths: constraint
// change, migration. Returns whether t was found.
func (q *EDFQueue) Remove(t *Thread) bool {
	found := false
	rest := make([]*Thread, 0, len(q.h))
	for _, x := range q.h {
		if x == t {
			found = true
			continue
		}
		rest = append(rest, x)
	}
	if !found {
		return false
	}
	q.h = rest
	heap.Init(&q.h)
	t.QueueTag = QueueNone
	return true
}

// Len reports the number of queued threads.
func (q *EDFQueue) Len() int { return len(q.h) }

// Empty reports whether the queue holds no threads.
func (q *EDFQueue) Empty() bool { return len(q.h) == 0 }

// Dump returns a shallow copy of the queue contents for diagnostics; it
// does not preserve heap order guarantees beyond "root is minimum".
func (q *EDFQueue) Dump() []*Thread {
	out := make([]*Thread, len(q.h))
	copy(out, q.h)
	return out
}
