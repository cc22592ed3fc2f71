package resilience

import "time"

// callRecord is a single timestamped call outcome.
type callRecord struct {
	at      time.Time
	failure bool
}

// callWindow is a bounded ring of recent call outcomes used to compute a
// rolling failure rate. It is not safe for concurrent use; the circuit
// breaker serializes access under its lock.
type callWindow struct {
	records []callRecord
	head    int // index of the oldest record
	count   int
	maxAge  time.Duration // 0 disables age-based eviction
	clock   Clock
}

func newCallWindow(size int, maxAge time.Duration, clock Clock) *callWindow {
	return &callWindow{
		records: make([]callRecord, size),
		maxAge:  maxAge,
		clock:   orSystem(clock),
	}
}

// record appends an outcome, evicting the oldest when the ring is full.
func (w *callWindow) record(failure bool) {
	idx := (w.head + w.count) % len(w.records)
	if w.count == len(w.records) {
		w.head = (w.head + 1) % len(w.records)
	} else {
		w.count++
	}
	w.records[idx] = callRecord{at: w.clock.Now(), failure: failure}
}

// evictExpired drops records older than maxAge.
func (w *callWindow) evictExpired() {
	if w.maxAge <= 0 {
		return
	}
	cutoff := w.clock.Now().Add(-w.maxAge)
	for w.count > 0 && w.records[w.head].at.Before(cutoff) {
		w.head = (w.head + 1) % len(w.records)
		w.count--
	}
}

// size returns the number of live records.
func (w *callWindow) size() int {
	w.evictExpired()
	return w.count
}

// failureRate returns the fraction of live records that are failures.
// An empty window has rate 0.
func (w *callWindow) failureRate() float64 {
	w.evictExpired()
	if w.count == 0 {
		return 0
	}
	failures := 0
	for i := 0; i < w.count; i++ {
		if w.records[(w.head+i)%len(w.records)].failure {
			failures++
		}
	}
	return float64(failures) / float64(w.count)
}

// reset discards all records.
func (w *callWindow) reset() {
	w.head = 0
	w.count = 0
}
