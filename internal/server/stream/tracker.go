// Package stream tracks in-progress video streams and cumulative bandwidth.
//
// All state is process-local and lost on restart. The figures it reports are
// only meaningful for a single-process deployment.
package stream

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// Grace delays before a finished stream record is dropped, so analytics
// polls can still observe just-finished streams.
const (
	GraceEnd        = 5 * time.Second
	GraceError      = 1 * time.Second
	GraceDisconnect = 2 * time.Second
)

// Record is the bookkeeping entry for one in-progress streaming response.
type Record struct {
	ID            string
	CustomID      string
	ClientID      string
	StartTime     time.Time
	BytesStreamed int64
}

// Age returns how long the stream has been open.
func (r Record) Age() time.Duration {
	return time.Since(r.StartTime)
}

// Tracker is the in-memory registry of active streams plus the process-wide
// bandwidth counter.
type Tracker struct {
	mu             sync.Mutex
	streams        map[string]*Record
	totalBandwidth int64

	// afterFunc is time.AfterFunc unless overridden in tests.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		streams:   make(map[string]*Record),
		afterFunc: time.AfterFunc,
	}
}

// Register creates a record for a new stream and returns its session id.
// The id combines the video's custom id, the wall-clock time in milliseconds
// and a short random token.
func (t *Tracker) Register(customID, clientID string) string {
	id := fmt.Sprintf("%s-%d-%s", customID, time.Now().UnixMilli(), randomToken(7))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.streams[id] = &Record{
		ID:        id,
		CustomID:  customID,
		ClientID:  clientID,
		StartTime: time.Now(),
	}
	return id
}

// AddBytes credits n streamed bytes to the given stream and to the global
// bandwidth counter. Unknown ids still count toward global bandwidth, since
// bytes may land after the record's grace delay has expired.
func (t *Tracker) AddBytes(id string, n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalBandwidth += n
	if rec, ok := t.streams[id]; ok {
		rec.BytesStreamed += n
	}
}

// Release schedules removal of a stream record after the given grace delay.
// A zero delay removes it immediately.
func (t *Tracker) Release(id string, grace time.Duration) {
	if grace <= 0 {
		t.remove(id)
		return
	}
	t.afterFunc(grace, func() { t.remove(id) })
}

func (t *Tracker) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.streams, id)
}

// ActiveCount returns the number of live (or within-grace) stream records.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streams)
}

// TotalBandwidth returns the cumulative bytes streamed since process start.
func (t *Tracker) TotalBandwidth() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalBandwidth
}

// Snapshot returns a copy of all current stream records.
func (t *Tracker) Snapshot() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	records := make([]Record, 0, len(t.streams))
	for _, rec := range t.streams {
		records = append(records, *rec)
	}
	return records
}

// randomToken produces a short lowercase alphanumeric token. Collision
// probability across concurrent streams of one video in the same millisecond
// is treated as negligible.
func randomToken(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			// crypto/rand failing means the process is in a bad state;
			// fall back to a fixed byte rather than aborting the stream.
			result[i] = charset[0]
			continue
		}
		result[i] = charset[n.Int64()]
	}
	return string(result)
}
