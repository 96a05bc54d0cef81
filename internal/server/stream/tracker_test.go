package stream

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// immediateAfterFunc makes grace delays fire synchronously so tests don't
// sleep.
func immediateAfterFunc(d time.Duration, f func()) *time.Timer {
	f()
	return time.NewTimer(0)
}

func TestTracker_Register(t *testing.T) {
	t.Run("creates a record with the custom id prefix", func(t *testing.T) {
		tr := NewTracker()

		id := tr.Register("my-video", "10.0.0.1")
		if !strings.HasPrefix(id, "my-video-") {
			t.Errorf("expected session id prefixed with custom id, got %q", id)
		}
		if tr.ActiveCount() != 1 {
			t.Errorf("expected 1 active stream, got %d", tr.ActiveCount())
		}
	})

	t.Run("session ids are unique", func(t *testing.T) {
		tr := NewTracker()

		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			id := tr.Register("vid", "10.0.0.1")
			if seen[id] {
				t.Fatalf("duplicate session id: %s", id)
			}
			seen[id] = true
		}
	})

	t.Run("records carry client id and start time", func(t *testing.T) {
		tr := NewTracker()
		tr.Register("vid", "192.168.0.7")

		records := tr.Snapshot()
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if records[0].ClientID != "192.168.0.7" {
			t.Errorf("expected client id 192.168.0.7, got %s", records[0].ClientID)
		}
		if records[0].CustomID != "vid" {
			t.Errorf("expected custom id vid, got %s", records[0].CustomID)
		}
		if records[0].StartTime.IsZero() {
			t.Error("expected a start time")
		}
	})
}

func TestTracker_AddBytes(t *testing.T) {
	t.Run("credits record and global counter", func(t *testing.T) {
		tr := NewTracker()
		id := tr.Register("vid", "ip")

		tr.AddBytes(id, 100)
		tr.AddBytes(id, 250)

		records := tr.Snapshot()
		if records[0].BytesStreamed != 350 {
			t.Errorf("expected 350 bytes on record, got %d", records[0].BytesStreamed)
		}
		if tr.TotalBandwidth() != 350 {
			t.Errorf("expected 350 total bandwidth, got %d", tr.TotalBandwidth())
		}
	})

	t.Run("unknown id still counts toward global bandwidth", func(t *testing.T) {
		tr := NewTracker()

		tr.AddBytes("gone", 42)
		if tr.TotalBandwidth() != 42 {
			t.Errorf("expected 42 total bandwidth, got %d", tr.TotalBandwidth())
		}
	})

	t.Run("bandwidth accumulates across streams", func(t *testing.T) {
		tr := NewTracker()
		a := tr.Register("a", "ip")
		b := tr.Register("b", "ip")

		tr.AddBytes(a, 10)
		tr.AddBytes(b, 20)

		if tr.TotalBandwidth() != 30 {
			t.Errorf("expected 30 total bandwidth, got %d", tr.TotalBandwidth())
		}
	})
}

func TestTracker_Release(t *testing.T) {
	t.Run("zero grace removes immediately", func(t *testing.T) {
		tr := NewTracker()
		id := tr.Register("vid", "ip")

		tr.Release(id, 0)
		if tr.ActiveCount() != 0 {
			t.Errorf("expected 0 active streams, got %d", tr.ActiveCount())
		}
	})

	t.Run("record survives until the grace delay fires", func(t *testing.T) {
		tr := NewTracker()
		id := tr.Register("vid", "ip")

		tr.Release(id, GraceEnd)
		if tr.ActiveCount() != 1 {
			t.Errorf("expected record to remain during grace, got %d active", tr.ActiveCount())
		}
	})

	t.Run("record is removed after the grace delay", func(t *testing.T) {
		tr := NewTracker()
		tr.afterFunc = immediateAfterFunc
		id := tr.Register("vid", "ip")

		tr.Release(id, GraceDisconnect)
		if tr.ActiveCount() != 0 {
			t.Errorf("expected 0 active streams after grace, got %d", tr.ActiveCount())
		}
	})

	t.Run("bandwidth counter outlives the record", func(t *testing.T) {
		tr := NewTracker()
		tr.afterFunc = immediateAfterFunc
		id := tr.Register("vid", "ip")

		tr.AddBytes(id, 500)
		tr.Release(id, GraceEnd)

		if tr.TotalBandwidth() != 500 {
			t.Errorf("expected bandwidth 500 after release, got %d", tr.TotalBandwidth())
		}
	})
}

func TestCountingWriter(t *testing.T) {
	tr := NewTracker()
	id := tr.Register("vid", "ip")

	var buf bytes.Buffer
	cw := &CountingWriter{W: &buf, Tracker: tr, StreamID: id}

	n, err := cw.Write([]byte("hello world"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 11 {
		t.Errorf("expected 11 bytes written, got %d", n)
	}
	if buf.String() != "hello world" {
		t.Errorf("unexpected buffer contents %q", buf.String())
	}
	if tr.TotalBandwidth() != 11 {
		t.Errorf("expected 11 bytes tracked, got %d", tr.TotalBandwidth())
	}

	records := tr.Snapshot()
	if records[0].BytesStreamed != 11 {
		t.Errorf("expected 11 bytes on record, got %d", records[0].BytesStreamed)
	}
}

func TestRandomToken(t *testing.T) {
	token := randomToken(7)
	if len(token) != 7 {
		t.Errorf("expected length 7, got %d", len(token))
	}
	for _, r := range token {
		if !strings.ContainsRune("abcdefghijklmnopqrstuvwxyz0123456789", r) {
			t.Errorf("unexpected character %q in token", r)
		}
	}
}
