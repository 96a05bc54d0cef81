package api

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		size      int64
		wantStart int64
		wantEnd   int64
		wantErr   bool
	}{
		{name: "absent header spans whole file", header: "", size: 1000, wantStart: 0, wantEnd: 999},
		{name: "closed range", header: "bytes=100-199", size: 1000, wantStart: 100, wantEnd: 199},
		{name: "open ended range", header: "bytes=100-", size: 1000, wantStart: 100, wantEnd: 999},
		{name: "single byte", header: "bytes=0-0", size: 1000, wantStart: 0, wantEnd: 0},
		{name: "end clamped to file size", header: "bytes=900-2000", size: 1000, wantStart: 900, wantEnd: 999},
		{name: "malformed spans whole file", header: "bytes=abc", size: 1000, wantStart: 0, wantEnd: 999},
		{name: "wrong unit spans whole file", header: "items=1-2", size: 1000, wantStart: 0, wantEnd: 999},
		{name: "start past end of file", header: "bytes=1000-", size: 1000, wantErr: true},
		{name: "start after end", header: "bytes=5-2", size: 1000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := parseRange(tt.header, tt.size)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", r)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.start != tt.wantStart || r.end != tt.wantEnd {
				t.Errorf("got [%d,%d], want [%d,%d]", r.start, r.end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestStreamEndpoint(t *testing.T) {
	content := make([]byte, 300)
	for i := range content {
		content[i] = byte(i % 251)
	}

	t.Run("no range header still returns 206 with full span", func(t *testing.T) {
		f := newFixture(t)
		f.seedVideo(t, "full", content)

		rec := f.request(t, http.MethodGet, "/api/stream/full", nil)
		if rec.Code != http.StatusPartialContent {
			t.Fatalf("expected 206, got %d", rec.Code)
		}
		if got := rec.Header().Get("Content-Range"); got != fmt.Sprintf("bytes 0-299/%d", len(content)) {
			t.Errorf("unexpected Content-Range %q", got)
		}
		if got := rec.Header().Get("Content-Length"); got != "300" {
			t.Errorf("unexpected Content-Length %q", got)
		}
		if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
			t.Errorf("unexpected Accept-Ranges %q", got)
		}
		if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
			t.Errorf("unexpected Content-Type %q", got)
		}
		if !bytes.Equal(rec.Body.Bytes(), content) {
			t.Error("body does not match stored content")
		}
	})

	t.Run("closed range returns exactly those bytes", func(t *testing.T) {
		f := newFixture(t)
		f.seedVideo(t, "partial", content)

		rec := f.request(t, http.MethodGet, "/api/stream/partial", nil, func(r *http.Request) {
			r.Header.Set("Range", "bytes=100-199")
		})
		if rec.Code != http.StatusPartialContent {
			t.Fatalf("expected 206, got %d", rec.Code)
		}
		if got := rec.Header().Get("Content-Range"); got != "bytes 100-199/300" {
			t.Errorf("unexpected Content-Range %q", got)
		}
		if got := rec.Header().Get("Content-Length"); got != "100" {
			t.Errorf("unexpected Content-Length %q", got)
		}
		if !bytes.Equal(rec.Body.Bytes(), content[100:200]) {
			t.Error("body does not match requested slice")
		}
	})

	t.Run("unsatisfiable range returns 416", func(t *testing.T) {
		f := newFixture(t)
		f.seedVideo(t, "beyond", content)

		rec := f.request(t, http.MethodGet, "/api/stream/beyond", nil, func(r *http.Request) {
			r.Header.Set("Range", "bytes=5000-")
		})
		if rec.Code != http.StatusRequestedRangeNotSatisfiable {
			t.Fatalf("expected 416, got %d", rec.Code)
		}
		if got := rec.Header().Get("Content-Range"); got != "bytes */300" {
			t.Errorf("unexpected Content-Range %q", got)
		}
	})

	t.Run("unknown custom id returns 404", func(t *testing.T) {
		f := newFixture(t)

		rec := f.request(t, http.MethodGet, "/api/stream/nope", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("streaming increments views and records bandwidth", func(t *testing.T) {
		f := newFixture(t)
		video := f.seedVideo(t, "counted", content)

		f.request(t, http.MethodGet, "/api/stream/counted", nil)
		f.request(t, http.MethodGet, "/api/stream/counted", nil)

		stored := f.repo.videos[video.ID]
		if stored.Views != 2 {
			t.Errorf("expected 2 views, got %d", stored.Views)
		}
		if f.tracker.TotalBandwidth() != int64(2*len(content)) {
			t.Errorf("expected %d bytes of bandwidth, got %d", 2*len(content), f.tracker.TotalBandwidth())
		}
		// Finished streams linger in the tracker until the grace delay fires
		if f.tracker.ActiveCount() != 2 {
			t.Errorf("expected 2 lingering streams, got %d", f.tracker.ActiveCount())
		}
	})
}

func TestStreamAnalyticsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seedVideo(t, "watched", []byte("watch me"))
	f.request(t, http.MethodGet, "/api/stream/watched", nil)

	rec := f.request(t, http.MethodGet, "/api/stream-analytics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var analytics struct {
		ActiveStreams int `json:"activeStreams"`
		StreamDetails []struct {
			ID       string `json:"id"`
			Duration int64  `json:"duration"`
			ClientID string `json:"clientId"`
		} `json:"streamDetails"`
		TotalConcurrentLimit int `json:"totalConcurrentLimit"`
	}
	decodeJSON(t, rec, &analytics)

	if analytics.ActiveStreams != 1 {
		t.Fatalf("expected 1 active stream, got %d", analytics.ActiveStreams)
	}
	if len(analytics.StreamDetails) != 1 {
		t.Fatalf("expected 1 stream detail, got %d", len(analytics.StreamDetails))
	}
	if analytics.StreamDetails[0].ID != "watched" {
		t.Errorf("expected stream id %q, got %q", "watched", analytics.StreamDetails[0].ID)
	}
	if analytics.StreamDetails[0].Duration < 0 {
		t.Errorf("negative duration %d", analytics.StreamDetails[0].Duration)
	}
	if analytics.TotalConcurrentLimit != 250 {
		t.Errorf("expected concurrent limit 250, got %d", analytics.TotalConcurrentLimit)
	}
}
