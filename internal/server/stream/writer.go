package stream

import "io"

// CountingWriter wraps a writer and credits every written chunk to a
// tracker record, mirroring per-chunk bandwidth accounting on the response
// path.
type CountingWriter struct {
	W        io.Writer
	Tracker  *Tracker
	StreamID string
}

func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	if n > 0 {
		cw.Tracker.AddBytes(cw.StreamID, int64(n))
	}
	return n, err
}
