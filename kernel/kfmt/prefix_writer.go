package kfmt

import "io"

// PrefixWriter is an io.Writer that wraps another io.Writer and injects a
// prefix at the beginning of each line. The prefix for a line is emitted
// lazily, when its first byte arrives, so a trailing '\n' does not leave a
// dangling prefix behind.
type PrefixWriter struct {
	// A writer where all writes get sent to.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	// midLine is set while the last byte sent to Sink was not a '\n'.
	midLine bool
}

// Reset points w at a new sink and prefix and starts a new line. It allows a
// single PrefixWriter to be reused without allocating a new one.
func (w *PrefixWriter) Reset(sink io.Writer, prefix []byte) {
	w.Sink, w.Prefix, w.midLine = sink, prefix, false
}

// Write sends p to the sink, one line at a time, and returns the number of
// bytes from p that were written. The injected prefixes are not included in
// the returned count.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written int

	for len(p) != 0 {
		if !w.midLine {
			w.Sink.Write(w.Prefix)
			w.midLine = true
		}

		end := 0
		for end < len(p) && p[end] != '\n' {
			end++
		}
		if end < len(p) {
			end++
		}

		n, err := w.Sink.Write(p[:end])
		written += n
		if err != nil {
			return written, err
		}

		w.midLine = p[end-1] != '\n'
		p = p[end:]
	}

	return written, nil
}
