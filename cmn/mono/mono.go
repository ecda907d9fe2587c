// Package mono provides monotonic-clock helpers for measuring elapsed time
// rather than wall time; lock.Acquire uses them to tell whether a contended
// peer's partial file is still advancing.
package mono

import "time"

// start anchors NanoTime. time.Since reads the monotonic clock reading that
// time.Now attaches, so wall-clock adjustments do not affect the result.
var start = time.Now()

// NanoTime returns a monotonic timestamp, in nanoseconds, suitable only for
// computing deltas against other values returned by NanoTime.
func NanoTime() int64 {
	return int64(time.Since(start))
}

// Since returns the elapsed duration since a NanoTime timestamp.
func Since(t int64) time.Duration {
	return time.Duration(NanoTime() - t)
}

// SinceNano returns the elapsed nanoseconds since a NanoTime timestamp.
func SinceNano(t int64) int64 {
	return NanoTime() - t
}
