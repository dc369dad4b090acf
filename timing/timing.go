// Package timing provides the wall-clock stopwatches behind the latency
// readouts (retrieval, first token, generation, synthesis).
package timing

import "time"

type Stopwatch struct {
	start time.Time
}

func Start() Stopwatch {
	return Stopwatch{start: time.Now()}
}

func (s Stopwatch) Elapsed() time.Duration {
	return time.Since(s.start)
}

// Ms renders a duration the way the performance readout prints it.
func Ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
