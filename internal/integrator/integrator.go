// Package integrator provides a trapezoidal single-sample integrator that
// turns a stream of timestamped vectors into fixed-length integrals.
package integrator

import "time"

// maxGap bounds the spacing between consecutive samples. A larger gap drops
// the partial window and restarts from the new sample.
const maxGap = time.Second

// Integrator accumulates samples until resetInterval has elapsed or
// resetSamples samples have been integrated, whichever comes first. A zero
// limit disables that condition. Not safe for concurrent use.
type Integrator struct {
	resetInterval time.Duration
	resetSamples  int

	haveLast      bool
	lastTimestamp time.Duration
	lastVal       [3]float64

	alpha   [3]float64
	elapsed time.Duration
	samples int
}

func New(resetInterval time.Duration, resetSamples int) *Integrator {
	return &Integrator{resetInterval: resetInterval, resetSamples: resetSamples}
}

// Put integrates val from the previous sample to timestamp. It returns the
// window integral and its duration when the window is complete.
func (i *Integrator) Put(timestamp time.Duration, val [3]float64) ([3]float64, time.Duration, bool) {
	if !i.haveLast || timestamp <= i.lastTimestamp || timestamp-i.lastTimestamp > maxGap {
		i.Reset()
		i.haveLast = true
		i.lastTimestamp = timestamp
		i.lastVal = val
		return [3]float64{}, 0, false
	}

	dt := timestamp - i.lastTimestamp
	sec := dt.Seconds()
	for k := range i.alpha {
		i.alpha[k] += 0.5 * (i.lastVal[k] + val[k]) * sec
	}
	i.elapsed += dt
	i.samples++
	i.lastTimestamp = timestamp
	i.lastVal = val

	if !i.ready() {
		return [3]float64{}, 0, false
	}
	integral, elapsed := i.alpha, i.elapsed
	i.Reset()
	return integral, elapsed, true
}

func (i *Integrator) ready() bool {
	if i.resetSamples > 0 && i.samples >= i.resetSamples {
		return true
	}
	if i.resetInterval > 0 && i.elapsed >= i.resetInterval {
		return true
	}
	return false
}

// Reset drops the partial window. The last sample is kept so the next Put
// continues the trapezoid from it.
func (i *Integrator) Reset() {
	i.alpha = [3]float64{}
	i.elapsed = 0
	i.samples = 0
}
