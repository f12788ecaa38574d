package accel

import "math"

// updateClipLimit sets the raw saturation threshold: 99.9% of full-scale
// range in raw units, never below the int16 ceiling.
//
// For any scale where range/scale <= 32767 the floor wins and only a raw
// reading at the ceiling counts as clipped.
func (a *Accelerometer) updateClipLimit() {
	a.clipLimit = math.Max(a.rangeMax/a.scale*0.999, math.MaxInt16)
}

// clipSample counts raw (unrotated, unscaled) components at or above the limit.
func (a *Accelerometer) clipSample(raw [3]float64) {
	for i, v := range raw {
		if math.Abs(v) >= a.clipLimit {
			a.clippingTotal[i]++
			a.integratorClipping[i]++
		}
	}
}

func (a *Accelerometer) clipBatch(s *FIFOSample) {
	counts := [3]uint32{
		clipping(s.X[:s.Samples], a.clipLimit),
		clipping(s.Y[:s.Samples], a.clipLimit),
		clipping(s.Z[:s.Samples], a.clipLimit),
	}
	for i, n := range counts {
		a.clippingTotal[i] += n
		a.integratorClipping[i] += float64(n)
	}
}

func clipping(samples []int16, limit float64) uint32 {
	var n uint32
	for _, v := range samples {
		if math.Abs(float64(v)) >= limit {
			n++
		}
	}
	return n
}
