package accel

import "gonum.org/v1/gonum/floats"

// updateVibrationMetric low-pass filters the length of the change in
// delta-velocity between consecutive windows.
func (a *Accelerometer) updateVibrationMetric(deltaVelocity [3]float64) {
	diff := deltaVelocity
	floats.Sub(diff[:], a.deltaVelocityPrev[:])
	a.vibrationMetric = 0.99*a.vibrationMetric + 0.01*floats.Norm(diff[:], 2)
	a.deltaVelocityPrev = deltaVelocity
}
