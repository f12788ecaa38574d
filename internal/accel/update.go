package accel

import "time"

// Update processes one raw device-frame sample.
func (a *Accelerometer) Update(timestampSample time.Duration, x, y, z float64) {
	raw := [3]float64{x, y, z}

	// Clipping is judged on raw, unscaled values.
	a.clipSample(raw)

	val := a.rotationDCM.Apply(raw)
	for i := range val {
		val[i] *= a.scale
	}

	a.pub.Publish(TopicSensorAccel, SensorAccel{
		Timestamp:       a.clock.Now(),
		TimestampSample: timestampSample,
		DeviceID:        uint32(a.deviceID),
		Temperature:     a.temperature,
		X:               val[0],
		Y:               val[1],
		Z:               val[2],
	})

	a.integratorSamples++

	if deltaVelocity, dt, ok := a.integrator.Put(timestampSample, val); ok {
		a.pub.Publish(TopicSensorAccelIntegrated, SensorAccelIntegrated{
			Timestamp:       a.clock.Now(),
			TimestampSample: timestampSample,
			DeviceID:        uint32(a.deviceID),
			ErrorCount:      a.errorCount,
			DeltaVelocity:   deltaVelocity,
			DT:              dt,
			Samples:         a.integratorSamples,
			ClipCounter:     a.windowClipCounts(),
		})

		a.resetIntegrator()
		a.updateVibrationMetric(deltaVelocity)
	}

	a.publishStatus()
}
