package accel

import (
	"fmt"
	"time"
)

// FIFOCapacity is the largest batch UpdateFIFO accepts.
const FIFOCapacity = 16

// FIFOSample is a batch of equally spaced raw samples read from the sensor
// FIFO. Only the first Samples entries of X, Y and Z are used.
type FIFOSample struct {
	TimestampSample time.Duration // time of the last sample in the batch
	DT              time.Duration // spacing between samples
	Samples         int
	X, Y, Z         [FIFOCapacity]int16
}

func (s *FIFOSample) validate() error {
	if s == nil {
		return fmt.Errorf("accel: fifo sample is nil: %w", ErrInvalidArgument)
	}
	if s.Samples < 1 || s.Samples > FIFOCapacity {
		return fmt.Errorf("accel: fifo samples %d out of range [1,%d]: %w", s.Samples, FIFOCapacity, ErrInvalidArgument)
	}
	if s.DT <= 0 {
		return fmt.Errorf("accel: fifo dt %s must be > 0: %w", s.DT, ErrInvalidArgument)
	}
	return nil
}

// UpdateFIFO processes one FIFO batch. A malformed batch is rejected before
// any state changes.
func (a *Accelerometer) UpdateFIFO(s *FIFOSample) error {
	if err := s.validate(); err != nil {
		return err
	}
	n := s.Samples
	dt := s.DT

	// Publish the batch mean immediately.
	{
		mean := [3]float64{
			float64(sum(s.X[:n])) / float64(n),
			float64(sum(s.Y[:n])) / float64(n),
			float64(sum(s.Z[:n])) / float64(n),
		}
		val := a.rotationDCM.Apply(mean)
		for i := range val {
			val[i] *= a.scale
		}
		a.pub.Publish(TopicSensorAccel, SensorAccel{
			Timestamp:       a.clock.Now(),
			TimestampSample: s.TimestampSample,
			DeviceID:        uint32(a.deviceID),
			Temperature:     a.temperature,
			X:               val[0],
			Y:               val[1],
			Z:               val[2],
		})
	}

	// Clips are counted before the gap check, so a gap reset drops this
	// batch's clips from the window count. Lifetime totals keep them.
	a.clipBatch(s)

	// Data older than two batch lengths was lost: start a fresh window.
	if a.havePrevTimestamp && s.TimestampSample > a.timestampSamplePrev &&
		s.TimestampSample-a.timestampSamplePrev > 2*time.Duration(n)*dt {
		a.resetIntegrator()
	}

	a.integratorSamples++
	a.integratorFIFOCount += n

	// Trapezoidal rule across the carried boundary sample; dt is applied at
	// emission.
	a.integrationRaw[0] += 0.5*(a.lastSample[0]+float64(s.X[n-1])) + float64(sum(s.X[:n-1]))
	a.integrationRaw[1] += 0.5*(a.lastSample[1]+float64(s.Y[n-1])) + float64(sum(s.Y[:n-1]))
	a.integrationRaw[2] += 0.5*(a.lastSample[2]+float64(s.Z[n-1])) + float64(sum(s.Z[:n-1]))
	a.lastSample = [3]float64{float64(s.X[n-1]), float64(s.Y[n-1]), float64(s.Z[n-1])}

	if a.integratorFIFOCount > 0 && a.integratorSamples >= a.integratorResetCount {
		deltaVelocity := a.rotationDCM.Apply(a.integrationRaw)
		k := a.scale * dt.Seconds()
		for i := range deltaVelocity {
			deltaVelocity[i] *= k
		}

		a.pub.Publish(TopicSensorAccelIntegrated, SensorAccelIntegrated{
			Timestamp:       a.clock.Now(),
			TimestampSample: s.TimestampSample,
			DeviceID:        uint32(a.deviceID),
			ErrorCount:      a.errorCount,
			DeltaVelocity:   deltaVelocity,
			DT:              time.Duration(a.integratorFIFOCount) * dt,
			Samples:         a.integratorFIFOCount,
			ClipCounter:     a.windowClipCounts(),
		})

		a.updateVibrationMetric(deltaVelocity)
		a.resetIntegrator()
	}

	a.timestampSamplePrev = s.TimestampSample
	a.havePrevTimestamp = true

	a.pub.Publish(TopicSensorAccelFIFO, SensorAccelFIFO{
		Timestamp:       a.clock.Now(),
		TimestampSample: s.TimestampSample,
		DeviceID:        uint32(a.deviceID),
		DT:              dt,
		Scale:           a.scale,
		Samples:         n,
		X:               append([]int16(nil), s.X[:n]...),
		Y:               append([]int16(nil), s.Y[:n]...),
		Z:               append([]int16(nil), s.Z[:n]...),
	})

	a.publishStatus()
	return nil
}

// FIFOSampleFromEcho rebuilds the batch that produced a published echo.
func FIFOSampleFromEcho(e SensorAccelFIFO) (*FIFOSample, error) {
	s := &FIFOSample{
		TimestampSample: e.TimestampSample,
		DT:              e.DT,
		Samples:         e.Samples,
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	if len(e.X) < e.Samples || len(e.Y) < e.Samples || len(e.Z) < e.Samples {
		return nil, fmt.Errorf("accel: fifo echo arrays shorter than samples=%d: %w", e.Samples, ErrInvalidArgument)
	}
	copy(s.X[:], e.X[:e.Samples])
	copy(s.Y[:], e.Y[:e.Samples])
	copy(s.Z[:], e.Z[:e.Samples])
	return s, nil
}

func sum(samples []int16) int32 {
	var total int32
	for _, v := range samples {
		total += int32(v)
	}
	return total
}
