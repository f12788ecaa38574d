// Package accel conditions raw accelerometer samples for one sensor
// channel: it rotates and scales readings into the body frame, detects
// clipping, integrates delta-velocity for the navigation filter and publishes
// throttled health status.
//
// An Accelerometer is not safe for concurrent use. Every method runs to
// completion without blocking; callers that feed it from more than one
// goroutine must serialize access themselves.
package accel

import (
	"errors"
	"fmt"
	"math"
	"time"

	"accel-ng/internal/bus"
	"accel-ng/internal/clock"
	"accel-ng/internal/devid"
	"accel-ng/internal/integrator"
	"accel-ng/internal/rotation"
)

// ErrInvalidArgument is wrapped by every precondition failure.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	defaultUpdateRateHz = 1000
	defaultRange        = 16 * 9.80665 // m/s^2
	defaultScale        = 1.0

	// Target length of one integration window.
	integrationWindow = 2500 * time.Microsecond

	statusInterval = 100 * time.Millisecond
)

// Integrator is the single-sample delta-velocity integrator used by Update.
// Put accumulates one scaled body-frame sample and reports ok=true exactly
// when a window is complete, returning the integral and its duration.
type Integrator interface {
	Put(timestamp time.Duration, sample [3]float64) (deltaVelocity [3]float64, dt time.Duration, ok bool)
}

type Option func(*Accelerometer)

// WithPublisher sets the sink for every published record.
func WithPublisher(p bus.Publisher) Option {
	return func(a *Accelerometer) {
		if p != nil {
			a.pub = p
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(a *Accelerometer) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithIntegrator replaces the single-sample integrator.
func WithIntegrator(i Integrator) Option {
	return func(a *Accelerometer) {
		if i != nil {
			a.integrator = i
		}
	}
}

type Accelerometer struct {
	pub        bus.Publisher
	clock      clock.Clock
	integrator Integrator

	deviceID    devid.ID
	rotation    rotation.Rotation
	rotationDCM rotation.Matrix

	updateRate           uint16
	integratorResetCount int
	rangeMax             float64
	scale                float64
	clipLimit            float64
	temperature          float64
	errorCount           uint64

	clippingTotal [3]uint32

	// Per-window accumulators, cleared by resetIntegrator.
	integratorClipping  [3]float64 // sensor frame
	integrationRaw      [3]float64
	integratorSamples   int
	integratorFIFOCount int
	timestampSamplePrev time.Duration
	havePrevTimestamp   bool

	// Carried across resets for trapezoidal continuity.
	lastSample [3]float64

	vibrationMetric   float64
	deltaVelocityPrev [3]float64

	statusLastPublish time.Duration
	statusPublished   bool
}

// New builds an Accelerometer for the given device and mounting rotation.
func New(deviceID devid.ID, rot rotation.Rotation, opts ...Option) (*Accelerometer, error) {
	dcm, err := rot.DCM()
	if err != nil {
		return nil, fmt.Errorf("accel: %v: %w", err, ErrInvalidArgument)
	}
	a := &Accelerometer{
		pub:         bus.Discard,
		clock:       clock.NewMonotonic(),
		deviceID:    deviceID,
		rotation:    rot,
		rotationDCM: dcm,
		rangeMax:    defaultRange,
		scale:       defaultScale,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.integrator == nil {
		a.integrator = integrator.New(integrationWindow, 0)
	}
	a.applyUpdateRate(defaultUpdateRateHz)
	a.updateClipLimit()
	return a, nil
}

func (a *Accelerometer) DeviceID() devid.ID          { return a.deviceID }
func (a *Accelerometer) Rotation() rotation.Rotation { return a.rotation }
func (a *Accelerometer) Range() float64              { return a.rangeMax }
func (a *Accelerometer) Scale() float64              { return a.scale }
func (a *Accelerometer) ClipLimit() float64          { return a.clipLimit }
func (a *Accelerometer) Temperature() float64        { return a.temperature }
func (a *Accelerometer) ErrorCount() uint64          { return a.errorCount }
func (a *Accelerometer) UpdateRate() uint16          { return a.updateRate }
func (a *Accelerometer) VibrationMetric() float64    { return a.vibrationMetric }

// ClippingTotal returns the lifetime per-axis clip counters (sensor frame).
func (a *Accelerometer) ClippingTotal() [3]uint32 { return a.clippingTotal }

// IntegratorResetSamples is the number of FIFO batches per integration window.
func (a *Accelerometer) IntegratorResetSamples() int { return a.integratorResetCount }

func (a *Accelerometer) SetDeviceID(id devid.ID) { a.deviceID = id }

// SetDeviceType rewrites only the device-type field of the device id.
func (a *Accelerometer) SetDeviceType(devType uint8) {
	a.deviceID = a.deviceID.WithDevType(devType)
}

func (a *Accelerometer) SetRotation(rot rotation.Rotation) error {
	dcm, err := rot.DCM()
	if err != nil {
		return fmt.Errorf("accel: %v: %w", err, ErrInvalidArgument)
	}
	a.rotation = rot
	a.rotationDCM = dcm
	return nil
}

// SetRange sets the full-scale range in m/s^2. A non-finite range would
// disable clip detection and is rejected.
func (a *Accelerometer) SetRange(r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("accel: range %v must be finite: %w", r, ErrInvalidArgument)
	}
	a.rangeMax = r
	a.updateClipLimit()
	return nil
}

func (a *Accelerometer) SetScale(scale float64) error {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return fmt.Errorf("accel: scale %v must be > 0: %w", scale, ErrInvalidArgument)
	}
	a.scale = scale
	a.updateClipLimit()
	return nil
}

func (a *Accelerometer) SetTemperature(t float64) { a.temperature = t }

func (a *Accelerometer) IncreaseErrorCount()    { a.errorCount++ }
func (a *Accelerometer) SetErrorCount(n uint64) { a.errorCount = n }

// SetUpdateRate sets the sensor output data rate, which also fixes how many
// FIFO batches make up an integration window.
func (a *Accelerometer) SetUpdateRate(hz uint16) error {
	if hz == 0 {
		return fmt.Errorf("accel: update rate must be > 0: %w", ErrInvalidArgument)
	}
	a.applyUpdateRate(hz)
	return nil
}

func (a *Accelerometer) applyUpdateRate(hz uint16) {
	a.updateRate = hz
	intervalUs := 1e6 / float64(hz)
	n := int(math.Round(float64(integrationWindow/time.Microsecond) / intervalUs))
	if n < 1 {
		n = 1
	}
	a.integratorResetCount = n
}

// resetIntegrator clears the window accumulators. lastSample, lifetime clip
// counters and vibration state survive.
func (a *Accelerometer) resetIntegrator() {
	a.integratorSamples = 0
	a.integratorFIFOCount = 0
	a.integrationRaw = [3]float64{}
	a.integratorClipping = [3]float64{}
	a.timestampSamplePrev = 0
	a.havePrevTimestamp = false
}

// windowClipCounts rotates the sensor-frame window clip counts into the body
// frame once, at emission time.
func (a *Accelerometer) windowClipCounts() [3]uint32 {
	rotated := a.rotationDCM.Apply(a.integratorClipping)
	var out [3]uint32
	for i := range rotated {
		out[i] = uint32(math.Abs(math.Round(rotated[i])))
	}
	return out
}

func (a *Accelerometer) String() string {
	return fmt.Sprintf("device id: %d (%s) rotation: %d", uint32(a.deviceID), a.deviceID, uint8(a.rotation))
}
