package imu

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"accel-ng/internal/accel"
	"accel-ng/internal/bus"
	"accel-ng/internal/clock"
	"accel-ng/internal/devid"
	"accel-ng/internal/i2c"
	"accel-ng/internal/rotation"
	"accel-ng/internal/sensors/icm20948"
)

const (
	defaultPollInterval        = 2 * time.Millisecond
	defaultTemperatureInterval = time.Second

	// Enough room to drain a full hardware FIFO in one pass.
	drainCapacity = 96
)

type Config struct {
	Enable   bool
	I2CBus   int
	Addr     uint16
	Rotation rotation.Rotation
	RangeG   int
	RateHz   float64
	FIFO     bool

	// DataReadyGPIO is the BCM pin wired to INT1; 0 polls on PollInterval.
	DataReadyGPIO       int
	PollInterval        time.Duration
	TemperatureInterval time.Duration
}

type Snapshot struct {
	IMUDetected bool
	Valid       bool
	DeviceID    devid.ID
	RateHz      float64
	Range       float64

	Samples uint64
	Batches uint64

	ErrorCount      uint64
	Temperature     float64
	VibrationMetric float64
	ClippingTotal   [3]uint32

	LastError string
	UpdatedAt time.Time
}

// sensor is the subset of the ICM-20948 driver the service drives.
type sensor interface {
	Range() float64
	Scale() float64
	SampleRate() float64
	SamplePeriod() time.Duration
	FIFOEnabled() bool
	ReadRaw() (icm20948.Raw, error)
	ReadFIFO(dst []icm20948.Raw) (int, error)
	ReadTemperature() (float64, error)
}

type openSensorFunc func(cfg Config) (sensor, devid.ID, io.Closer, error)

type Option func(*Service)

func WithPublisher(p bus.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.pub = p
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

func withSensorOpener(fn openSensorFunc) Option {
	return func(s *Service) { s.openSensor = fn }
}

type Service struct {
	cfg        Config
	pub        bus.Publisher
	clock      clock.Clock
	openSensor openSensorFunc

	mu   sync.RWMutex
	snap Snapshot

	// Owned by the run goroutine after Start.
	sensor sensor
	accel  *accel.Accelerometer
	period time.Duration
	buf    [drainCapacity]icm20948.Raw

	closer io.Closer
	drdy   dataReady

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config, opts ...Option) *Service {
	if cfg.I2CBus == 0 {
		cfg.I2CBus = 1
	}
	if cfg.Addr == 0 {
		cfg.Addr = icm20948.DefaultAddress()
	}
	if cfg.RangeG == 0 {
		cfg.RangeG = 16
	}
	if cfg.RateHz == 0 {
		cfg.RateHz = 1125
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.TemperatureInterval <= 0 {
		cfg.TemperatureInterval = defaultTemperatureInterval
	}
	s := &Service{
		cfg:        cfg,
		pub:        bus.Discard,
		clock:      clock.NewMonotonic(),
		openSensor: openICM20948,
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func openICM20948(cfg Config) (sensor, devid.ID, io.Closer, error) {
	busPath := fmt.Sprintf("/dev/i2c-%d", cfg.I2CBus)
	b, err := i2c.Open(busPath)
	if err != nil {
		return nil, 0, nil, err
	}
	dev := b.Dev(cfg.Addr)
	d, err := icm20948.New(dev, icm20948.Config{
		RangeG:    cfg.RangeG,
		RateHz:    cfg.RateHz,
		FIFO:      cfg.FIFO,
		DataReady: cfg.DataReadyGPIO > 0,
	})
	if err != nil {
		_ = b.Close()
		return nil, 0, nil, err
	}
	id := devid.New(devid.BusI2C, uint8(b.Number()), uint8(dev.Addr()), icm20948.DevType)
	return d, id, b, nil
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.drdy != nil {
			_ = s.drdy.Close()
		}
		if s.closer != nil {
			_ = s.closer.Close()
		}
	})
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("imu: service is nil")
	}
	if ctx == nil {
		return fmt.Errorf("imu: ctx is nil")
	}
	if !s.cfg.Enable {
		return nil
	}

	sens, id, closer, err := s.openSensor(s.cfg)
	if err != nil {
		s.setErr(fmt.Sprintf("imu init: %v", err))
		return fmt.Errorf("imu: init: %w", err)
	}
	s.closer = closer

	if err := s.configure(sens, id); err != nil {
		s.setErr(err.Error())
		if closer != nil {
			_ = closer.Close()
		}
		s.closer = nil
		return err
	}

	if s.cfg.DataReadyGPIO > 0 {
		drdy, err := openDataReadyFn(s.cfg.DataReadyGPIO)
		if err != nil {
			log.Warnf("imu: data-ready gpio %d unavailable, polling every %s: %v", s.cfg.DataReadyGPIO, s.cfg.PollInterval, err)
		} else {
			s.drdy = drdy
		}
	}

	log.Infof("imu enabled %s rate=%.1fHz range=%.1fm/s2 fifo=%t rotation=%s",
		id, sens.SampleRate(), sens.Range(), sens.FIFOEnabled(), s.cfg.Rotation)

	go s.run(ctx)
	return nil
}

func (s *Service) configure(sens sensor, id devid.ID) error {
	a, err := accel.New(id, s.cfg.Rotation, accel.WithPublisher(s.pub), accel.WithClock(s.clock))
	if err != nil {
		return fmt.Errorf("imu: %w", err)
	}
	if err := a.SetRange(sens.Range()); err != nil {
		return fmt.Errorf("imu: %w", err)
	}
	if err := a.SetScale(sens.Scale()); err != nil {
		return fmt.Errorf("imu: %w", err)
	}
	rate := math.Round(sens.SampleRate())
	if rate < 1 || rate > math.MaxUint16 {
		return fmt.Errorf("imu: sample rate %v out of range", sens.SampleRate())
	}
	if err := a.SetUpdateRate(uint16(rate)); err != nil {
		return fmt.Errorf("imu: %w", err)
	}

	s.sensor = sens
	s.accel = a
	s.period = sens.SamplePeriod()

	s.mu.Lock()
	s.snap.IMUDetected = true
	s.snap.DeviceID = id
	s.snap.RateHz = sens.SampleRate()
	s.snap.Range = sens.Range()
	s.mu.Unlock()

	s.readTemperature()
	return nil
}

func (s *Service) run(ctx context.Context) {
	var wake <-chan struct{}
	var tickC <-chan time.Time
	if s.drdy != nil {
		wake = s.drdy.C()
	} else {
		tick := time.NewTicker(s.cfg.PollInterval)
		defer tick.Stop()
		tickC = tick.C
	}
	tempTick := time.NewTicker(s.cfg.TemperatureInterval)
	defer tempTick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.stopCh:
			return
		case <-wake:
			s.poll()
		case <-tickC:
			s.poll()
		case <-tempTick.C:
			s.readTemperature()
		}
	}
}

func (s *Service) poll() {
	var ok bool
	if s.sensor.FIFOEnabled() {
		ok = s.drainFIFO()
	} else {
		ok = s.readSingle()
	}
	s.publishSnapshot(ok)
}

func (s *Service) readSingle() bool {
	r, err := s.sensor.ReadRaw()
	now := s.clock.Now()
	if err != nil {
		s.fail(err)
		return false
	}
	s.accel.Update(now, float64(r.X), float64(r.Y), float64(r.Z))
	s.mu.Lock()
	s.snap.Samples++
	s.mu.Unlock()
	return true
}

// drainFIFO reads every queued sample and feeds it in batches of at most
// accel.FIFOCapacity. The newest sample is taken to have been measured at
// the time of the read; earlier ones are spaced back by the sample period.
func (s *Service) drainFIFO() bool {
	n, err := s.sensor.ReadFIFO(s.buf[:])
	now := s.clock.Now()
	if err != nil {
		s.fail(err)
		return false
	}
	if n == 0 {
		return true
	}

	var batches uint64
	for start := 0; start < n; start += accel.FIFOCapacity {
		end := start + accel.FIFOCapacity
		if end > n {
			end = n
		}
		b := accel.FIFOSample{
			TimestampSample: now - time.Duration(n-end)*s.period,
			DT:              s.period,
			Samples:         end - start,
		}
		for i, r := range s.buf[start:end] {
			b.X[i], b.Y[i], b.Z[i] = r.X, r.Y, r.Z
		}
		if err := s.accel.UpdateFIFO(&b); err != nil {
			s.fail(err)
			return false
		}
		batches++
	}

	s.mu.Lock()
	s.snap.Samples += uint64(n)
	s.snap.Batches += batches
	s.mu.Unlock()
	return true
}

func (s *Service) readTemperature() {
	t, err := s.sensor.ReadTemperature()
	if err != nil {
		s.fail(err)
		return
	}
	s.accel.SetTemperature(t)
}

func (s *Service) fail(err error) {
	s.accel.IncreaseErrorCount()
	s.setErr(err.Error())
}

func (s *Service) publishSnapshot(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Valid = ok
	if ok {
		s.snap.LastError = ""
	}
	s.snap.ErrorCount = s.accel.ErrorCount()
	s.snap.Temperature = s.accel.Temperature()
	s.snap.VibrationMetric = s.accel.VibrationMetric()
	s.snap.ClippingTotal = s.accel.ClippingTotal()
	s.snap.UpdatedAt = time.Now().UTC()
}

func (s *Service) setErr(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accel != nil {
		s.snap.ErrorCount = s.accel.ErrorCount()
	}
	if msg != s.snap.LastError && msg != "" {
		log.Debugf("imu: %s", msg)
	}
	s.snap.LastError = msg
	s.snap.UpdatedAt = time.Now().UTC()
}
