package web

import (
	"sync/atomic"
	"time"

	"accel-ng/internal/imu"
)

// IMUSource is satisfied by *imu.Service.
type IMUSource interface {
	Snapshot() imu.Snapshot
}

// BusStats is satisfied by *bus.Async.
type BusStats interface {
	Dropped() uint64
	Failures() uint64
}

type Status struct {
	startUnixNano int64
	mode          atomic.Value // string
	imu           IMUSource
	bus           BusStats
}

func NewStatus(mode string, imuSrc IMUSource, busStats BusStats) *Status {
	s := &Status{imu: imuSrc, bus: busStats}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.mode.Store(mode)
	return s
}

func (s *Status) SetMode(mode string) { s.mode.Store(mode) }

// IMUStatus is the JSON view of the driver snapshot.
type IMUStatus struct {
	Detected        bool      `json:"detected"`
	Valid           bool      `json:"valid"`
	DeviceID        uint32    `json:"device_id"`
	Device          string    `json:"device"`
	RateHz          float64   `json:"rate_hz"`
	RangeMS2        float64   `json:"range_m_s2"`
	Samples         uint64    `json:"samples"`
	Batches         uint64    `json:"batches"`
	ErrorCount      uint64    `json:"error_count"`
	TemperatureC    float64   `json:"temperature_c"`
	VibrationMetric float64   `json:"vibration_metric"`
	Clipping        [3]uint32 `json:"clipping"`
	LastError       string    `json:"last_error,omitempty"`
	LastUpdateUTC   string    `json:"last_update_utc,omitempty"`
}

type BusStatus struct {
	Dropped  uint64 `json:"dropped"`
	Failures uint64 `json:"failures"`
}

type StatusSnapshot struct {
	Service   string     `json:"service"`
	NowUTC    string     `json:"now_utc"`
	UptimeSec int64      `json:"uptime_sec"`
	Mode      string     `json:"mode"`
	IMU       *IMUStatus `json:"imu,omitempty"`
	Bus       *BusStatus `json:"bus,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()

	snap := StatusSnapshot{
		Service:   "accel-ng",
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		Mode:      s.mode.Load().(string),
	}
	if s.imu != nil {
		is := s.imu.Snapshot()
		st := &IMUStatus{
			Detected:        is.IMUDetected,
			Valid:           is.Valid,
			DeviceID:        uint32(is.DeviceID),
			RateHz:          is.RateHz,
			RangeMS2:        is.Range,
			Samples:         is.Samples,
			Batches:         is.Batches,
			ErrorCount:      is.ErrorCount,
			TemperatureC:    is.Temperature,
			VibrationMetric: is.VibrationMetric,
			Clipping:        is.ClippingTotal,
			LastError:       is.LastError,
		}
		if is.IMUDetected {
			st.Device = is.DeviceID.String()
		}
		if !is.UpdatedAt.IsZero() {
			st.LastUpdateUTC = is.UpdatedAt.UTC().Format(time.RFC3339Nano)
		}
		snap.IMU = st
	}
	if s.bus != nil {
		snap.Bus = &BusStatus{Dropped: s.bus.Dropped(), Failures: s.bus.Failures()}
	}
	return snap
}
