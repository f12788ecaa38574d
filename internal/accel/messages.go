package accel

import "time"

// Topics the Accelerometer publishes on.
const (
	TopicSensorAccel           = "sensor_accel"
	TopicSensorAccelIntegrated = "sensor_accel_integrated"
	TopicSensorAccelFIFO       = "sensor_accel_fifo"
	TopicSensorAccelStatus     = "sensor_accel_status"
)

// SensorAccel is one scaled, body-frame reading.
type SensorAccel struct {
	Timestamp       time.Duration `json:"timestamp"`
	TimestampSample time.Duration `json:"timestamp_sample"`
	DeviceID        uint32        `json:"device_id"`
	Temperature     float64       `json:"temperature"`
	X               float64       `json:"x"`
	Y               float64       `json:"y"`
	Z               float64       `json:"z"`
}

// SensorAccelIntegrated is the delta-velocity accumulated over one
// integration window.
type SensorAccelIntegrated struct {
	Timestamp       time.Duration `json:"timestamp"`
	TimestampSample time.Duration `json:"timestamp_sample"`
	DeviceID        uint32        `json:"device_id"`
	ErrorCount      uint64        `json:"error_count"`
	DeltaVelocity   [3]float64    `json:"delta_velocity"` // m/s
	DT              time.Duration `json:"dt"`
	Samples         int           `json:"samples"`
	ClipCounter     [3]uint32     `json:"clip_counter"`
}

// SensorAccelFIFO echoes a raw FIFO batch (sensor frame, unscaled).
type SensorAccelFIFO struct {
	Timestamp       time.Duration `json:"timestamp"`
	TimestampSample time.Duration `json:"timestamp_sample"`
	DeviceID        uint32        `json:"device_id"`
	DT              time.Duration `json:"dt"`
	Scale           float64       `json:"scale"`
	Samples         int           `json:"samples"`
	X               []int16       `json:"x"`
	Y               []int16       `json:"y"`
	Z               []int16       `json:"z"`
}

// SensorAccelStatus is the throttled health record.
type SensorAccelStatus struct {
	Timestamp       time.Duration `json:"timestamp"`
	DeviceID        uint32        `json:"device_id"`
	ErrorCount      uint64        `json:"error_count"`
	FullScaleRange  float64       `json:"full_scale_range"`
	Rotation        uint8         `json:"rotation"`
	MeasureRateHz   uint16        `json:"measure_rate_hz"`
	Temperature     float64       `json:"temperature"`
	VibrationMetric float64       `json:"vibration_metric"`
	Clipping        [3]uint32     `json:"clipping"`
}
