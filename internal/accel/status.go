package accel

func (a *Accelerometer) publishStatus() {
	now := a.clock.Now()
	if a.statusPublished && now-a.statusLastPublish < statusInterval {
		return
	}
	a.pub.Publish(TopicSensorAccelStatus, SensorAccelStatus{
		Timestamp:       now,
		DeviceID:        uint32(a.deviceID),
		ErrorCount:      a.errorCount,
		FullScaleRange:  a.rangeMax,
		Rotation:        uint8(a.rotation),
		MeasureRateHz:   a.updateRate,
		Temperature:     a.temperature,
		VibrationMetric: a.vibrationMetric,
		Clipping:        a.clippingTotal,
	})
	a.statusLastPublish = now
	a.statusPublished = true
}
