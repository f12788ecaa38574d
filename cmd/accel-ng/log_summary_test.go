package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"accel-ng/internal/accel"
	"accel-ng/internal/replay"
)

func TestSummarizeAccelLog(t *testing.T) {
	recs := []replay.Record{
		{At: 0},
		{At: 0, Topic: accel.TopicSensorAccel, Payload: []byte(`{"x":1}`)},
		{At: 2 * time.Millisecond, Topic: accel.TopicSensorAccelIntegrated, Payload: []byte(`{"delta_velocity":[3,4,0],"clip_counter":[1,0,2]}`)},
		{At: 3 * time.Millisecond, Topic: accel.TopicSensorAccelStatus, Payload: []byte(`{"vibration_metric":0.25}`)},
		{At: 4 * time.Millisecond, Topic: accel.TopicSensorAccelIntegrated, Payload: []byte(`[1,2]`)},
		{At: 0},
		{At: time.Second, Topic: accel.TopicSensorAccelIntegrated, Payload: []byte(`{"delta_velocity":[0,0,1],"clip_counter":[0,1,0]}`)},
	}

	s := summarizeAccelLog(recs)
	if s.Segments != 2 {
		t.Fatalf("segments=%d want 2", s.Segments)
	}
	if s.Records != 5 {
		t.Fatalf("records=%d want 5", s.Records)
	}
	if s.Invalid != 1 {
		t.Fatalf("invalid=%d want 1", s.Invalid)
	}
	if s.Windows != 2 {
		t.Fatalf("windows=%d want 2", s.Windows)
	}
	if s.MeanDeltaV != 3 {
		t.Fatalf("meanDeltaV=%v want 3", s.MeanDeltaV)
	}
	if s.LastVibration != 0.25 {
		t.Fatalf("lastVibration=%v want 0.25", s.LastVibration)
	}
	if s.ClipTotals != [3]uint32{1, 1, 2} {
		t.Fatalf("clipTotals=%v want [1 1 2]", s.ClipTotals)
	}
	if s.TopicCounts[accel.TopicSensorAccelIntegrated] != 3 || s.TopicCounts[accel.TopicSensorAccel] != 1 {
		t.Fatalf("topicCounts=%v", s.TopicCounts)
	}
	if s.MaxDuration != time.Second {
		t.Fatalf("maxDuration=%s want 1s", s.MaxDuration)
	}
}

func TestSummarizeAccelLog_NoStartIsOneSegment(t *testing.T) {
	s := summarizeAccelLog([]replay.Record{{At: 5, Topic: "x", Payload: []byte("1")}})
	if s.Segments != 1 || s.Records != 1 {
		t.Fatalf("segments=%d records=%d want 1/1", s.Segments, s.Records)
	}
	if empty := summarizeAccelLog(nil); empty.Segments != 0 || empty.TopicCounts == nil {
		t.Fatalf("empty summary=%+v", empty)
	}
}

func TestPrintLogSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accel.log")
	contents := "START\n" +
		"1000,sensor_accel_status,{\"vibration_metric\":0.5}\n" +
		"2000,sensor_accel_integrated,{\"delta_velocity\":[0,0,2],\"clip_counter\":[0,0,0]}\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	var out bytes.Buffer
	if err := printLogSummary(&out, path); err != nil {
		t.Fatalf("printLogSummary() error: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"segments: 1\n",
		"records: 2\n",
		"integrated_windows: 1\n",
		"mean_delta_velocity: 2.000000\n",
		"last_vibration_metric: 0.500000\n",
		"  sensor_accel_integrated: 1\n",
		"  sensor_accel_status: 1\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}

	if err := printLogSummary(&out, "  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
