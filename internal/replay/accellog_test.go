package replay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"accel-ng/internal/clock"
)

type fakeSleeper struct {
	slept []time.Duration
}

func (fs *fakeSleeper) Sleep(d time.Duration) {
	fs.slept = append(fs.slept, d)
}

func TestReaderReadAll(t *testing.T) {
	in := strings.NewReader(`
# comment

START
0,sensor_accel,{"x":1,"y":2}
10, sensor_accel_status , {"device_id":3}
`)

	recs, err := NewReader(in).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if !recs[0].IsStart() {
		t.Fatalf("expected START marker, got %+v", recs[0])
	}
	if recs[1].At != 0 || recs[1].Topic != "sensor_accel" {
		t.Fatalf("record 1 = %+v", recs[1])
	}
	if string(recs[1].Payload) != `{"x":1,"y":2}` {
		t.Fatalf("payload 1 = %s", recs[1].Payload)
	}
	if recs[2].At != 10*time.Nanosecond || recs[2].Topic != "sensor_accel_status" {
		t.Fatalf("record 2 = %+v", recs[2])
	}
}

func TestReaderReadAll_InvalidLine(t *testing.T) {
	cases := []string{
		"not-a-valid-line\n",
		"10,sensor_accel\n",
		"x,sensor_accel,{}\n",
		"-1,sensor_accel,{}\n",
		"1,,{}\n",
		"1,sensor_accel,{broken\n",
	}
	for _, in := range cases {
		if _, err := NewReader(strings.NewReader(in)).ReadAll(); err == nil {
			t.Fatalf("ReadAll(%q): expected error", in)
		}
	}
}

func TestPlay_RespectsTimingAndStart(t *testing.T) {
	var topics []string
	fs := &fakeSleeper{}

	recs := []Record{
		{At: 1 * time.Second},
		{At: 1 * time.Second, Topic: "a", Payload: []byte("1")},
		{At: 1*time.Second + 100*time.Nanosecond, Topic: "b", Payload: []byte("2")},
		{At: 2 * time.Second},
		{At: 2*time.Second + 50*time.Nanosecond, Topic: "c", Payload: []byte("3")},
	}

	err := Play(recs, 1.0, false, fs, func(r Record) error {
		topics = append(topics, r.Topic)
		return nil
	})
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	if !reflect.DeepEqual(topics, []string{"a", "b", "c"}) {
		t.Fatalf("topics = %v", topics)
	}
	if !reflect.DeepEqual(fs.slept, []time.Duration{100 * time.Nanosecond}) {
		t.Fatalf("slept = %v, want [100ns]", fs.slept)
	}
}

func TestPlay_SpeedMultiplier(t *testing.T) {
	fs := &fakeSleeper{}
	recs := []Record{
		{At: 0, Topic: "a", Payload: []byte("1")},
		{At: 100 * time.Nanosecond, Topic: "a", Payload: []byte("2")},
	}

	err := Play(recs, 2.0, false, fs, func(Record) error { return nil })
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if !reflect.DeepEqual(fs.slept, []time.Duration{50 * time.Nanosecond}) {
		t.Fatalf("slept = %v, want [50ns]", fs.slept)
	}
}

func TestPlay_LoopStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	recs := []Record{{At: 0, Topic: "a", Payload: []byte("1")}}
	n := 0
	err := Play(recs, 1, true, &fakeSleeper{}, func(Record) error {
		n++
		if n == 3 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || n != 3 {
		t.Fatalf("err=%v n=%d want stop after 3", err, n)
	}
}

func TestPlay_InvalidArgs(t *testing.T) {
	recs := []Record{{At: 0, Topic: "a", Payload: []byte("1")}}
	if err := Play(recs, 0, false, nil, func(Record) error { return nil }); err == nil {
		t.Fatalf("expected speed error")
	}
	if err := Play(recs, 1, false, nil, nil); err == nil {
		t.Fatalf("expected nil callback error")
	}
	if err := Play(nil, 1, false, nil, func(Record) error { return nil }); err == nil {
		t.Fatalf("expected empty records error")
	}
}

func TestWriter_WritesExpectedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	clk := clock.NewManual(5 * time.Second)

	w, err := CreateWriter(path, clk)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}

	clk.Advance(20)
	if err := w.Send(context.Background(), "sensor_accel", []byte(`{"x":1}`)); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.Send(context.Background(), "sensor_accel", []byte(`{}`)); err == nil {
		t.Fatalf("expected error after Close")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(b) != "START\n20,sensor_accel,{\"x\":1}\n" {
		t.Fatalf("unexpected file contents: %q", string(b))
	}
}

func TestWriter_RejectsBadInput(t *testing.T) {
	w, err := CreateWriter(filepath.Join(t.TempDir(), "out.log"), nil)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	defer w.Close()

	ctx := context.Background()
	if err := w.Send(ctx, "a,b", []byte("1")); err == nil {
		t.Fatalf("expected topic error")
	}
	if err := w.Send(ctx, "a", nil); err == nil {
		t.Fatalf("expected empty payload error")
	}
	if err := w.Send(ctx, "a", []byte("{\n}")); err == nil {
		t.Fatalf("expected multi-line payload error")
	}
}

func TestRecordReplay_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accel-record.log")
	clk := clock.NewManual(0)

	w, err := CreateWriter(path, clk)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	in := []struct {
		topic   string
		payload string
	}{
		{"sensor_accel", `{"x":0.5,"y":-1,"z":9.8}`},
		{"sensor_accel_integrated", `{"delta_velocity":[0.1,0,0],"samples":3}`},
		{"sensor_accel_status", `{"vibration_metric":0.01}`},
	}
	for i, m := range in {
		clk.Set(time.Duration(i) * time.Millisecond)
		if err := w.Send(context.Background(), m.topic, []byte(m.payload)); err != nil {
			t.Fatalf("Send() error: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	recs, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(recs) != len(in)+1 || !recs[0].IsStart() {
		t.Fatalf("records = %+v", recs)
	}

	fs := &fakeSleeper{}
	var got []string
	if err := Play(recs, 1, false, fs, func(r Record) error {
		got = append(got, r.Topic+" "+string(r.Payload))
		return nil
	}); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	for i, m := range in {
		if got[i] != m.topic+" "+m.payload {
			t.Fatalf("got[%d]=%q", i, got[i])
		}
	}
	if !reflect.DeepEqual(fs.slept, []time.Duration{time.Millisecond, time.Millisecond}) {
		t.Fatalf("slept = %v", fs.slept)
	}
}
