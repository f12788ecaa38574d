package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"accel-ng/internal/clock"
)

// Log format: line-oriented text.
//
// - Blank lines ignored.
// - Lines starting with '#' ignored.
// - Line "START" resets the origin (next record time is relative to 0 again).
// - Data lines are: <t_ns>,<topic>,<json>
//   where t_ns is nanoseconds since START (monotonic), topic is the published
//   topic name and json is the message payload on a single line.

type Record struct {
	At      time.Duration
	Topic   string
	Payload []byte
}

// IsStart reports whether r is a START marker.
func (r Record) IsStart() bool { return r.Payload == nil }

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	// FIFO echoes with 16-sample arrays fit easily; allow headroom.
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	recs := make([]Record, 0, 1024)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{})
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("replay: line %d: %w", lineNo, err)
		}
		recs = append(recs, rec)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	return recs, nil
}

func parseLine(line string) (Record, error) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) != 3 {
		return Record{}, fmt.Errorf("invalid line (want <t_ns>,<topic>,<json>): %q", line)
	}
	tsStr := strings.TrimSpace(parts[0])
	topic := strings.TrimSpace(parts[1])
	payload := strings.TrimSpace(parts[2])
	if tsStr == "" || topic == "" || payload == "" {
		return Record{}, fmt.Errorf("invalid line (empty field): %q", line)
	}

	tsNs, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid timestamp %q: %w", tsStr, err)
	}
	if tsNs < 0 {
		return Record{}, fmt.Errorf("invalid timestamp (negative): %d", tsNs)
	}
	if !json.Valid([]byte(payload)) {
		return Record{}, fmt.Errorf("invalid json payload for %s", topic)
	}
	return Record{At: time.Duration(tsNs), Topic: topic, Payload: []byte(payload)}, nil
}

// ReadFile reads every record from a log on disk.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

// Writer appends published messages to a log. It satisfies bus.Sender.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	clock  clock.Clock
	start  time.Duration
	closed bool
}

func CreateWriter(path string, clk clock.Clock) (*Writer, error) {
	if clk == nil {
		clk = clock.NewMonotonic()
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := bw.WriteString("START\n"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("replay: %w", err)
	}
	return &Writer{f: f, w: bw, clock: clk, start: clk.Now()}, nil
}

// Send records payload under topic, stamped with the time since START.
func (ww *Writer) Send(_ context.Context, topic string, payload []byte) error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return errors.New("replay: writer is closed")
	}
	if topic == "" || strings.ContainsAny(topic, ",\n") {
		return fmt.Errorf("replay: invalid topic %q", topic)
	}
	if len(payload) == 0 {
		return errors.New("replay: payload is empty")
	}
	if strings.ContainsRune(string(payload), '\n') {
		return fmt.Errorf("replay: %s: payload spans lines", topic)
	}

	d := ww.clock.Now() - ww.start
	if d < 0 {
		d = 0
	}
	if _, err := fmt.Fprintf(ww.w, "%d,%s,%s\n", d.Nanoseconds(), topic, payload); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	return nil
}

func (ww *Writer) Flush() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// Play replays records with their relative timing.
//
// The callback is invoked for each data record. START markers are honored by
// resetting the origin.
//
// speedMultiplier: 1.0 = real time, 2.0 = 2x speed (half waits), 0.5 = half speed.
func Play(records []Record, speedMultiplier float64, loop bool, sleeper Sleeper, cb func(Record) error) error {
	if speedMultiplier <= 0 {
		return fmt.Errorf("replay: speed multiplier must be > 0")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("replay: callback is nil")
	}
	if len(records) == 0 {
		return errors.New("replay: no records")
	}

	for {
		var origin time.Duration
		var lastAt time.Duration
		var haveLast bool

		for _, r := range records {
			if r.IsStart() {
				origin = r.At
				lastAt = 0
				haveLast = false
				continue
			}

			at := r.At - origin
			if at < 0 {
				at = 0
			}
			if haveLast {
				wait := at - lastAt
				if wait < 0 {
					wait = 0
				}
				wait = time.Duration(float64(wait) / speedMultiplier)
				if wait > 0 {
					sleeper.Sleep(wait)
				}
			}

			if err := cb(r); err != nil {
				return err
			}

			lastAt = at
			haveLast = true
		}

		if !loop {
			return nil
		}
	}
}
