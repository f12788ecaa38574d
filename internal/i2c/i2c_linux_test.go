//go:build linux

package i2c

import (
	"os"
	"strings"
	"testing"
)

func TestDevTx_InvalidAddr(t *testing.T) {
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	defer f.Close()

	b := &Bus{f: f, path: "/dev/null"}

	{
		d := &Dev{bus: b, addr: 0}
		err := d.Write([]byte{0x00})
		if err == nil || !strings.Contains(err.Error(), "invalid i2c addr") {
			t.Fatalf("err=%v want invalid i2c addr", err)
		}
	}

	{
		d := &Dev{bus: b, addr: 0x80}
		err := d.Write([]byte{0x00})
		if err == nil || !strings.Contains(err.Error(), "invalid i2c addr") {
			t.Fatalf("err=%v want invalid i2c addr", err)
		}
	}
}

func TestDevTx_EmptyIsNoop(t *testing.T) {
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	defer f.Close()

	b := &Bus{f: f, path: "/dev/null"}
	d := &Dev{bus: b, addr: 0x68}

	n, err := d.tx(nil, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if n != 0 {
		t.Fatalf("n=%d want 0", n)
	}
}

func TestOpen_RecordsBusNumber(t *testing.T) {
	_, err := Open("/nonexistent/i2c-7")
	if err == nil || !strings.Contains(err.Error(), "i2c: open /nonexistent/i2c-7") {
		t.Fatalf("err=%v want wrapped open error", err)
	}

	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	defer f.Close()

	b := &Bus{f: f, path: "/dev/i2c-3", number: BusNumber("/dev/i2c-3")}
	if b.Number() != 3 {
		t.Fatalf("Number()=%d want 3", b.Number())
	}
	if d := b.Dev(0x69); d.Addr() != 0x69 {
		t.Fatalf("Addr()=0x%X want 0x69", d.Addr())
	}
	var nilBus *Bus
	if nilBus.Number() != -1 || nilBus.Path() != "" {
		t.Fatalf("nil bus accessors should be zero")
	}
}

func TestReadRegBurst_RejectsOversize(t *testing.T) {
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	defer f.Close()

	d := &Dev{bus: &Bus{f: f, path: "/dev/null"}, addr: 0x68}
	err = d.ReadRegBurst(0x72, make([]byte, maxTransfer+1))
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("err=%v want oversize error", err)
	}
}
