//go:build linux && (arm || arm64)

package imu

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openDataReady requests the given BCM GPIO as a rising-edge input using
// the Linux GPIO character device.
func openDataReady(pin int) (dataReady, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("imu: invalid gpio pin %d", pin)
	}

	lineName := fmt.Sprintf("GPIO%d", pin)

	chipCandidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		g := &gpiodDataReady{chip: chip, ch: make(chan struct{}, 1)}
		line, err := chip.RequestLine(offset,
			gpiocdev.AsInput,
			gpiocdev.WithRisingEdge,
			gpiocdev.WithEventHandler(g.handle),
			gpiocdev.WithConsumer("accel-ng-drdy"))
		if err != nil {
			_ = chip.Close()
			continue
		}
		g.line = line
		return g, nil
	}

	return nil, fmt.Errorf("imu: gpio line %q not found (or busy)", lineName)
}

var openDataReadyFn = openDataReady

type gpiodDataReady struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	ch   chan struct{}
}

func (g *gpiodDataReady) handle(gpiocdev.LineEvent) {
	select {
	case g.ch <- struct{}{}:
	default:
	}
}

func (g *gpiodDataReady) C() <-chan struct{} { return g.ch }

func (g *gpiodDataReady) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
