package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"accel-ng/internal/accel"
	"accel-ng/internal/bus"
	"accel-ng/internal/clock"
	"accel-ng/internal/devid"
	"accel-ng/internal/replay"
	"accel-ng/internal/rotation"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [log]",
		Short: "re-integrate recorded FIFO batches and publish the result",
		Long: `replay reads a log written by the record sink and feeds every
sensor_accel_fifo record through a fresh accelerometer pipeline, publishing
to the configured sinks. The log path comes from the argument or replay.path.`,
		Example: `  accel-ng replay flight.log --speed 4
  accel-ng replay --config=bench.yaml --loop`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path := cfg.Replay.Path
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("replay: no log path (argument or replay.path)")
			}
			speed := cfg.Replay.Speed
			if cmd.Flags().Changed("speed") {
				speed, _ = cmd.Flags().GetFloat64("speed")
			}
			loop := cfg.Replay.Loop
			if cmd.Flags().Changed("loop") {
				loop, _ = cmd.Flags().GetBool("loop")
			}

			recs, err := replay.ReadFile(path)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			pub, stop, err := startPipeline(ctx, cfg.Sinks)
			if err != nil {
				return err
			}
			defer stop()

			r := newReintegrator(cfg.IMU.Rotation, pub)
			log.Infof("replay path=%s records=%d speed=%g loop=%t rotation=%s", path, len(recs), speed, loop, cfg.IMU.Rotation)
			err = replay.Play(recs, speed, loop, nil, func(rec replay.Record) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				return r.handle(rec)
			})
			log.Infof("replay done batches=%d skipped=%d restarts=%d", r.batches, r.skipped, r.restarts)
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().Float64("speed", 1, "playback speed multiplier (overrides replay.speed)")
	cmd.Flags().Bool("loop", false, "restart from the beginning at end of log (overrides replay.loop)")
	return cmd
}

// reintegrator rebuilds batches from recorded FIFO echoes and runs them
// through an Accelerometer whose clock follows the log.
type reintegrator struct {
	rot rotation.Rotation
	pub bus.Publisher
	clk *clock.Manual
	acc *accel.Accelerometer

	// Last handled batch, for detecting a loop restart or spliced log.
	lastAt     time.Duration
	lastSample time.Duration
	haveLast   bool

	batches  int
	skipped  int
	restarts int
}

func newReintegrator(rot rotation.Rotation, pub bus.Publisher) *reintegrator {
	return &reintegrator{rot: rot, pub: pub, clk: clock.NewManual(0)}
}

func (r *reintegrator) handle(rec replay.Record) error {
	if rec.Topic != accel.TopicSensorAccelFIFO {
		return nil
	}
	var echo accel.SensorAccelFIFO
	if err := json.Unmarshal(rec.Payload, &echo); err != nil {
		r.skipped++
		log.Debugf("replay: skip at=%s: %v", rec.At, err)
		return nil
	}
	s, err := accel.FIFOSampleFromEcho(echo)
	if err != nil {
		r.skipped++
		log.Debugf("replay: skip at=%s: %v", rec.At, err)
		return nil
	}
	if r.haveLast && (rec.At < r.lastAt || s.TimestampSample < r.lastSample) {
		// Time went backwards: integrator and status throttle state no
		// longer apply.
		log.Debugf("replay: restart at=%s sample=%s", rec.At, s.TimestampSample)
		r.acc = nil
		r.restarts++
	}
	if err := r.ensure(echo); err != nil {
		return err
	}
	r.clk.Set(rec.At)
	r.lastAt, r.lastSample, r.haveLast = rec.At, s.TimestampSample, true
	if err := r.acc.UpdateFIFO(s); err != nil {
		r.skipped++
		return nil
	}
	r.batches++
	return nil
}

// ensure (re)builds the Accelerometer when the recorded device or scale changes.
func (r *reintegrator) ensure(echo accel.SensorAccelFIFO) error {
	id := devid.ID(echo.DeviceID)
	if r.acc != nil && r.acc.DeviceID() == id && r.acc.Scale() == echo.Scale {
		return nil
	}
	a, err := accel.New(id, r.rot, accel.WithPublisher(r.pub), accel.WithClock(r.clk))
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if err := a.SetScale(echo.Scale); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	// Full-scale of a 16-bit converter at this resolution.
	if err := a.SetRange(echo.Scale * 32768); err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	rate := math.Round(float64(time.Second) / float64(echo.DT))
	rate = math.Max(1, math.Min(rate, math.MaxUint16))
	if err := a.SetUpdateRate(uint16(rate)); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	log.Debugf("replay: device %s scale=%g rate=%.0fHz", id, echo.Scale, rate)
	r.acc = a
	return nil
}
