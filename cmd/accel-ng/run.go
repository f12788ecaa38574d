package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"accel-ng/internal/config"
	"accel-ng/internal/imu"
	"accel-ng/internal/web"
)

const statusLogInterval = 10 * time.Second

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "read the accelerometer and publish conditioned data",
		Example: `  accel-ng run --config=/etc/accel-ng/config.yaml
  accel-ng run --config=dev.yaml --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cfg.IMU.Enable {
				return fmt.Errorf("imu.enable is false; nothing to run")
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runLive(ctx, cfg)
		},
	}
}

func imuConfig(c config.IMUConfig) imu.Config {
	return imu.Config{
		Enable:              c.Enable,
		I2CBus:              c.I2CBus,
		Addr:                c.Addr,
		Rotation:            c.Rotation,
		RangeG:              c.RangeG,
		RateHz:              c.RateHz,
		FIFO:                c.FIFO,
		DataReadyGPIO:       c.DataReadyGPIO,
		PollInterval:        c.PollInterval,
		TemperatureInterval: c.TemperatureInterval,
	}
}

func runLive(ctx context.Context, cfg config.Config) error {
	pub, stop, err := startPipeline(ctx, cfg.Sinks)
	if err != nil {
		return err
	}
	defer stop()

	svc := imu.New(imuConfig(cfg.IMU), imu.WithPublisher(pub))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Close()

	if cfg.Web.Enable {
		status := web.NewStatus("live", svc, pub)
		go func() {
			log.Infof("web: listening on %s", cfg.Web.Listen)
			if err := web.Serve(ctx, cfg.Web.Listen, status); err != nil && ctx.Err() == nil {
				log.Errorf("web: %v", err)
			}
		}()
	}

	log.Infof("accel-ng running")
	t := time.NewTicker(statusLogInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Infof("accel-ng stopping")
			return nil
		case <-t.C:
			logSnapshot(svc.Snapshot())
		}
	}
}

func logSnapshot(s imu.Snapshot) {
	fields := log.Fields{
		"valid":     s.Valid,
		"samples":   s.Samples,
		"batches":   s.Batches,
		"errors":    s.ErrorCount,
		"temp_c":    fmt.Sprintf("%.1f", s.Temperature),
		"vibration": fmt.Sprintf("%.4f", s.VibrationMetric),
		"clipping":  s.ClippingTotal,
	}
	if s.LastError != "" {
		log.WithFields(fields).Warnf("imu status: %s", s.LastError)
		return
	}
	log.WithFields(fields).Info("imu status")
}
