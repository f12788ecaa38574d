package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"accel-ng/internal/bus"
	"accel-ng/internal/config"
	"accel-ng/internal/replay"
	"accel-ng/internal/udp"
)

func openSenders(ctx context.Context, cfg config.SinksConfig) ([]bus.Sender, error) {
	var senders []bus.Sender
	fail := func(err error) ([]bus.Sender, error) {
		for _, s := range senders {
			_ = s.Close()
		}
		return nil, err
	}

	if cfg.UDP.Enable {
		s, err := udp.NewSender(cfg.UDP.Dest)
		if err != nil {
			return fail(fmt.Errorf("udp sink: %w", err))
		}
		senders = append(senders, s)
		log.Infof("sink udp dest=%s", cfg.UDP.Dest)
	}
	if cfg.MQTT.Enable {
		s, err := bus.DialMQTT(ctx, bus.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			KeepAlive:   cfg.MQTT.KeepAlive,
			QoS:         byte(cfg.MQTT.QoS),
		})
		if err != nil {
			return fail(fmt.Errorf("mqtt sink: %w", err))
		}
		senders = append(senders, s)
		log.Infof("sink mqtt broker=%s prefix=%s qos=%d", cfg.MQTT.Broker, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS)
	}
	if cfg.Record.Enable {
		w, err := replay.CreateWriter(cfg.Record.Path, nil)
		if err != nil {
			return fail(fmt.Errorf("record sink: %w", err))
		}
		senders = append(senders, w)
		log.Infof("sink record path=%s", cfg.Record.Path)
	}
	if len(senders) == 0 {
		log.Warnf("no sinks enabled; published data is discarded")
	}
	return senders, nil
}

// startPipeline opens the configured sinks behind an Async queue. The
// returned stop func drains the queue and closes every sink.
func startPipeline(ctx context.Context, cfg config.SinksConfig) (*bus.Async, func(), error) {
	senders, err := openSenders(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	a := bus.NewAsync(cfg.Queue, senders...)

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Run(runCtx)
	}()

	stop := func() {
		cancel()
		<-done
		if err := a.Close(); err != nil {
			log.Warnf("sink close: %v", err)
		}
		if n := a.Dropped(); n > 0 {
			log.Warnf("bus dropped=%d failures=%d", n, a.Failures())
		}
	}
	return a, stop, nil
}
