package udp

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
)

// Largest UDP payload over IPv4.
const maxDatagram = 65507

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)

type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// Sender writes each published message as one JSON datagram:
// {"topic":"sensor_accel","data":{...}}.
type Sender struct {
	dest string
	conn udpConn
}

type datagram struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

func NewSender(dest string) (*Sender, error) {
	return newSender(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newSender(dest string, resolve resolveFunc, dial dialFunc) (*Sender, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("udp: dial: %w", err)
	}

	return &Sender{dest: dest, conn: conn}, nil
}

func (s *Sender) Dest() string { return s.dest }

// Send frames payload (already JSON) under topic and writes one datagram.
func (s *Sender) Send(_ context.Context, topic string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	if !json.Valid(payload) {
		return fmt.Errorf("udp: %s: payload is not json", topic)
	}
	b, err := json.Marshal(datagram{Topic: topic, Data: payload})
	if err != nil {
		return fmt.Errorf("udp: %s: %w", topic, err)
	}
	if len(b) > maxDatagram {
		return fmt.Errorf("udp: %s: datagram %d bytes exceeds %d", topic, len(b), maxDatagram)
	}
	_, err = s.conn.Write(b)
	return err
}

func (s *Sender) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
