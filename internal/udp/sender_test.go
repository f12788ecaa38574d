package udp

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

type fakeConn struct {
	writes    [][]byte
	writeErr  error
	closed    bool
	closeErr  error
	writeHits int
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.writeHits++
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	cp := append([]byte(nil), p...)
	c.writes = append(c.writes, cp)
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return c.closeErr
}

func TestNewSender_DialsResolvedAddr(t *testing.T) {
	var gotNetwork string
	var gotRaddr *net.UDPAddr
	fc := &fakeConn{}

	resolve := func(network, address string) (*net.UDPAddr, error) {
		return net.ResolveUDPAddr(network, address)
	}

	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		gotNetwork = network
		gotRaddr = raddr
		return fc, nil
	}

	s, err := newSender("127.0.0.1:4000", resolve, dial)
	if err != nil {
		t.Fatalf("newSender() error: %v", err)
	}
	defer s.Close()

	if gotNetwork != "udp" {
		t.Fatalf("network=%q want %q", gotNetwork, "udp")
	}
	if gotRaddr == nil || gotRaddr.Port != 4000 || !gotRaddr.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Fatalf("raddr=%v want 127.0.0.1:4000", gotRaddr)
	}
	if s.Dest() != "127.0.0.1:4000" {
		t.Fatalf("dest=%q", s.Dest())
	}
}

func TestNewSender_ResolveFailure(t *testing.T) {
	resolveErr := errors.New("nope")
	resolve := func(network, address string) (*net.UDPAddr, error) {
		return nil, resolveErr
	}
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return &fakeConn{}, nil
	}

	_, err := newSender("bad:addr", resolve, dial)
	if !errors.Is(err, resolveErr) {
		t.Fatalf("err=%v want %v", err, resolveErr)
	}
}

func TestSender_Send_EmptyNoWrite(t *testing.T) {
	fc := &fakeConn{}
	s := &Sender{dest: "x", conn: fc}

	if err := s.Send(context.Background(), "sensor_accel", nil); err != nil {
		t.Fatalf("Send(nil) error: %v", err)
	}
	if fc.writeHits != 0 {
		t.Fatalf("expected no writes, got %d", fc.writeHits)
	}
}

func TestSender_Send_FramesTopic(t *testing.T) {
	fc := &fakeConn{}
	s := &Sender{dest: "x", conn: fc}

	if err := s.Send(context.Background(), "sensor_accel_status", []byte(`{"device_id":7}`)); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if len(fc.writes) != 1 {
		t.Fatalf("expected 1 captured write, got %d", len(fc.writes))
	}
	var got struct {
		Topic string         `json:"topic"`
		Data  map[string]int `json:"data"`
	}
	if err := json.Unmarshal(fc.writes[0], &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Topic != "sensor_accel_status" || got.Data["device_id"] != 7 {
		t.Fatalf("datagram=%s", fc.writes[0])
	}
}

func TestSender_Send_RejectsBadPayload(t *testing.T) {
	fc := &fakeConn{}
	s := &Sender{dest: "x", conn: fc}

	if err := s.Send(context.Background(), "t", []byte("{not json")); err == nil {
		t.Fatalf("expected error for non-json payload")
	}
	big := `"` + strings.Repeat("a", maxDatagram) + `"`
	if err := s.Send(context.Background(), "t", []byte(big)); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("err=%v want size error", err)
	}
	if fc.writeHits != 0 {
		t.Fatalf("expected no writes, got %d", fc.writeHits)
	}
}

func TestSender_Send_PropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	fc := &fakeConn{writeErr: wantErr}
	s := &Sender{dest: "x", conn: fc}

	err := s.Send(context.Background(), "t", []byte("1"))
	if !errors.Is(err, wantErr) {
		t.Fatalf("err=%v want %v", err, wantErr)
	}
}

func TestSender_Close(t *testing.T) {
	var nilSender *Sender
	if err := nilSender.Close(); err != nil {
		t.Fatalf("nil Close() error: %v", err)
	}
	fc := &fakeConn{}
	s := &Sender{conn: fc}
	if err := s.Close(); err != nil || !fc.closed {
		t.Fatalf("Close() err=%v closed=%v", err, fc.closed)
	}
}

func TestSender_Loopback(t *testing.T) {
	ln, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("listen udp: %v", err)
	}
	defer ln.Close()

	s, err := NewSender(ln.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	defer s.Close()

	if err := s.Send(context.Background(), "sensor_accel", []byte(`{"x":1.5}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	_ = ln.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1500)
	n, _, err := ln.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP: %v", err)
	}
	if got := string(buf[:n]); got != `{"topic":"sensor_accel","data":{"x":1.5}}` {
		t.Fatalf("datagram=%s", got)
	}
}
