package udp

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"navic-ng/internal/gps"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// Broadcaster sends one JSON-encoded fix snapshot per datagram.
type Broadcaster struct {
	dest string
	conn udpConn

	// MinInterval drops fixes published sooner than this after the last
	// datagram. Zero sends every fix.
	MinInterval time.Duration

	mu       sync.Mutex
	lastSent time.Time
	now      func() time.Time
}

func NewBroadcaster(dest string) (*Broadcaster, error) {
	return newBroadcaster(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newBroadcaster(dest string, resolve resolveFunc, dial dialFunc) (*Broadcaster, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &Broadcaster{
		dest: dest,
		conn: conn,
	}, nil
}

func (b *Broadcaster) Dest() string { return b.dest }

func (b *Broadcaster) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := b.conn.Write(payload)
	return err
}

// PublishFix implements gps.Sink.
func (b *Broadcaster) PublishFix(snap gps.Snapshot) error {
	now := time.Now
	if b.now != nil {
		now = b.now
	}
	t := now()

	b.mu.Lock()
	if b.MinInterval > 0 && !b.lastSent.IsZero() && t.Sub(b.lastSent) < b.MinInterval {
		b.mu.Unlock()
		return nil
	}
	b.lastSent = t
	b.mu.Unlock()

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("udp: marshal fix: %w", err)
	}
	if err := b.Send(payload); err != nil {
		return fmt.Errorf("udp: send to %s: %w", b.dest, err)
	}
	return nil
}

func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
