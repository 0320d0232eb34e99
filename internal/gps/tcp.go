package gps

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"
)

// startTCPLocked reads a raw NMEA byte stream from a TCP endpoint, such as a
// serial-to-network bridge, reconnecting after ReconnectDelay on failure.
func (s *Service) startTCPLocked(ctx context.Context) error {
	addr := strings.TrimSpace(s.cfg.TCPAddr)
	if addr == "" {
		return fmt.Errorf("gps tcp addr is empty")
	}
	delay := s.cfg.ReconnectDelay
	if delay <= 0 {
		delay = 1 * time.Second
	}
	p, err := s.newPump("tcp", 0)
	if err != nil {
		return err
	}
	p.base.TCPAddr = addr

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer p.close()

		log.Printf("gps enabled source=tcp addr=%s", addr)
		dialer := &net.Dialer{Timeout: 2 * time.Second}
		for {
			select {
			case <-childCtx.Done():
				return
			default:
			}

			conn, err := dialer.DialContext(childCtx, "tcp", addr)
			if err != nil {
				if childCtx.Err() == nil {
					s.setError(fmt.Sprintf("gps tcp dial failed addr=%s: %v", addr, err))
				}
				if !sleepCtx(childCtx, delay) {
					return
				}
				continue
			}

			s.mu.Lock()
			s.closer = conn
			s.mu.Unlock()

			err = p.readFrom(childCtx, conn)
			_ = conn.Close()
			if err != nil && childCtx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				s.setError(fmt.Sprintf("gps tcp disconnected addr=%s: %v", addr, err))
			}

			if !sleepCtx(childCtx, delay) {
				return
			}
		}
	}()

	s.last.Store(p.base)
	return nil
}
