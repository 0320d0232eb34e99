package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"
)

const gpsdDefaultAddr = "127.0.0.1:2947"

// dialGPSD connects to gpsd over TCP.
func dialGPSD(ctx context.Context, addr string) (net.Conn, error) {
	if strings.TrimSpace(addr) == "" {
		addr = gpsdDefaultAddr
	}
	d := &net.Dialer{Timeout: 2 * time.Second}
	if ctx == nil {
		return d.Dial("tcp", addr)
	}
	return d.DialContext(ctx, "tcp", addr)
}

// gpsdWatch asks gpsd to pass the receiver's sentences through untouched so
// our own decoder sees the exact bytes the device sent.
func gpsdWatch(w io.Writer) error {
	_, err := w.Write([]byte("?WATCH={\"enable\":true,\"nmea\":true}\n"))
	return err
}

// copyGPSDNMEA forwards NMEA lines from a gpsd watch stream to feed, dropping
// the JSON status objects (VERSION, DEVICES, WATCH) gpsd interleaves.
func copyGPSDNMEA(ctx context.Context, r io.Reader, feed func([]byte)) error {
	br := bufio.NewReaderSize(r, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := br.ReadBytes('\n')
		if len(line) > 0 && line[0] != '{' {
			feed(line)
		}
		if err != nil {
			return err
		}
	}
}

func (s *Service) startGPSDLocked(ctx context.Context) error {
	addr := strings.TrimSpace(s.cfg.GPSDAddr)
	if addr == "" {
		addr = gpsdDefaultAddr
	}
	p, err := s.newPump("gpsd", 0)
	if err != nil {
		return err
	}
	p.base.GPSDAddr = addr

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer p.close()

		log.Printf("gps enabled source=gpsd addr=%s", addr)
		backoff := 250 * time.Millisecond
		maxBackoff := 10 * time.Second

		for {
			select {
			case <-childCtx.Done():
				return
			default:
			}

			conn, err := dialGPSD(childCtx, addr)
			if err != nil {
				s.setError(fmt.Sprintf("gpsd dial failed addr=%s: %v", addr, err))
				t := backoff
				if t > maxBackoff {
					t = maxBackoff
				}
				if !sleepCtx(childCtx, t) {
					return
				}
				if backoff < maxBackoff {
					backoff *= 2
				}
				continue
			}

			// Reset backoff after a successful connection.
			backoff = 250 * time.Millisecond

			s.mu.Lock()
			// Swap the closer so Close() can interrupt an active connection.
			s.closer = conn
			s.mu.Unlock()

			func() {
				defer func() { _ = conn.Close() }()

				if err := gpsdWatch(conn); err != nil {
					s.setError(fmt.Sprintf("gpsd watch failed: %v", err))
					return
				}
				if err := copyGPSDNMEA(childCtx, conn, p.feed); err != nil && childCtx.Err() == nil {
					s.setError(fmt.Sprintf("gpsd read stopped: %v", err))
				}
			}()

			if !sleepCtx(childCtx, backoff) {
				return
			}
		}
	}()

	s.last.Store(p.base)
	return nil
}
