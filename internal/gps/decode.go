package gps

import (
	"context"
	"errors"
	"io"

	"navic-ng/internal/nmea"
)

// SinkFunc adapts a function to Sink.
type SinkFunc func(snap Snapshot) error

func (f SinkFunc) PublishFix(snap Snapshot) error { return f(snap) }

// Decode runs r through the same pipeline the service uses and calls emit
// once per validated sentence. Source settings in cfg are ignored. It stops
// at EOF, on a read error, or at the first emit error.
func Decode(ctx context.Context, r io.Reader, cfg Config, emit func(Snapshot) error) (nmea.Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var emitErr error
	cfg.Enable = true
	cfg.Source = "decode"
	cfg.RecordPath = ""
	s := New(cfg, SinkFunc(func(snap Snapshot) error {
		if emitErr != nil {
			return emitErr
		}
		if err := emit(snap); err != nil {
			emitErr = err
			cancel()
		}
		return emitErr
	}))
	p, err := s.newPump("", 0)
	if err != nil {
		return nmea.Stats{}, err
	}
	err = p.readFrom(ctx, r)
	if emitErr != nil {
		return s.Stats(), emitErr
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return s.Stats(), err
	}
	return s.Stats(), nil
}
