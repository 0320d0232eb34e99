package web

import (
	"sync/atomic"
	"time"

	"navic-ng/internal/gps"
	"navic-ng/internal/nmea"
)

// FixSource is typically *gps.Service.
type FixSource interface {
	Snapshot() gps.Snapshot
}

type Status struct {
	startUnixNano int64
	configPath    atomic.Value // string
	sinks         atomic.Value // []string
	gps           atomic.Value // fixSourceBox
}

type fixSourceBox struct {
	src FixSource
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.configPath.Store("")
	s.sinks.Store([]string{})
	s.gps.Store(fixSourceBox{})
	return s
}

// SetStatic records values that do not change while the process runs.
func (s *Status) SetStatic(configPath string, sinks []string) {
	if configPath != "" {
		s.configPath.Store(configPath)
	}
	if sinks != nil {
		s.sinks.Store(append([]string(nil), sinks...))
	}
}

func (s *Status) SetGPS(src FixSource) {
	s.gps.Store(fixSourceBox{src: src})
}

type StatusSnapshot struct {
	Service        string       `json:"service"`
	DecoderVersion string       `json:"decoder_version"`
	NowUTC         string       `json:"now_utc"`
	UptimeSec      int64        `json:"uptime_sec"`
	ConfigPath     string       `json:"config_path,omitempty"`
	Sinks          []string     `json:"sinks"`
	GPS            gps.Snapshot `json:"gps"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	uptime := nowUTC.Sub(start)

	snap := StatusSnapshot{
		Service:        "navic-ng",
		DecoderVersion: nmea.Version,
		NowUTC:         nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:      int64(uptime.Seconds()),
		ConfigPath:     s.configPath.Load().(string),
		Sinks:          s.sinks.Load().([]string),
	}
	if box := s.gps.Load().(fixSourceBox); box.src != nil {
		snap.GPS = box.src.Snapshot()
	}
	return snap
}
