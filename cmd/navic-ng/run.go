package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"navic-ng/internal/config"
	"navic-ng/internal/gps"
	"navic-ng/internal/metrics"
	"navic-ng/internal/mqttpub"
	"navic-ng/internal/store"
	"navic-ng/internal/udp"
	"navic-ng/internal/web"
)

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Read the configured receiver and publish fixes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, *configPath)
		},
	}
}

func run(ctx context.Context, configPath string) error {
	logBuf := web.NewLogBuffer(500)
	log.SetOutput(io.MultiWriter(os.Stderr, logBuf))

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	resolved := configPath
	if abs, err := filepath.Abs(configPath); err == nil {
		resolved = abs
	}

	src := &lateSource{}
	set, err := buildSinks(cfg, src)
	if err != nil {
		return err
	}
	defer set.close()

	svc := gps.New(gpsConfig(cfg), set.sinks...)
	src.set(svc)

	log.Printf("navic-ng starting config=%s", resolved)
	log.Printf("gps enable=%t source=%s sinks=%v", cfg.GPS.Enable, cfg.GPS.Source, set.names)

	if set.store != nil {
		lctx, lcancel := context.WithTimeout(ctx, 2*time.Second)
		if last, ok, err := set.store.LastFix(lctx); err != nil {
			log.Printf("redis last fix read failed: %v", err)
		} else if ok {
			log.Printf("redis last fix lat=%.6f lon=%.6f at=%s", last.LatDeg, last.LonDeg, last.LastFixUTC)
		}
		lcancel()
	}

	// A missing receiver is reported through LastError in /api/status.
	if err := svc.Start(ctx); err != nil {
		log.Printf("gps init failed: %v", err)
	}
	defer svc.Close()

	webErr := make(chan error, 1)
	if cfg.Web.Enable {
		status := web.NewStatus()
		status.SetStatic(resolved, set.names)
		status.SetGPS(svc)
		opts := web.Options{
			Logs:    logBuf,
			Fixes:   set.fixes,
			Metrics: set.metrics.Handler(),
			Decoder: decoderInfo(cfg),
		}
		go func() {
			log.Printf("web listen=%s", cfg.Web.Listen)
			webErr <- web.Serve(ctx, cfg.Web.Listen, status, opts)
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-webErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("web server failed: %w", err)
		}
	}
	log.Printf("navic-ng stopping")
	return nil
}

func gpsConfig(cfg config.Config) gps.Config {
	g := cfg.GPS
	out := gps.Config{
		Enable:         g.Enable,
		Source:         g.Source,
		Device:         g.Device,
		Baud:           g.Baud,
		GPSDAddr:       g.GPSDAddr,
		TCPAddr:        g.TCPAddr,
		ReconnectDelay: g.ReconnectDelay,
		ReplayPath:     g.Replay.Path,
		ReplaySpeed:    g.Replay.Speed,
		ReplayLoop:     g.Replay.Loop,
		RMCName:        g.Sentences.RMC,
		GGAName:        g.Sentences.GGA,
		StaleAfter:     g.StaleAfter,
	}
	if cfg.Record.Enable {
		out.RecordPath = cfg.Record.Path
	}
	for _, cf := range g.CustomFields {
		out.CustomFields = append(out.CustomFields, gps.CustomField{Label: cf.Label, Sentence: cf.Sentence, Index: cf.Index})
	}
	return out
}

func decoderInfo(cfg config.Config) web.DecoderInfo {
	info := web.DecoderInfo{RMCName: cfg.GPS.Sentences.RMC, GGAName: cfg.GPS.Sentences.GGA}
	for _, cf := range cfg.GPS.CustomFields {
		info.CustomFields = append(info.CustomFields, fmt.Sprintf("%s=%s:%d", cf.Label, cf.Sentence, cf.Index))
	}
	return info
}

// lateSource lets the metrics collector read the service that it is itself
// a sink of.
type lateSource struct {
	svc atomic.Pointer[gps.Service]
}

func (l *lateSource) set(svc *gps.Service) { l.svc.Store(svc) }

func (l *lateSource) Snapshot() gps.Snapshot {
	if svc := l.svc.Load(); svc != nil {
		return svc.Snapshot()
	}
	return gps.Snapshot{}
}

type sinkSet struct {
	sinks   []gps.Sink
	names   []string
	closers []func()

	fixes   *web.FixBroadcaster
	metrics *metrics.Metrics
	store   *store.RedisStore
}

func (s *sinkSet) add(name string, sink gps.Sink, closer func()) {
	s.sinks = append(s.sinks, sink)
	s.names = append(s.names, name)
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
}

func (s *sinkSet) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// sinkQueueSize bounds how many snapshots a network sink may fall behind.
const sinkQueueSize = 32

// buildSinks opens every enabled publisher. The websocket broadcaster and
// metrics are always present. MQTT and Redis publish through a QueuedSink so
// broker round trips stay off the ingest goroutine. On error anything already
// opened is closed.
func buildSinks(cfg config.Config, src metrics.Source) (*sinkSet, error) {
	set := &sinkSet{}

	set.metrics = metrics.New(src)
	set.add("metrics", set.metrics, nil)

	set.fixes = web.NewFixBroadcaster()
	set.add("websocket", set.fixes, nil)

	if cfg.UDP.Enable {
		b, err := udp.NewBroadcaster(cfg.UDP.Dest)
		if err != nil {
			set.close()
			return nil, fmt.Errorf("udp broadcaster init failed: %w", err)
		}
		b.MinInterval = cfg.UDP.MinInterval
		set.add("udp:"+b.Dest(), b, func() { _ = b.Close() })
	}

	if cfg.MQTT.Enable {
		p, err := mqttpub.New(mqttpub.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      byte(cfg.MQTT.QoS),
			Retain:   cfg.MQTT.Retain,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		if err != nil {
			set.close()
			return nil, err
		}
		q := gps.NewQueuedSink("mqtt", p, sinkQueueSize)
		set.add("mqtt:"+cfg.MQTT.Topic, q, func() {
			q.Close()
			p.Close()
		})
	}

	if cfg.Redis.Enable {
		r, err := store.NewRedis(store.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			set.close()
			return nil, err
		}
		set.store = r
		q := gps.NewQueuedSink("redis", r, sinkQueueSize)
		set.add("redis:"+r.Key(), q, func() {
			q.Close()
			_ = r.Close()
		})
	}

	return set, nil
}
