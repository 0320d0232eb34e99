package gps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"navic-ng/internal/clock"
	"navic-ng/internal/nmea"
	"navic-ng/internal/replay"
)

const (
	SourceSerial = "serial"
	SourceGPSD   = "gpsd"
	SourceTCP    = "tcp"
	SourceReplay = "replay"
)

// Config controls the GPS reader.
//
// NavIC receivers usually appear as /dev/ttyACM* or /dev/ttyUSB* and emit
// GNRMC/GNGGA at 9600 baud. Device may be empty to auto-detect.
//
// Failures are reported through Snapshot.LastError and never bring down the
// main process.
type Config struct {
	Enable bool

	// Source selects how bytes are ingested: "serial", "gpsd", "tcp" or
	// "replay". When empty, defaults to "serial". "nmea" is accepted as an
	// alias for "serial".
	Source string

	// Device is the serial device path for Source=="serial".
	Device string
	Baud   int

	// GPSDAddr is host:port for gpsd when Source=="gpsd".
	GPSDAddr string

	// TCPAddr is host:port of a raw NMEA stream when Source=="tcp".
	TCPAddr        string
	ReconnectDelay time.Duration

	ReplayPath  string
	ReplaySpeed float64
	ReplayLoop  bool

	// RecordPath, when set, appends every chunk read from the source to a
	// capture log that Source=="replay" can play back later.
	RecordPath string

	RMCName      string
	GGAName      string
	CustomFields []CustomField

	// StaleAfter marks the fix stale when no location has been committed for
	// this long. Zero disables staleness.
	StaleAfter time.Duration

	// Clock drives field ages inside the decoder. Nil uses the system clock.
	Clock clock.Clock
}

type Snapshot struct {
	Enabled  bool `json:"enabled"`
	Valid    bool `json:"valid"`
	FixStale bool `json:"fix_stale"`

	Source   string `json:"source,omitempty"`
	GPSDAddr string `json:"gpsd_addr,omitempty"`
	TCPAddr  string `json:"tcp_addr,omitempty"`

	Device string `json:"device,omitempty"`
	Baud   int    `json:"baud,omitempty"`

	LatDeg     float64           `json:"lat_deg,omitempty"`
	LonDeg     float64           `json:"lon_deg,omitempty"`
	AltM       *float64          `json:"alt_m,omitempty"`
	AltFeet    *int              `json:"alt_feet,omitempty"`
	GroundKt   *float64          `json:"ground_kt,omitempty"`
	TrackDeg   *float64          `json:"track_deg,omitempty"`
	Cardinal   string            `json:"cardinal,omitempty"`
	Satellites *int              `json:"satellites,omitempty"`
	HDOP       *float64          `json:"hdop,omitempty"`
	Date       string            `json:"date,omitempty"`
	TimeUTC    string            `json:"time_utc,omitempty"`
	Custom     map[string]string `json:"custom,omitempty"`
	Sentence   string            `json:"sentence,omitempty"`
	FixAgeSec  float64           `json:"fix_age_sec,omitempty"`

	LastFixUTC string `json:"last_fix_utc,omitempty"`
	LastError  string `json:"last_error,omitempty"`

	Stats nmea.Stats `json:"stats"`
}

// Sink receives a snapshot after every sentence that passed its checksum.
// PublishFix runs on the ingest goroutine and should not block for long;
// wrap network sinks in a QueuedSink.
type Sink interface {
	PublishFix(snap Snapshot) error
}

type Service struct {
	cfg   Config
	sinks []Sink

	cancel context.CancelFunc
	wg     sync.WaitGroup

	last    atomic.Value // Snapshot
	stats   atomic.Value // nmea.Stats
	lastFix atomic.Int64 // unix nanos of the last committed location

	mu     sync.Mutex
	closer io.Closer
}

func New(cfg Config, sinks ...Sink) *Service {
	cfg.Source = normalizeSource(cfg.Source)
	s := &Service{cfg: cfg}
	for _, sk := range sinks {
		if sk != nil {
			s.sinks = append(s.sinks, sk)
		}
	}
	s.last.Store(s.baseSnapshot())
	s.stats.Store(nmea.Stats{})
	return s
}

func normalizeSource(src string) string {
	src = strings.ToLower(strings.TrimSpace(src))
	if src == "" || src == "nmea" {
		return SourceSerial
	}
	return src
}

func (s *Service) baseSnapshot() Snapshot {
	return Snapshot{
		Enabled:  s.cfg.Enable,
		Source:   s.cfg.Source,
		GPSDAddr: strings.TrimSpace(s.cfg.GPSDAddr),
		TCPAddr:  strings.TrimSpace(s.cfg.TCPAddr),
		Device:   s.cfg.Device,
		Baud:     s.cfg.Baud,
	}
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	switch s.cfg.Source {
	case SourceSerial:
		return s.startSerialLocked(ctx)
	case SourceGPSD:
		return s.startGPSDLocked(ctx)
	case SourceTCP:
		return s.startTCPLocked(ctx)
	case SourceReplay:
		return s.startReplayLocked(ctx)
	default:
		return fmt.Errorf("gps: unknown source %q", s.cfg.Source)
	}
}

func (s *Service) startSerialLocked(ctx context.Context) error {
	device := strings.TrimSpace(s.cfg.Device)
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			s.setErrorLocked("gps auto-detect failed: no /dev/ttyACM* or /dev/ttyUSB* found")
			return fmt.Errorf("gps auto-detect failed")
		}
	}

	baud := s.cfg.Baud
	if baud == 0 {
		baud = 9600
	}

	f, err := openSerial(device, baud)
	if err != nil {
		s.setErrorLocked(fmt.Sprintf("gps open failed device=%s baud=%d: %v", device, baud, err))
		return err
	}
	s.closer = f

	p, err := s.newPump(device, baud)
	if err != nil {
		_ = f.Close()
		s.setErrorLocked(err.Error())
		return err
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer p.close()
		defer func() { _ = f.Close() }()

		log.Printf("gps enabled source=serial device=%s baud=%d", device, baud)
		if err := p.readFrom(childCtx, f); err != nil && childCtx.Err() == nil {
			s.setError(fmt.Sprintf("gps read stopped: %v", err))
		}
	}()

	s.last.Store(p.base)
	return nil
}

func (s *Service) startReplayLocked(ctx context.Context) error {
	path := strings.TrimSpace(s.cfg.ReplayPath)
	if path == "" {
		return fmt.Errorf("gps replay path is empty")
	}
	records, err := replay.ReadFile(path)
	if err != nil {
		s.setErrorLocked(err.Error())
		return err
	}
	p, err := s.newPump(path, 0)
	if err != nil {
		return err
	}
	speed := s.cfg.ReplaySpeed
	if speed <= 0 {
		speed = 1
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer p.close()

		log.Printf("gps enabled source=replay path=%s speed=%.2f loop=%t", path, speed, s.cfg.ReplayLoop)
		err := replay.Play(records, speed, s.cfg.ReplayLoop, ctxSleeper{ctx: childCtx}, func(data []byte) error {
			if err := childCtx.Err(); err != nil {
				return err
			}
			p.feed(data)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.setError(fmt.Sprintf("gps replay stopped: %v", err))
			return
		}
		if err == nil {
			log.Printf("gps replay finished path=%s", path)
		}
	}()

	s.last.Store(p.base)
	return nil
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.cancel = nil
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
}

// Snapshot returns the latest fix with FixAgeSec and FixStale computed
// against the wall clock.
func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	v := s.last.Load()
	if v == nil {
		return Snapshot{}
	}
	snap := v.(Snapshot)
	if ns := s.lastFix.Load(); ns > 0 {
		age := time.Since(time.Unix(0, ns))
		if age < 0 {
			age = 0
		}
		snap.FixAgeSec = age.Seconds()
		if s.cfg.StaleAfter > 0 && age > s.cfg.StaleAfter {
			snap.FixStale = true
		}
	}
	snap.Stats = s.Stats()
	return snap
}

// Stats returns the decoder counters as of the last chunk read.
func (s *Service) Stats() nmea.Stats {
	if s == nil {
		return nmea.Stats{}
	}
	v, _ := s.stats.Load().(nmea.Stats)
	return v
}

func (s *Service) publish(snap Snapshot, fixAt time.Time) {
	if !fixAt.IsZero() {
		s.lastFix.Store(fixAt.UnixNano())
	}
	s.last.Store(snap)
	for _, sk := range s.sinks {
		if err := sk.PublishFix(snap); err != nil {
			// Keep the last error; a flaky sink must not stall ingest.
			s.setError(fmt.Sprintf("gps sink: %v", err))
		}
	}
}

func (s *Service) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErrorLocked(msg)
}

func (s *Service) setErrorLocked(msg string) {
	v, _ := s.last.Load().(Snapshot)
	v.LastError = msg
	// Do not force Valid=false here; transient issues shouldn't flip validity.
	s.last.Store(v)
}

// pump owns the decoder. It is only used from one ingest goroutine.
type pump struct {
	svc    *Service
	dec    *nmea.Decoder
	custom []customBinding
	st     fixState
	base   Snapshot
	rec    *replay.Writer

	// Checksum failures are logged at most once per checksumLogEvery.
	failSeen   uint64
	failName   string
	failLogged uint64
	failLogAt  time.Time
}

const checksumLogEvery = 10 * time.Second

func (s *Service) newPump(device string, baud int) (*pump, error) {
	dec := nmea.New(nmea.Config{RMCName: s.cfg.RMCName, GGAName: s.cfg.GGAName, Clock: s.cfg.Clock})
	p := &pump{svc: s, dec: dec}
	for _, cf := range s.cfg.CustomFields {
		if strings.TrimSpace(cf.Sentence) == "" || cf.Index < 0 {
			return nil, fmt.Errorf("gps custom field %q: sentence and index are required", cf.Label)
		}
		f := dec.RegisterCustom(cf.Sentence, cf.Index)
		p.custom = append(p.custom, customBinding{label: cf.Label, field: f})
	}

	p.base = s.baseSnapshot()
	p.base.Enabled = true
	p.base.Device = device
	p.base.Baud = baud

	if path := strings.TrimSpace(s.cfg.RecordPath); path != "" {
		w, err := replay.CreateWriter(path)
		if err != nil {
			return nil, fmt.Errorf("gps record: %w", err)
		}
		p.rec = w
		log.Printf("gps recording path=%s", path)
	}
	return p, nil
}

// feed decodes one chunk of raw receiver bytes.
func (p *pump) feed(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	now := time.Now().UTC()
	if p.rec != nil {
		if err := p.rec.WriteChunk(now, chunk); err != nil {
			p.svc.setError(fmt.Sprintf("gps record write failed: %v", err))
		}
	}
	for _, c := range chunk {
		if !p.dec.Encode(c) {
			if f := p.dec.FailedChecksum(); f != p.failSeen {
				p.failSeen = f
				p.failName = p.dec.SentenceName()
			}
			continue
		}
		prevFix := p.st.lastFix
		p.st.apply(now, p.dec, p.custom)
		snap := p.st.snapshot(p.base)
		snap.Sentence = p.dec.SentenceName()
		snap.Stats = p.dec.Stats()
		var fixAt time.Time
		if !p.st.lastFix.Equal(prevFix) {
			fixAt = p.st.lastFix
		}
		p.svc.stats.Store(p.dec.Stats())
		p.svc.publish(snap, fixAt)
	}
	p.svc.stats.Store(p.dec.Stats())
	p.logChecksumFailures(now)
}

func (p *pump) logChecksumFailures(now time.Time) {
	if p.failSeen == p.failLogged {
		return
	}
	if !p.failLogAt.IsZero() && now.Sub(p.failLogAt) < checksumLogEvery {
		return
	}
	log.Printf("gps checksum failed count=%d total=%d last_sentence=%s", p.failSeen-p.failLogged, p.failSeen, p.failName)
	p.failLogged = p.failSeen
	p.failLogAt = now
}

// readFrom feeds r into the decoder until it fails or ctx is done.
func (p *pump) readFrom(ctx context.Context, r io.Reader) error {
	buf := make([]byte, 512)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			p.feed(buf[:n])
		}
		if err != nil {
			return err
		}
	}
}

func (p *pump) close() {
	if p.rec == nil {
		return
	}
	if err := p.rec.Close(); err != nil {
		log.Printf("gps record close failed: %v", err)
	}
	p.rec = nil
}

type ctxSleeper struct {
	ctx context.Context
}

func (c ctxSleeper) Sleep(d time.Duration) { _ = sleepCtx(c.ctx, d) }

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func autoDetectDevice() string {
	candidates := []string{}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
