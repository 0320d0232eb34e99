package nmea

import (
	"math"
	"time"

	"navic-ng/internal/clock"
	"navic-ng/internal/geo"
)

// NeverValid is returned by Age for a field that has never been committed.
const NeverValid = time.Duration(math.MaxInt64)

// Field is a decoded value with a pending slot written while a sentence is
// being parsed and a committed slot that only changes when a sentence passes
// its checksum.
type Field[T any] struct {
	pending   T
	committed T

	valid   bool
	updated bool

	committedAt int64
	clock       clock.Clock
}

// IsValid reports whether the field has ever been committed.
func (f *Field[T]) IsValid() bool { return f.valid }

// IsUpdated reports whether the field was committed since it was last read.
func (f *Field[T]) IsUpdated() bool { return f.updated }

// Age is the time since the last commit, or NeverValid.
func (f *Field[T]) Age() time.Duration {
	if !f.valid || f.clock == nil {
		return NeverValid
	}
	return time.Duration(f.clock.Millis()-f.committedAt) * time.Millisecond
}

// Value returns the committed value and clears the updated flag.
func (f *Field[T]) Value() T {
	f.updated = false
	return f.committed
}

func (f *Field[T]) bind(c clock.Clock) { f.clock = c }

func (f *Field[T]) stage(v T) { f.pending = v }

func (f *Field[T]) commit(atMs int64) {
	f.committed = f.pending
	f.committedAt = atMs
	f.valid = true
	f.updated = true
}

type committer interface {
	commit(atMs int64)
}

// transaction is the set of fields one validated sentence makes visible.
// All members share a single commit timestamp.
type transaction []committer

func (t *transaction) add(fs ...committer) { *t = append(*t, fs...) }

func (t transaction) commit(atMs int64) {
	for _, f := range t {
		f.commit(atMs)
	}
}

// Position is a latitude/longitude pair as received.
type Position struct {
	Lat RawDegrees
	Lng RawDegrees
}

type Location struct {
	Field[Position]
}

func (l *Location) RawLat() RawDegrees { return l.Value().Lat }
func (l *Location) RawLng() RawDegrees { return l.Value().Lng }
func (l *Location) Lat() float64       { return l.Value().Lat.Degrees() }
func (l *Location) Lng() float64       { return l.Value().Lng.Degrees() }

// Date holds the RMC date as the integer ddmmyy.
type Date struct {
	Field[uint32]
}

// Year maps the two-digit year onto 2000-2099.
func (d *Date) Year() int  { return int(d.Value()%100) + 2000 }
func (d *Date) Month() int { return int(d.Value()/100) % 100 }
func (d *Date) Day() int   { return int(d.Value() / 10000) }

// Time holds the UTC time of day as the integer hhmmsscc.
type Time struct {
	Field[uint32]
}

func (t *Time) Hour() int        { return int(t.Value() / 1000000) }
func (t *Time) Minute() int      { return int(t.Value()/10000) % 100 }
func (t *Time) Second() int      { return int(t.Value()/100) % 100 }
func (t *Time) Centisecond() int { return int(t.Value() % 100) }

// Decimal holds a fixed-point value scaled by 100.
type Decimal struct {
	Field[int32]
}

func (d *Decimal) float() float64 { return float64(d.Value()) / 100.0 }

type Integer struct {
	Field[uint32]
}

type Speed struct {
	Decimal
}

func (s *Speed) Knots() float64 { return s.float() }
func (s *Speed) MPH() float64   { return geo.KnotsToMPH(s.float()) }
func (s *Speed) MPS() float64   { return geo.KnotsToMPS(s.float()) }
func (s *Speed) KMPH() float64  { return geo.KnotsToKMPH(s.float()) }

type Course struct {
	Decimal
}

func (c *Course) Deg() float64 { return c.float() }

type Altitude struct {
	Decimal
}

func (a *Altitude) Meters() float64     { return a.float() }
func (a *Altitude) Miles() float64      { return geo.MetersToMiles(a.float()) }
func (a *Altitude) Kilometers() float64 { return geo.MetersToKM(a.float()) }
func (a *Altitude) Feet() float64       { return geo.MetersToFeet(a.float()) }

type HDOP struct {
	Decimal
}

func (h *HDOP) HDOP() float64 { return h.float() }
