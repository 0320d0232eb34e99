package gps

import (
	"fmt"
	"math"
	"time"

	"navic-ng/internal/geo"
	"navic-ng/internal/nmea"
)

// CustomField asks the decoder to capture term Index of Sentence and report
// it in Snapshot.Custom under Label.
type CustomField struct {
	Label    string
	Sentence string
	Index    int
}

type customBinding struct {
	label string
	field *nmea.CustomField
}

// fixState accumulates the most recent committed value of every field, so a
// GGA keeps the speed last seen in an RMC and vice versa.
type fixState struct {
	latDeg float64
	lonDeg float64
	posOK  bool

	altM  float64
	altOK bool

	groundKt float64
	gsOK     bool

	trackDeg float64
	trkOK    bool

	satellites int
	satsOK     bool

	hdop   float64
	hdopOK bool

	date   string
	timeOf string

	custom map[string]string

	lastFix time.Time
}

// apply reads every field the decoder just committed. Reading clears the
// decoder's updated flags, so the service must be the decoder's only reader.
func (s *fixState) apply(nowUTC time.Time, dec *nmea.Decoder, custom []customBinding) {
	if dec.Location.IsUpdated() {
		s.latDeg = dec.Location.Lat()
		s.lonDeg = dec.Location.Lng()
		s.posOK = true
		s.lastFix = nowUTC
	}
	if dec.Altitude.IsUpdated() {
		s.altM = dec.Altitude.Meters()
		s.altOK = true
	}
	if dec.Speed.IsUpdated() {
		s.groundKt = dec.Speed.Knots()
		s.gsOK = true
	}
	if dec.Course.IsUpdated() {
		v := dec.Course.Deg()
		if v < 0 || v >= 360 {
			v = math.Mod(v, 360)
			if v < 0 {
				v += 360
			}
		}
		s.trackDeg = v
		s.trkOK = true
	}
	if dec.Satellites.IsUpdated() {
		s.satellites = int(dec.Satellites.Value())
		s.satsOK = true
	}
	if dec.HDOP.IsUpdated() {
		s.hdop = dec.HDOP.HDOP()
		s.hdopOK = true
	}
	if dec.Date.IsUpdated() {
		s.date = fmt.Sprintf("%04d-%02d-%02d", dec.Date.Year(), dec.Date.Month(), dec.Date.Day())
	}
	if dec.Time.IsUpdated() {
		s.timeOf = fmt.Sprintf("%02d:%02d:%02d.%02d", dec.Time.Hour(), dec.Time.Minute(), dec.Time.Second(), dec.Time.Centisecond())
	}
	for _, b := range custom {
		if !b.field.IsUpdated() {
			continue
		}
		if s.custom == nil {
			s.custom = make(map[string]string)
		}
		s.custom[b.label] = b.field.Value()
	}
}

func (s *fixState) snapshot(base Snapshot) Snapshot {
	out := base
	out.Enabled = true
	out.Valid = s.posOK
	if s.posOK {
		out.LatDeg = s.latDeg
		out.LonDeg = s.lonDeg
	}
	if s.altOK {
		m := s.altM
		ft := int(math.Round(geo.MetersToFeet(m)))
		out.AltM = &m
		out.AltFeet = &ft
	}
	if s.gsOK {
		v := s.groundKt
		out.GroundKt = &v
	}
	if s.trkOK {
		v := s.trackDeg
		out.TrackDeg = &v
		out.Cardinal = geo.Cardinal(v)
	}
	if s.satsOK {
		v := s.satellites
		out.Satellites = &v
	}
	if s.hdopOK {
		v := s.hdop
		out.HDOP = &v
	}
	out.Date = s.date
	out.TimeUTC = s.timeOf
	if len(s.custom) > 0 {
		out.Custom = make(map[string]string, len(s.custom))
		for k, v := range s.custom {
			out.Custom[k] = v
		}
	}
	if !s.lastFix.IsZero() {
		out.LastFixUTC = s.lastFix.UTC().Format(time.RFC3339Nano)
	}
	return out
}
