package nmea

import (
	"strings"

	"navic-ng/internal/clock"
)

const (
	DefaultRMCName = "GNRMC"
	DefaultGGAName = "GNGGA"

	// maxTermSize is the term buffer size; one slot stays reserved, so at most
	// maxTermSize-1 characters of a term are kept.
	maxTermSize = 15
)

// Config controls sentence recognition and timestamps. The zero value decodes
// GNRMC/GNGGA against the system clock.
type Config struct {
	// RMCName and GGAName are matched exactly against a sentence's first term.
	RMCName string
	GGAName string

	Clock clock.Clock
}

// Stats are counters kept for the lifetime of a Decoder.
type Stats struct {
	CharsProcessed   uint64 `json:"chars_processed"`
	SentencesWithFix uint64 `json:"sentences_with_fix"`
	FailedChecksum   uint64 `json:"failed_checksum"`
	PassedChecksum   uint64 `json:"passed_checksum"`
}

// Decoder is the byte-at-a-time NMEA state machine. Its exported fields only
// change when a sentence passes its checksum.
type Decoder struct {
	Location   Location
	Date       Date
	Time       Time
	Speed      Speed
	Course     Course
	Altitude   Altitude
	Satellites Integer
	HDOP       HDOP

	rmcName string
	ggaName string
	clock   clock.Clock

	// per-term
	term           [maxTermSize]byte
	termLen        int
	isChecksumTerm bool

	// per-sentence
	parity       byte
	sentence     sentenceType
	sentenceName string
	termIndex    int
	hasFix       bool

	custom    registry
	candidate int

	stats Stats
}

func New(cfg Config) *Decoder {
	d := &Decoder{
		rmcName:   strings.TrimSpace(cfg.RMCName),
		ggaName:   strings.TrimSpace(cfg.GGAName),
		clock:     cfg.Clock,
		candidate: -1,
	}
	if d.rmcName == "" {
		d.rmcName = DefaultRMCName
	}
	if d.ggaName == "" {
		d.ggaName = DefaultGGAName
	}
	if d.clock == nil {
		d.clock = clock.NewSystem()
	}
	for _, f := range []interface{ bind(clock.Clock) }{
		&d.Location, &d.Date, &d.Time, &d.Speed, &d.Course, &d.Altitude, &d.Satellites, &d.HDOP,
	} {
		f.bind(d.clock)
	}
	return d
}

// Register adds a caller-owned custom field. Fields may be registered at any
// time; a sentence already in progress picks the new field up.
func (d *Decoder) Register(f *CustomField) {
	if f == nil {
		return
	}
	f.bind(d.clock)
	d.custom.insert(f)
	if d.termIndex > 0 {
		d.candidate = d.custom.candidates(d.sentenceName)
	}
}

// RegisterCustom allocates and registers a custom field for term index of
// sentences named name.
func (d *Decoder) RegisterCustom(name string, index int) *CustomField {
	f := NewCustomField(name, index)
	d.Register(f)
	return f
}

// CustomFields returns the registered fields in match order.
func (d *Decoder) CustomFields() []*CustomField {
	out := make([]*CustomField, d.custom.len())
	copy(out, d.custom.fields)
	return out
}

// Encode processes one character. It returns true only when c completed a
// sentence whose checksum matched, i.e. when new values were just committed.
func (d *Decoder) Encode(c byte) bool {
	d.stats.CharsProcessed++

	switch c {
	case ',':
		d.parity ^= c
		return d.endTerm(false)
	case '\r', '\n':
		return d.endTerm(false)
	case '*':
		return d.endTerm(true)
	case '$':
		d.termIndex = 0
		d.termLen = 0
		d.parity = 0
		d.sentence = sentenceOther
		d.sentenceName = ""
		d.isChecksumTerm = false
		d.hasFix = false
		d.candidate = -1
		return false
	default:
		if d.termLen < maxTermSize-1 {
			d.term[d.termLen] = c
			d.termLen++
		}
		if !d.isChecksumTerm {
			d.parity ^= c
		}
		return false
	}
}

// EncodeString feeds every byte of s and returns how many sentences passed
// their checksum.
func (d *Decoder) EncodeString(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if d.Encode(s[i]) {
			n++
		}
	}
	return n
}

// Write implements io.Writer. It never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	for _, c := range p {
		d.Encode(c)
	}
	return len(p), nil
}

// WriteByte implements io.ByteWriter.
func (d *Decoder) WriteByte(c byte) error {
	d.Encode(c)
	return nil
}

func (d *Decoder) Stats() Stats { return d.stats }

// SentenceName is the first term of the sentence most recently started. After
// Encode returns true it names the sentence that was just committed.
func (d *Decoder) SentenceName() string { return d.sentenceName }

func (d *Decoder) CharsProcessed() uint64   { return d.stats.CharsProcessed }
func (d *Decoder) SentencesWithFix() uint64 { return d.stats.SentencesWithFix }
func (d *Decoder) FailedChecksum() uint64   { return d.stats.FailedChecksum }
func (d *Decoder) PassedChecksum() uint64   { return d.stats.PassedChecksum }

func (d *Decoder) endTerm(nextIsChecksum bool) bool {
	ok := d.endOfTerm(string(d.term[:d.termLen]))
	d.termIndex++
	d.termLen = 0
	d.isChecksumTerm = nextIsChecksum
	return ok
}

// endOfTerm handles a just-completed term and reports whether a sentence was
// validated and committed.
func (d *Decoder) endOfTerm(term string) bool {
	if d.isChecksumTerm {
		if checksumOf(term) != d.parity {
			d.stats.FailedChecksum++
			return false
		}
		d.stats.PassedChecksum++
		if d.hasFix {
			d.stats.SentencesWithFix++
		}
		d.commitSentence()
		return true
	}

	if d.termIndex == 0 {
		d.sentenceName = term
		switch term {
		case d.rmcName:
			d.sentence = sentenceRMC
		case d.ggaName:
			d.sentence = sentenceGGA
		default:
			d.sentence = sentenceOther
		}
		d.candidate = d.custom.candidates(term)
		return false
	}

	d.dispatch(term)
	d.custom.stage(d.candidate, d.termIndex, term)
	return false
}

// commitSentence makes the staged values of the validated sentence visible
// as one group.
func (d *Decoder) commitSentence() {
	var txn transaction
	switch d.sentence {
	case sentenceRMC:
		txn.add(&d.Date, &d.Time)
		if d.hasFix {
			txn.add(&d.Location, &d.Speed, &d.Course)
		}
	case sentenceGGA:
		txn.add(&d.Time)
		if d.hasFix {
			txn.add(&d.Location, &d.Altitude)
		}
		txn.add(&d.Satellites, &d.HDOP)
	}
	for _, f := range d.custom.matching(d.candidate) {
		txn.add(f)
	}
	txn.commit(d.clock.Millis())
}
