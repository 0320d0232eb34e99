package replay

import (
	"time"

	"navic-ng/internal/nmea"
)

// Summary describes a capture after running it through a decoder.
type Summary struct {
	Segments    int
	Chunks      int
	Bytes       int
	MaxDuration time.Duration

	Validated        int
	FailedChecksum   uint64
	SentencesWithFix uint64
}

// Summarize decodes every chunk of records with dec, in order, without
// waiting. dec may be nil for the default GNRMC/GNGGA decoder.
func Summarize(records []Record, dec *nmea.Decoder) Summary {
	if dec == nil {
		dec = nmea.New(nmea.Config{})
	}
	var s Summary
	var origin time.Duration
	hasData := false

	for _, r := range records {
		if r.Data == nil {
			s.Segments++
			origin = r.At
			continue
		}
		hasData = true
		s.Chunks++
		s.Bytes += len(r.Data)
		if at := r.At - origin; at > s.MaxDuration {
			s.MaxDuration = at
		}
		for _, c := range r.Data {
			if dec.Encode(c) {
				s.Validated++
			}
		}
	}
	if s.Segments == 0 && hasData {
		s.Segments = 1
	}
	st := dec.Stats()
	s.FailedChecksum = st.FailedChecksum
	s.SentencesWithFix = st.SentencesWithFix
	return s
}
