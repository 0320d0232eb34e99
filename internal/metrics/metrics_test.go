package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"navic-ng/internal/gps"
	"navic-ng/internal/nmea"
)

type fakeSource struct {
	snap gps.Snapshot
}

func (f *fakeSource) Snapshot() gps.Snapshot { return f.snap }

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != 200 {
		t.Fatalf("status=%d", rr.Code)
	}
	b, _ := io.ReadAll(rr.Body)
	return string(b)
}

func TestMetrics_ExposesDecoderStats(t *testing.T) {
	sats := 11
	hdop := 0.8
	src := &fakeSource{snap: gps.Snapshot{
		Valid:      true,
		Satellites: &sats,
		HDOP:       &hdop,
		Stats:      nmea.Stats{CharsProcessed: 1234, PassedChecksum: 17, FailedChecksum: 2, SentencesWithFix: 15},
	}}
	m := New(src)
	body := scrape(t, m)

	for _, want := range []string{
		"navic_chars_processed_total 1234",
		"navic_checksum_passed_total 17",
		"navic_checksum_failed_total 2",
		"navic_sentences_with_fix_total 15",
		"navic_fix_valid 1",
		"navic_satellites 11",
		"navic_hdop 0.8",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}

	src.snap.FixStale = true
	if body := scrape(t, m); !strings.Contains(body, "navic_fix_valid 0") {
		t.Fatalf("stale fix should report navic_fix_valid 0")
	}
}

func TestMetrics_PublishFixCountsBySentence(t *testing.T) {
	m := New(&fakeSource{})
	for _, name := range []string{"GNRMC", "GNGGA", "GNGGA"} {
		if err := m.PublishFix(gps.Snapshot{Sentence: name}); err != nil {
			t.Fatalf("PublishFix() error: %v", err)
		}
	}
	body := scrape(t, m)
	if !strings.Contains(body, `navic_fixes_published_total{sentence="GNGGA"} 2`) {
		t.Fatalf("missing GNGGA count in:\n%s", body)
	}
	if !strings.Contains(body, `navic_fixes_published_total{sentence="GNRMC"} 1`) {
		t.Fatalf("missing GNRMC count in:\n%s", body)
	}
}
