package web

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogBuffer_JoinsPartialWrites(t *testing.T) {
	b := NewLogBuffer(10)
	_, _ = b.Write([]byte("gps enabled "))
	_, _ = b.Write([]byte("source=tcp\nsecond"))
	lines, _ := b.Snapshot(0)
	if len(lines) != 1 || lines[0] != "gps enabled source=tcp" {
		t.Fatalf("lines=%q", lines)
	}
	_, _ = b.Write([]byte(" line\n"))
	lines, _ = b.Snapshot(0)
	if len(lines) != 2 || lines[1] != "second line" {
		t.Fatalf("lines=%q", lines)
	}
}

func TestLogBuffer_DropsOldest(t *testing.T) {
	b := NewLogBuffer(2)
	_, _ = b.Write([]byte("a\nb\nc\n"))
	lines, dropped := b.Snapshot(10)
	if dropped != 1 || len(lines) != 2 || lines[0] != "b" {
		t.Fatalf("lines=%q dropped=%d", lines, dropped)
	}
}

func TestLogBuffer_HandlerMatchFilter(t *testing.T) {
	b := NewLogBuffer(10)
	_, _ = b.Write([]byte("gps read stopped: EOF\nmqtt connected broker=x\ngps tcp dial failed\n"))

	rr := httptest.NewRecorder()
	b.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/api/logs?match=gps", nil))
	var resp LogsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Lines) != 2 {
		t.Fatalf("lines=%q want 2 gps lines", resp.Lines)
	}

	rr = httptest.NewRecorder()
	b.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/api/logs?tail=0", nil))
	if rr.Code != 400 {
		t.Fatalf("tail=0 code=%d want 400", rr.Code)
	}
}

func TestLogBuffer_SinceReturnsOnlyNewLines(t *testing.T) {
	b := NewLogBuffer(3)
	_, _ = b.Write([]byte("a\nb\n"))
	lines, next, _ := b.Since(0, 0)
	if len(lines) != 2 || next != 2 || lines[1].Seq != 2 {
		t.Fatalf("lines=%+v next=%d", lines, next)
	}

	_, _ = b.Write([]byte("c\nd\n"))
	lines, next, dropped := b.Since(next, 0)
	if len(lines) != 2 || lines[0].Text != "c" || lines[1].Text != "d" || next != 4 {
		t.Fatalf("lines=%+v next=%d", lines, next)
	}
	if dropped != 1 {
		t.Fatalf("dropped=%d want 1", dropped)
	}

	lines, next, _ = b.Since(next, 0)
	if len(lines) != 0 || next != 4 {
		t.Fatalf("lines=%+v next=%d", lines, next)
	}
}

func TestSubsystem_SkipsStandardLogPrefix(t *testing.T) {
	for in, want := range map[string]string{
		"2026/10/19 08:15:02 gps checksum failed count=1":       "gps",
		"2026/10/19 08:15:02.123456 redis last fix read failed": "redis",
		"web: fix websocket upgrade error":                      "web",
		"navic-ng starting":                                     "navic-ng",
	} {
		if got := subsystem(in); got != want {
			t.Fatalf("subsystem(%q)=%q want %q", in, got, want)
		}
	}
}

func TestLogBuffer_HandlerSubsystemAndSince(t *testing.T) {
	b := NewLogBuffer(10)
	_, _ = b.Write([]byte(
		"2026/10/19 08:15:00 gps enabled source=serial device=/dev/ttyACM0 baud=9600\n" +
			"2026/10/19 08:15:01 mqtt connected broker=tcp://x:1883\n" +
			"2026/10/19 08:15:02 gps checksum failed count=3 total=3 last_sentence=GNRMC\n"))

	get := func(query string) LogsResponse {
		t.Helper()
		rr := httptest.NewRecorder()
		b.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/api/logs"+query, nil))
		if rr.Code != 200 {
			t.Fatalf("%s code=%d body=%q", query, rr.Code, rr.Body.String())
		}
		var resp LogsResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp
	}

	resp := get("?subsystem=gps&match=checksum")
	if len(resp.Lines) != 1 || resp.Lines[0].Seq != 3 {
		t.Fatalf("lines=%+v", resp.Lines)
	}
	if resp.NextSeq != 3 {
		t.Fatalf("next_seq=%d", resp.NextSeq)
	}

	resp = get("?subsystem=gps&since=1")
	if len(resp.Lines) != 1 || !strings.Contains(resp.Lines[0].Text, "last_sentence=GNRMC") {
		t.Fatalf("lines=%+v", resp.Lines)
	}

	resp = get("?since=3")
	if resp.Lines == nil || len(resp.Lines) != 0 {
		t.Fatalf("lines=%#v want empty list", resp.Lines)
	}

	rr := httptest.NewRecorder()
	b.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/api/logs?since=-1", nil))
	if rr.Code != 400 {
		t.Fatalf("since=-1 code=%d want 400", rr.Code)
	}
}
