package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogLine is one process log line. Seq increases by one per line for the
// life of the buffer, so a poller can ask only for lines it has not seen.
type LogLine struct {
	Seq  uint64 `json:"seq"`
	Text string `json:"text"`
}

// LogBuffer keeps the newest log lines in memory for /api/logs. It is an
// io.Writer so it can sit behind log.SetOutput.
type LogBuffer struct {
	mu      sync.Mutex
	max     int
	lines   []LogLine
	partial []byte
	nextSeq uint64
	dropped uint64
}

func NewLogBuffer(maxLines int) *LogBuffer {
	if maxLines <= 0 {
		maxLines = 2000
	}
	return &LogBuffer{max: maxLines, nextSeq: 1}
}

// Write splits p on '\n'. A trailing fragment waits for the rest of its line.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := append(b.partial, p...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		b.appendLineLocked(string(data[:i]))
		data = data[i+1:]
	}
	b.partial = append([]byte(nil), data...)
	return len(p), nil
}

func (b *LogBuffer) appendLineLocked(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	b.lines = append(b.lines, LogLine{Seq: b.nextSeq, Text: line})
	b.nextSeq++
	if over := len(b.lines) - b.max; over > 0 {
		b.lines = b.lines[over:]
		b.dropped += uint64(over)
	}
}

// Since returns up to tail lines with Seq > after, oldest first, and the Seq
// to pass next time.
func (b *LogBuffer) Since(after uint64, tail int) (lines []LogLine, next uint64, dropped uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tail <= 0 {
		tail = 200
	}
	start := len(b.lines)
	for start > 0 && b.lines[start-1].Seq > after {
		start--
	}
	if n := len(b.lines) - start; n > tail {
		start += n - tail
	}
	lines = append(make([]LogLine, 0, len(b.lines)-start), b.lines[start:]...)
	return lines, b.nextSeq - 1, b.dropped
}

// Snapshot returns the text of the newest tail lines.
func (b *LogBuffer) Snapshot(tail int) (lines []string, dropped uint64) {
	entries, _, dropped := b.Since(0, tail)
	lines = make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Text)
	}
	return lines, dropped
}

// subsystem is the first word of a log line after the standard log date and
// time, e.g. "gps" or "redis".
func subsystem(line string) string {
	if f := strings.SplitN(line, " ", 3); len(f) == 3 && isLogDate(f[0]) && isLogTime(f[1]) {
		line = f[2]
	}
	if i := strings.IndexByte(line, ' '); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSuffix(line, ":")
}

// isLogDate matches log.Ldate output, 2006/01/02.
func isLogDate(s string) bool {
	return len(s) == 10 && s[4] == '/' && s[7] == '/'
}

// isLogTime matches log.Ltime output with or without microseconds.
func isLogTime(s string) bool {
	return len(s) >= 8 && s[2] == ':' && s[5] == ':'
}

type logFilter struct {
	subsystem string
	match     string
}

func (f logFilter) keep(line string) bool {
	if f.subsystem != "" && !strings.EqualFold(subsystem(line), f.subsystem) {
		return false
	}
	return f.match == "" || strings.Contains(line, f.match)
}

func filterLines(lines []LogLine, f logFilter) []LogLine {
	if f == (logFilter{}) {
		return lines
	}
	out := lines[:0]
	for _, l := range lines {
		if f.keep(l.Text) {
			out = append(out, l)
		}
	}
	return out
}

type LogsResponse struct {
	NowUTC  string    `json:"now_utc"`
	Dropped uint64    `json:"dropped"`
	NextSeq uint64    `json:"next_seq"`
	Lines   []LogLine `json:"lines"`
}

// Handler serves the buffer. Query parameters:
//
//	tail=N          newest N lines (default 200, max 5000)
//	since=SEQ       only lines after SEQ, from a previous next_seq
//	subsystem=gps   first word of the line
//	match=checksum  substring
//	format=text     plain text instead of JSON
func (b *LogBuffer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()

		tail := 200
		if s := strings.TrimSpace(q.Get("tail")); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 || v > 5000 {
				http.Error(w, "tail must be an integer in [1,5000]", http.StatusBadRequest)
				return
			}
			tail = v
		}
		var since uint64
		if s := strings.TrimSpace(q.Get("since")); s != "" {
			v, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				http.Error(w, "since must be a non-negative integer", http.StatusBadRequest)
				return
			}
			since = v
		}

		lines, next, dropped := b.Since(since, tail)
		lines = filterLines(lines, logFilter{
			subsystem: strings.TrimSpace(q.Get("subsystem")),
			match:     q.Get("match"),
		})

		w.Header().Set("Cache-Control", "no-store")
		if strings.EqualFold(q.Get("format"), "text") {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			if dropped > 0 {
				_, _ = fmt.Fprintf(w, "[dropped=%d]\n", dropped)
			}
			for _, l := range lines {
				_, _ = fmt.Fprintf(w, "%s\n", l.Text)
			}
			return
		}

		resp := LogsResponse{
			NowUTC:  time.Now().UTC().Format(time.RFC3339Nano),
			Dropped: dropped,
			NextSeq: next,
			Lines:   lines,
		}
		bts, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(bts)
		_, _ = w.Write([]byte("\n"))
	})
}
