package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"
)

// Options carries the optional pieces of the HTTP surface. Nil members are
// simply not routed.
type Options struct {
	Logs    *LogBuffer
	Fixes   *FixBroadcaster
	Metrics http.Handler
	Decoder DecoderInfo
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func Handler(status *Status, opts Options) http.Handler {
	if status == nil {
		status = NewStatus()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status.Snapshot(time.Now().UTC()))
	}))

	mux.HandleFunc("/api/fix", getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status.Snapshot(time.Now().UTC()).GPS)
	}))

	if opts.Fixes != nil {
		mux.Handle("/api/fix/ws", opts.Fixes.Handler())
	}

	if opts.Logs != nil {
		mux.Handle("/api/logs", opts.Logs.Handler())
	}

	mux.Handle("/api/about", AboutHandler(opts.Decoder))

	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/", getOnly(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		snap := status.Snapshot(time.Now().UTC())
		g := snap.GPS
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>NavIC-NG</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>NavIC-NG</h1>")
		_, _ = fmt.Fprintf(w, "<p>JSON: <a href=\"/api/status\">/api/status</a>, live: <code>/api/fix/ws</code>, logs: <a href=\"/api/logs?format=text\">/api/logs</a></p>")
		_, _ = fmt.Fprintf(w, "<pre>source=%s\nvalid=%t stale=%t\nlat=%.6f lon=%.6f\nsentence=%s\npassed=%d failed=%d with_fix=%d\nlast_error=%s</pre>",
			html.EscapeString(g.Source), g.Valid, g.FixStale, g.LatDeg, g.LonDeg, html.EscapeString(g.Sentence),
			g.Stats.PassedChecksum, g.Stats.FailedChecksum, g.Stats.SentencesWithFix, html.EscapeString(g.LastError),
		)
		_, _ = fmt.Fprintf(w, "</body></html>")
	}))

	return mux
}

func Serve(ctx context.Context, listenAddr string, status *Status, opts Options) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, opts),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
