package web

import (
	"net/http"
	"runtime"
	"runtime/debug"
	"time"

	"navic-ng/internal/nmea"
)

// DecoderInfo describes how the running decoder was configured.
type DecoderInfo struct {
	RMCName      string   `json:"rmc_name"`
	GGAName      string   `json:"gga_name"`
	CustomFields []string `json:"custom_fields,omitempty"`
}

type BuildInfo struct {
	ModulePath string `json:"module_path,omitempty"`
	Version    string `json:"version,omitempty"`
	Commit     string `json:"commit,omitempty"`
	Dirty      bool   `json:"dirty,omitempty"`
	BuildTime  string `json:"build_time,omitempty"`
}

type AboutResponse struct {
	Service        string      `json:"service"`
	DecoderVersion string      `json:"decoder_version"`
	Decoder        DecoderInfo `json:"decoder"`
	NowUTC         string      `json:"now_utc"`
	GoVersion      string      `json:"go_version"`
	Build          *BuildInfo  `json:"build,omitempty"`
}

func readBuildInfo() *BuildInfo {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return nil
	}
	out := &BuildInfo{ModulePath: bi.Main.Path, Version: bi.Main.Version}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.modified":
			out.Dirty = s.Value == "true"
		case "vcs.time":
			out.BuildTime = s.Value
		}
	}
	return out
}

// AboutHandler serves /api/about. Empty sentence names report the decoder
// defaults.
func AboutHandler(dec DecoderInfo) http.Handler {
	if dec.RMCName == "" {
		dec.RMCName = nmea.DefaultRMCName
	}
	if dec.GGAName == "" {
		dec.GGAName = nmea.DefaultGGAName
	}
	build := readBuildInfo()

	return getOnly(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, AboutResponse{
			Service:        "navic-ng",
			DecoderVersion: nmea.Version,
			Decoder:        dec,
			NowUTC:         time.Now().UTC().Format(time.RFC3339Nano),
			GoVersion:      runtime.Version(),
			Build:          build,
		})
	})
}
