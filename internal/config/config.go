package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	GPS    GPSConfig    `yaml:"gps"`
	Record RecordConfig `yaml:"record"`
	UDP    UDPConfig    `yaml:"udp"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Redis  RedisConfig  `yaml:"redis"`
	Web    WebConfig    `yaml:"web"`
}

type GPSConfig struct {
	Enable bool `yaml:"enable"`

	// Source is one of serial, gpsd, tcp, replay.
	Source string `yaml:"source"`

	Device         string        `yaml:"device"`
	Baud           int           `yaml:"baud"`
	GPSDAddr       string        `yaml:"gpsd_addr"`
	TCPAddr        string        `yaml:"tcp_addr"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	StaleAfter     time.Duration `yaml:"stale_after"`

	Sentences    SentencesConfig     `yaml:"sentences"`
	CustomFields []CustomFieldConfig `yaml:"custom_fields"`
	Replay       ReplayConfig        `yaml:"replay"`
}

type SentencesConfig struct {
	RMC string `yaml:"rmc"`
	GGA string `yaml:"gga"`
}

type CustomFieldConfig struct {
	Label    string `yaml:"label"`
	Sentence string `yaml:"sentence"`
	Index    int    `yaml:"index"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
	// MinInterval drops snapshots that arrive sooner than this after the last
	// datagram. Zero sends every snapshot.
	MinInterval time.Duration `yaml:"min_interval"`
}

type MQTTConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      int    `yaml:"qos"`
	Retain   bool   `yaml:"retain"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RedisConfig struct {
	Enable   bool          `yaml:"enable"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Key      string        `yaml:"key"`
	TTL      time.Duration `yaml:"ttl"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			return Config{}, fmt.Errorf("config contains unknown fields: %s", strings.Join(stripLinePrefixes(te.Errors), "; "))
		}
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func stripLinePrefixes(msgs []string) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if strings.HasPrefix(m, "line ") {
			if i := strings.Index(m, ": "); i >= 0 {
				m = m[i+2:]
			}
		}
		out = append(out, m)
	}
	return out
}

// DefaultAndValidate fills in defaults and rejects inconsistent settings.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	g := &cfg.GPS
	g.Source = strings.ToLower(strings.TrimSpace(g.Source))
	if g.Source == "" || g.Source == "nmea" {
		g.Source = "serial"
	}
	if g.Baud == 0 {
		g.Baud = 9600
	}
	if g.Baud < 0 {
		return fmt.Errorf("gps.baud must be > 0")
	}
	if g.ReconnectDelay <= 0 {
		g.ReconnectDelay = 1 * time.Second
	}
	if g.StaleAfter == 0 {
		g.StaleAfter = 5 * time.Second
	}
	if g.StaleAfter < 0 {
		return fmt.Errorf("gps.stale_after must be >= 0")
	}
	g.Sentences.RMC = strings.TrimSpace(g.Sentences.RMC)
	g.Sentences.GGA = strings.TrimSpace(g.Sentences.GGA)
	if g.Sentences.RMC == "" {
		g.Sentences.RMC = "GNRMC"
	}
	if g.Sentences.GGA == "" {
		g.Sentences.GGA = "GNGGA"
	}
	if g.Sentences.RMC == g.Sentences.GGA {
		return fmt.Errorf("gps.sentences.rmc and gps.sentences.gga must differ")
	}

	switch g.Source {
	case "serial":
		// Empty device means auto-detect.
	case "gpsd":
		if strings.TrimSpace(g.GPSDAddr) == "" {
			g.GPSDAddr = "127.0.0.1:2947"
		}
	case "tcp":
		if g.Enable && strings.TrimSpace(g.TCPAddr) == "" {
			return fmt.Errorf("gps.tcp_addr is required when gps.source is 'tcp'")
		}
	case "replay":
		if g.Enable && strings.TrimSpace(g.Replay.Path) == "" {
			return fmt.Errorf("gps.replay.path is required when gps.source is 'replay'")
		}
		if g.Replay.Speed == 0 {
			g.Replay.Speed = 1
		}
		if g.Replay.Speed < 0 {
			return fmt.Errorf("gps.replay.speed must be > 0")
		}
	default:
		return fmt.Errorf("gps.source must be one of serial, gpsd, tcp, replay (got %q)", g.Source)
	}

	seen := map[string]bool{}
	for i, cf := range g.CustomFields {
		cf.Label = strings.TrimSpace(cf.Label)
		cf.Sentence = strings.TrimSpace(cf.Sentence)
		if cf.Sentence == "" {
			return fmt.Errorf("gps.custom_fields[%d].sentence is required", i)
		}
		if cf.Index <= 0 {
			return fmt.Errorf("gps.custom_fields[%d].index must be > 0", i)
		}
		if cf.Label == "" {
			cf.Label = fmt.Sprintf("%s.%d", cf.Sentence, cf.Index)
		}
		if seen[cf.Label] {
			return fmt.Errorf("gps.custom_fields[%d].label %q is duplicated", i, cf.Label)
		}
		seen[cf.Label] = true
		g.CustomFields[i] = cf
	}

	if cfg.Record.Enable {
		if strings.TrimSpace(cfg.Record.Path) == "" {
			return fmt.Errorf("record.path is required when record.enable is true")
		}
		if g.Source == "replay" {
			return fmt.Errorf("record and gps.source=replay cannot both be enabled")
		}
	}

	if cfg.UDP.Enable && strings.TrimSpace(cfg.UDP.Dest) == "" {
		return fmt.Errorf("udp.dest is required when udp.enable is true")
	}
	if cfg.UDP.MinInterval < 0 {
		return fmt.Errorf("udp.min_interval must be >= 0")
	}

	if cfg.MQTT.Enable {
		if strings.TrimSpace(cfg.MQTT.Broker) == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "navic-ng"
		}
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = "navic/fix"
		}
		if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	if cfg.Redis.Enable {
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			cfg.Redis.Addr = "127.0.0.1:6379"
		}
		if cfg.Redis.Key == "" {
			cfg.Redis.Key = "navic:fix:last"
		}
		if cfg.Redis.TTL < 0 {
			return fmt.Errorf("redis.ttl must be >= 0")
		}
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	return nil
}
