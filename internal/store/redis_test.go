package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"navic-ng/internal/gps"
)

type fakeKV struct {
	data   map[string]string
	ttls   map[string]time.Duration
	setErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func TestRedisStore_PublishAndRead(t *testing.T) {
	kv := newFakeKV()
	s := newRedisStore(Config{TTL: time.Minute}, kv)

	sats := 9
	in := gps.Snapshot{Valid: true, LatDeg: 28.6139, LonDeg: 77.209, Satellites: &sats, Sentence: "GNGGA"}
	if err := s.PublishFix(in); err != nil {
		t.Fatalf("PublishFix() error: %v", err)
	}
	if kv.ttls["navic:fix:last"] != time.Minute {
		t.Fatalf("ttl=%s want 1m", kv.ttls["navic:fix:last"])
	}

	got, ok, err := s.LastFix(context.Background())
	if err != nil || !ok {
		t.Fatalf("LastFix() ok=%v err=%v", ok, err)
	}
	if got.LatDeg != in.LatDeg || got.LonDeg != in.LonDeg || got.Satellites == nil || *got.Satellites != 9 {
		t.Fatalf("got=%+v", got)
	}
}

func TestRedisStore_SkipsInvalidFix(t *testing.T) {
	kv := newFakeKV()
	s := newRedisStore(Config{Key: "k"}, kv)
	if err := s.PublishFix(gps.Snapshot{Valid: false}); err != nil {
		t.Fatalf("PublishFix() error: %v", err)
	}
	if _, ok := kv.data["k"]; ok {
		t.Fatalf("invalid fix should not be stored")
	}
}

func TestRedisStore_LastFixMissing(t *testing.T) {
	s := newRedisStore(Config{}, newFakeKV())
	_, ok, err := s.LastFix(context.Background())
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v want false, nil", ok, err)
	}
}

func TestRedisStore_SetError(t *testing.T) {
	setErr := errors.New("READONLY")
	kv := newFakeKV()
	kv.setErr = setErr
	s := newRedisStore(Config{}, kv)
	if err := s.PublishFix(gps.Snapshot{Valid: true}); !errors.Is(err, setErr) {
		t.Fatalf("err=%v want wrapped %v", err, setErr)
	}
}

func TestRedisStore_CorruptValue(t *testing.T) {
	kv := newFakeKV()
	kv.data["navic:fix:last"] = "{not json"
	s := newRedisStore(Config{}, kv)
	if _, _, err := s.LastFix(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNewRedis_RequiresAddr(t *testing.T) {
	if _, err := NewRedis(Config{}); err == nil {
		t.Fatalf("expected error")
	}
}
