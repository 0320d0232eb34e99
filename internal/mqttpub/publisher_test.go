package mqttpub

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"navic-ng/internal/gps"
)

type fakeToken struct {
	err     error
	blocked bool
}

func (t *fakeToken) Wait() bool                     { return !t.blocked }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.blocked }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.blocked {
		close(ch)
	}
	return ch
}

type publishCall struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	calls        []publishCall
	token        *fakeToken
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.calls = append(c.calls, publishCall{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	if c.token == nil {
		return &fakeToken{}
	}
	return c.token
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestPublishFix_PublishesJSON(t *testing.T) {
	fc := &fakeClient{}
	p := newPublisher(Config{Topic: "navic/fix", QoS: 1, Retain: true}, fc)

	hdop := 0.9
	if err := p.PublishFix(gps.Snapshot{Valid: true, LatDeg: 12.5, HDOP: &hdop}); err != nil {
		t.Fatalf("PublishFix() error: %v", err)
	}
	if len(fc.calls) != 1 {
		t.Fatalf("publishes=%d want 1", len(fc.calls))
	}
	call := fc.calls[0]
	if call.topic != "navic/fix" || call.qos != 1 || !call.retained {
		t.Fatalf("call=%+v", call)
	}
	var got gps.Snapshot
	if err := json.Unmarshal(call.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if !got.Valid || got.LatDeg != 12.5 || got.HDOP == nil || *got.HDOP != 0.9 {
		t.Fatalf("decoded=%+v", got)
	}
}

func TestPublishFix_TokenError(t *testing.T) {
	tokenErr := errors.New("not connected")
	fc := &fakeClient{token: &fakeToken{err: tokenErr}}
	p := newPublisher(Config{Topic: "navic/fix"}, fc)

	if err := p.PublishFix(gps.Snapshot{}); !errors.Is(err, tokenErr) {
		t.Fatalf("err=%v want wrapped %v", err, tokenErr)
	}
}

func TestPublishFix_Timeout(t *testing.T) {
	fc := &fakeClient{token: &fakeToken{blocked: true}}
	p := newPublisher(Config{Topic: "navic/fix", Timeout: time.Millisecond}, fc)

	if err := p.PublishFix(gps.Snapshot{}); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestClose_Disconnects(t *testing.T) {
	fc := &fakeClient{}
	p := newPublisher(Config{Topic: "navic/fix"}, fc)
	p.Close()
	if !fc.disconnected {
		t.Fatalf("expected Disconnect")
	}

	var nilPub *Publisher
	nilPub.Close()
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Topic: "x"}); err == nil {
		t.Fatalf("expected error without broker")
	}
	if _, err := New(Config{Broker: "tcp://127.0.0.1:1883"}); err == nil {
		t.Fatalf("expected error without topic")
	}
}
