package stream

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eclipse/paho.mqtt.golang"

	"github.com/matt-g-everett/ledtween/animate"
	"github.com/matt-g-everett/ledtween/loop"
	"github.com/matt-g-everett/ledtween/transition"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

type message struct {
	topic   string
	payload []byte
}

func (m message) Duplicate() bool   { return false }
func (m message) Qos() byte         { return 1 }
func (m message) Retained() bool    { return false }
func (m message) Topic() string     { return m.topic }
func (m message) MessageID() uint16 { return 1 }
func (m message) Payload() []byte   { return m.payload }
func (m message) Ack()              {}

type fakeClient struct {
	mu        sync.Mutex
	published map[string][][]byte
	handlers  map[string]mqtt.MessageHandler
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		published: make(map[string][][]byte),
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published[topic] = append(c.published[topic], payload.([]byte))
	return doneToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = callback
	return doneToken{}
}

func (c *fakeClient) last(topic string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.published[topic]
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func (c *fakeClient) count(topic string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published[topic])
}

type stillSource struct{ c chan time.Time }

func (s *stillSource) Start() <-chan time.Time { return s.c }
func (s *stillSource) Stop()                   {}

func testConfig(tc transition.Config) Config {
	var c Config
	c.Mqtt.Topics.Stream = "leds/stream"
	c.Mqtt.Topics.Targets = "leds/targets"
	c.Mqtt.Topics.State = "leds/state"
	c.FrameRate = 30
	c.Pixels = 4
	c.Fixtures = []FixtureConfig{{
		Name:   "tree",
		Kind:   "fill",
		Length: 4,
		Properties: map[string]PropertyConfig{
			"colour": {Initial: "#000000", Transition: &tc},
		},
	}}
	return c
}

func TestStreamerTicksAndPublishes(t *testing.T) {
	now := time.Unix(1000, 0)
	client := newFakeClient()
	s, err := NewStreamer(testConfig(transition.Config{Type: "linear", Duration: 100}), client,
		&stillSource{c: make(chan time.Time)}, loop.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewStreamer() error = %v", err)
	}

	if err := s.apply(TargetMessage{Fixture: "tree", Props: map[string]interface{}{"colour": "#ff0000"}}); err != nil {
		t.Fatalf("apply() error = %v", err)
	}

	now = now.Add(50 * time.Millisecond)
	s.sched.Tick(now)
	frame := client.last("leds/stream")
	if len(frame) != 2+4*3 {
		t.Fatalf("frame = %v, want 4 pixels", frame)
	}
	if frame[2] == 0 || frame[2] == 255 {
		t.Fatalf("red at the midpoint = %d, want part way", frame[2])
	}

	now = now.Add(50 * time.Millisecond)
	s.sched.Tick(now)
	frame = client.last("leds/stream")
	if frame[2] != 255 || frame[3] != 0 || frame[4] != 0 {
		t.Fatalf("final pixel = %v, want 255 0 0", frame[2:5])
	}
	if s.sched.Len() != 0 {
		t.Fatalf("finished fixture still scheduled")
	}

	var state StateMessage
	if err := json.Unmarshal(client.last("leds/state"), &state); err != nil {
		t.Fatalf("state Unmarshal() error = %v", err)
	}
	if state["tree"]["colour"] != "#ff0000" || state["tree"]["brightness"] != 1.0 {
		t.Fatalf("state = %v", state)
	}

	// Nothing changes on an idle tick.
	frames := client.count("leds/stream")
	s.sched.Tick(now.Add(time.Second))
	if client.count("leds/stream") != frames {
		t.Fatalf("idle tick published a frame")
	}
}

func TestStreamerUnknownFixture(t *testing.T) {
	s, err := NewStreamer(testConfig(DefaultTransition), newFakeClient(), &stillSource{})
	if err != nil {
		t.Fatalf("NewStreamer() error = %v", err)
	}
	if err := s.apply(TargetMessage{Fixture: "house"}); !errors.Is(err, ErrUnknownFixture) {
		t.Fatalf("apply() error = %v, want ErrUnknownFixture", err)
	}
}

func TestStreamerRunAppliesMqttTargets(t *testing.T) {
	client := newFakeClient()
	s, err := NewStreamer(testConfig(transition.Config{Type: "easeInOutCubic", Duration: 30}), client,
		loop.NewTickerSource(time.Millisecond))
	if err != nil {
		t.Fatalf("NewStreamer() error = %v", err)
	}
	s.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	handler := client.handlers["leds/targets"]
	if handler == nil {
		t.Fatalf("no subscription to the targets topic")
	}
	handler(nil, message{topic: "leds/targets", payload: []byte("not json")})
	handler(nil, message{topic: "leds/targets", payload: []byte(`{"fixture": "tree", "props": {"colour": "#0000ff"}}`)})

	deadline := time.Now().Add(2 * time.Second)
	for {
		state, err := s.State(ctx)
		if err != nil {
			t.Fatalf("State() error = %v", err)
		}
		if state["tree"]["colour"] == "#0000ff" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("state = %v after 2s, want blue", state)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if frame := client.last("leds/stream"); frame[4] != 255 {
		t.Fatalf("last frame = %v, want blue", frame)
	}
}

func TestNewStreamerRejectsBadFixtures(t *testing.T) {
	bad := transition.Config{Type: "spring", Tension: -1, Friction: 1}
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"unknown kind", func(c *Config) { c.Fixtures[0].Kind = "twinkle" }},
		{"unknown property", func(c *Config) {
			c.Fixtures[0].Properties["sparkle"] = PropertyConfig{Initial: 1.0}
		}},
		{"bad transition", func(c *Config) {
			c.Fixtures[0].Properties["brightness"] = PropertyConfig{Transition: &bad}
		}},
		{"bad initial value", func(c *Config) {
			c.Fixtures[0].Properties["brightness"] = PropertyConfig{Initial: "bright"}
		}},
		{"overflowing segment", func(c *Config) { c.Fixtures[0].Start = 2 }},
		{"duplicate fixture", func(c *Config) { c.Fixtures = append(c.Fixtures, c.Fixtures[0]) }},
	}
	for _, tc := range tests {
		c := testConfig(DefaultTransition)
		tc.modify(&c)
		if _, err := NewStreamer(c, newFakeClient(), &stillSource{}); err == nil {
			t.Errorf("%s: NewStreamer() succeeded", tc.name)
		}
	}
}

func TestReadConfig(t *testing.T) {
	c, err := ReadConfig(strings.NewReader(`
mqtt:
  url: tcp://localhost:1883
  topics:
    stream: home/xmastree/stream
fixtures:
  - name: rainbow
    kind: gradient
    properties:
      offset:
        transition: {type: linear, duration: 20000}
  - name: stars
    kind: markers
    start: 100
    length: 50
    properties:
      points:
        initial: [{x: 10, y: 1}, {x: 20.5, y: 0.5}]
        transition: {type: cubicBezier, points: [0.25, 0.1, 0.25, 1], duration: 800}
`))
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	if c.FrameRate != defaultFrameRate || c.Pixels != defaultPixels {
		t.Fatalf("defaults = %d fps, %d pixels", c.FrameRate, c.Pixels)
	}
	if c.Fixtures[0].Length != defaultPixels {
		t.Fatalf("rainbow length = %d, want the whole strip", c.Fixtures[0].Length)
	}
	if got := c.Fixtures[0].Properties["offset"].Transition; got == nil || got.Type != "linear" || got.Duration != 20000 {
		t.Fatalf("offset transition = %+v", got)
	}

	s, err := NewStreamer(c, newFakeClient(), &stillSource{})
	if err != nil {
		t.Fatalf("NewStreamer() error = %v", err)
	}
	state := s.state()
	if len(state["stars"]["points"].([]animate.Point)) != 2 {
		t.Fatalf("stars = %v, want 2 points", state["stars"])
	}
}

func TestReadConfigErrors(t *testing.T) {
	for _, doc := range []string{
		"frameRate: -1",
		"fixtures: [{kind: fill}]",
		"fixtures: [{name: a, start: 490, length: 20}]",
		"pixels: [1, 2]",
	} {
		if _, err := ReadConfig(strings.NewReader(doc)); err == nil {
			t.Errorf("ReadConfig(%q) succeeded", doc)
		}
	}
}

func TestStreamerRejectsNonFiniteTargets(t *testing.T) {
	s, err := NewStreamer(testConfig(DefaultTransition), newFakeClient(), &stillSource{})
	if err != nil {
		t.Fatalf("NewStreamer() error = %v", err)
	}
	for _, bad := range []string{"NaN", "Inf"} {
		err := s.apply(TargetMessage{Fixture: "tree", Props: map[string]interface{}{"colour": "#ffffff", "brightness": bad}})
		if !errors.Is(err, animate.ErrUnsupportedValue) {
			t.Fatalf("apply(brightness %s) error = %v, want ErrUnsupportedValue", bad, err)
		}
	}
	if s.sched.Len() != 0 {
		t.Fatalf("a rejected target scheduled the fixture")
	}
}

func TestStreamerApplyDoesNotBlock(t *testing.T) {
	s, err := NewStreamer(testConfig(DefaultTransition), newFakeClient(), &stillSource{})
	if err != nil {
		t.Fatalf("NewStreamer() error = %v", err)
	}
	m := TargetMessage{Fixture: "tree", Props: map[string]interface{}{"brightness": 0.5}}

	// Nothing drains the queue until Run starts.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	finished := make(chan error, 1)
	go func() {
		var err error
		for i := 0; i < 100 && err == nil; i++ {
			err = s.Apply(ctx, m)
		}
		finished <- err
	}()
	select {
	case err := <-finished:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Apply() on a full queue = %v, want context.DeadlineExceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Apply() blocked once the queue filled")
	}

	runCtx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(runCtx) }()
	stop()
	<-done
	if err := s.Apply(context.Background(), m); !errors.Is(err, loop.ErrStopped) {
		t.Fatalf("Apply() after Run = %v, want loop.ErrStopped", err)
	}
	if _, err := s.State(context.Background()); !errors.Is(err, loop.ErrStopped) {
		t.Fatalf("State() after Run = %v, want loop.ErrStopped", err)
	}
}

func TestStreamerRunSurvivesBadTargets(t *testing.T) {
	client := newFakeClient()
	s, err := NewStreamer(testConfig(transition.Config{Type: "linear", Duration: 10}), client,
		loop.NewTickerSource(time.Millisecond))
	if err != nil {
		t.Fatalf("NewStreamer() error = %v", err)
	}
	s.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	handler := client.handlers["leds/targets"]
	handler(nil, message{topic: "leds/targets", payload: []byte(`{"fixture": "tree", "props": {"brightness": "NaN"}}`)})
	handler(nil, message{topic: "leds/targets", payload: []byte(`{"fixture": "tree", "props": {"brightness": 0.25}}`)})

	deadline := time.Now().Add(5 * time.Second)
	for {
		state, err := s.State(ctx)
		if err != nil {
			t.Fatalf("State() error = %v", err)
		}
		if state["tree"]["brightness"] == 0.25 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("state = %v after 5s, want brightness 0.25", state)
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}
