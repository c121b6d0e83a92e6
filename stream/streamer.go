package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/eclipse/paho.mqtt.golang"

	"github.com/matt-g-everett/ledtween/animate"
	"github.com/matt-g-everett/ledtween/loop"
	"github.com/matt-g-everett/ledtween/transition"
)

// ErrUnknownFixture is returned when a target names a fixture that is not configured.
var ErrUnknownFixture = errors.New("stream: unknown fixture")

// targetTimeout bounds how long an MQTT target waits for room on the Run goroutine.
const targetTimeout = time.Second

// DefaultTransition is used for fixture properties configured without one.
var DefaultTransition = transition.Config{Type: "spring", Tension: 170, Friction: 26}

// Client is the part of mqtt.Client the Streamer uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

type fixtureState struct {
	name    string
	fixture Fixture
	store   *animate.Store
	props   map[string]interface{}
}

// Streamer animates a set of fixtures and streams the resulting RGB frames to
// an ledrx device. Everything apart from Subscribe, Apply and State runs on
// the goroutine executing Run.
type Streamer struct {
	config   Config
	client   Client
	sched    *loop.Scheduler
	frame    *Frame
	fixtures []*fixtureState
	byName   map[string]*fixtureState
	dirty    bool
}

// NewStreamer creates a Streamer whose animations are ticked by source.
func NewStreamer(config Config, client Client, source loop.Source, opts ...loop.Option) (*Streamer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := new(Streamer)
	s.config = config
	s.client = client
	s.sched = loop.New(source, opts...)
	s.sched.AfterTick(s.afterTick)
	s.frame = NewFrame(config.Pixels)
	s.byName = make(map[string]*fixtureState, len(config.Fixtures))

	for _, fc := range config.Fixtures {
		fx, err := NewFixture(fc)
		if err != nil {
			return nil, err
		}
		props, err := fixtureProperties(fc, fx.Properties())
		if err != nil {
			return nil, err
		}

		fs := &fixtureState{name: fc.Name, fixture: fx}
		fs.store, err = animate.NewStore(loop.NewKey(), s.sched, props, func(p map[string]interface{}) {
			fs.props = p
			s.dirty = true
		})
		if err != nil {
			return nil, fmt.Errorf("stream: fixture %q: %w", fc.Name, err)
		}
		fs.props = fs.store.Props()

		s.fixtures = append(s.fixtures, fs)
		s.byName[fc.Name] = fs
	}

	return s, nil
}

// fixtureProperties applies the configured overrides to a fixture's defaults.
func fixtureProperties(fc FixtureConfig, defaults []animate.Property) ([]animate.Property, error) {
	known := make(map[string]bool, len(defaults))
	for _, p := range defaults {
		known[p.Name] = true
	}
	for name := range fc.Properties {
		if !known[name] {
			return nil, fmt.Errorf("%w: fixture %q has no property %q", ErrInvalidConfig, fc.Name, name)
		}
	}

	props := make([]animate.Property, len(defaults))
	for i, p := range defaults {
		tc := DefaultTransition
		if pc, ok := fc.Properties[p.Name]; ok {
			if pc.Initial != nil {
				p.Initial = pc.Initial
			}
			if pc.Transition != nil {
				tc = *pc.Transition
			}
		}
		b, err := transition.NewBuilderFromConfig(tc)
		if err != nil {
			return nil, fmt.Errorf("stream: fixture %q property %q: %w", fc.Name, p.Name, err)
		}
		p.Transition = b
		props[i] = p
	}
	return props, nil
}

func (s *Streamer) afterTick(_ time.Time) {
	if !s.dirty {
		return
	}
	s.dirty = false
	s.SendFrame()
	s.SendState()
}

// Render draws every fixture, in configuration order, into the frame.
func (s *Streamer) Render() *Frame {
	s.frame.Clear()
	for _, fs := range s.fixtures {
		fs.fixture.Render(fs.props, s.frame)
	}
	return s.frame
}

// SendFrame sends a frame as binary over MQTT to an ledrx device.
func (s *Streamer) SendFrame() {
	b, _ := s.Render().MarshalBinary()
	s.publish(s.config.Mqtt.Topics.Stream, 0, false, b)
}

// SendState publishes the current property values as a retained JSON message.
func (s *Streamer) SendState() {
	b, err := json.Marshal(s.state())
	if err != nil {
		log.Printf("stream: encoding state: %v", err)
		return
	}
	s.publish(s.config.Mqtt.Topics.State, 1, true, b)
}

func (s *Streamer) state() StateMessage {
	state := make(StateMessage, len(s.fixtures))
	for _, fs := range s.fixtures {
		props := make(map[string]interface{}, len(fs.props))
		for k, v := range fs.props {
			props[k] = stateValue(v)
		}
		state[fs.name] = props
	}
	return state
}

func (s *Streamer) publish(topic string, qos byte, retained bool, payload []byte) {
	if topic == "" {
		return
	}
	if token := s.client.Publish(topic, qos, retained, payload); token.Wait() && token.Error() != nil {
		log.Printf("stream: publishing to %s: %v", topic, token.Error())
	}
}

// Subscribe listens for TargetMessages on the targets topic. Call it again
// after reconnecting.
func (s *Streamer) Subscribe() {
	topic := s.config.Mqtt.Topics.Targets
	if topic == "" {
		return
	}
	if token := s.client.Subscribe(topic, 1, s.handleTarget); token.Wait() && token.Error() != nil {
		log.Printf("stream: subscribing to %s: %v", topic, token.Error())
		return
	}
	log.Printf("Subscribed to %s", topic)
}

func (s *Streamer) handleTarget(_ mqtt.Client, msg mqtt.Message) {
	var m TargetMessage
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		log.Printf("stream: bad target message on %s: %v", msg.Topic(), err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), targetTimeout)
	defer cancel()
	if err := s.Apply(ctx, m); err != nil {
		log.Printf("stream: dropped target for %q: %v", m.Fixture, err)
	}
}

// Apply queues m to be applied on the Run goroutine. It is safe to call from
// any goroutine, and fails if the queue stays full until ctx is done or Run
// has returned. Errors from the target itself are logged by the Run goroutine.
func (s *Streamer) Apply(ctx context.Context, m TargetMessage) error {
	return s.sched.Post(ctx, func() {
		if err := s.apply(m); err != nil {
			log.Printf("stream: applying target: %v", err)
		}
	})
}

func (s *Streamer) apply(m TargetMessage) error {
	fs, ok := s.byName[m.Fixture]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFixture, m.Fixture)
	}
	return fs.store.SetTargetProps(m.Props)
}

// State returns the current property values from the Run goroutine. It is
// safe to call from any goroutine.
func (s *Streamer) State(ctx context.Context) (StateMessage, error) {
	reply := make(chan StateMessage, 1)
	if err := s.sched.Post(ctx, func() { reply <- s.state() }); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case state := <-reply:
		return state, nil
	}
}

// Run sends the initial frame, then animates and streams until ctx is done.
func (s *Streamer) Run(ctx context.Context) error {
	s.SendFrame()
	s.SendState()
	return s.sched.Run(ctx)
}
