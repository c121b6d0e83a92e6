// Package animate tracks animatable properties. A Store owns the state of
// every property of one consumer, decomposes composite values into numeric
// channels, and advances them from a loop.Scheduler.
package animate

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/matt-g-everett/ledtween/loop"
	"github.com/matt-g-everett/ledtween/transition"
)

// ErrInvalidProperty is returned by NewStore for a malformed property definition.
var ErrInvalidProperty = errors.New("animate: invalid property")

// Property declares one animatable property of a Store.
type Property struct {
	Name       string
	Initial    interface{}
	Codec      Codec // Scalar when nil
	Transition *transition.Builder
}

// Registrar is the part of loop.Scheduler a Store needs.
type Registrar interface {
	Register(key loop.Key, advance loop.AdvanceFunc, render loop.RenderFunc)
	Unregister(key loop.Key)
	Now() time.Time
}

// ChangeFunc receives the reassembled property values after every tick.
type ChangeFunc func(props map[string]interface{})

type property struct {
	name     string
	codec    Codec
	builder  *transition.Builder
	keys     []string
	channels map[string]*Channel
}

// Store holds the state of a set of properties for one consumer key. Like the
// Scheduler it is driven from a single goroutine.
type Store struct {
	key      loop.Key
	reg      Registrar
	props    []*property
	index    map[string]*property
	onChange ChangeFunc
}

// NewStore creates a Store with every property resting at its initial value.
func NewStore(key loop.Key, reg Registrar, props []Property, onChange ChangeFunc) (*Store, error) {
	s := new(Store)
	s.key = key
	s.reg = reg
	s.onChange = onChange
	s.index = make(map[string]*property, len(props))

	for _, def := range props {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: property without a name", ErrInvalidProperty)
		}
		if _, dup := s.index[def.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate property %q", ErrInvalidProperty, def.Name)
		}
		if def.Transition == nil {
			return nil, fmt.Errorf("%w: property %q has no transition", ErrInvalidProperty, def.Name)
		}
		codec := def.Codec
		if codec == nil {
			codec = Scalar
		}

		values, err := codec.Encode(def.Initial)
		if err != nil {
			return nil, fmt.Errorf("animate: property %q: %w", def.Name, err)
		}
		p := &property{
			name:     def.Name,
			codec:    codec,
			builder:  def.Transition,
			keys:     sortedKeys(values),
			channels: make(map[string]*Channel, len(values)),
		}
		for k, v := range values {
			p.channels[k] = &Channel{Value: v}
		}
		s.props = append(s.props, p)
		s.index[def.Name] = p
	}
	return s, nil
}

// Key returns the consumer key the store registers under.
func (s *Store) Key() loop.Key { return s.key }

// IsAnimatable reports whether name is one of the store's properties.
func (s *Store) IsAnimatable(name string) bool {
	_, ok := s.index[name]
	return ok
}

// SetTargetProps retargets the named properties. Unknown names are ignored.
// If any value cannot be encoded nothing is changed. Channels that appear in a
// target but not in the current value start at their target; channels that
// disappear are dropped.
func (s *Store) SetTargetProps(targets map[string]interface{}) error {
	encoded := make(map[*property]map[string]float64, len(targets))
	for name, v := range targets {
		p, ok := s.index[name]
		if !ok {
			continue
		}
		values, err := p.codec.Encode(v)
		if err != nil {
			return fmt.Errorf("animate: property %q: %w", name, err)
		}
		encoded[p] = values
	}
	if len(encoded) == 0 {
		return nil
	}

	now := s.reg.Now()
	for _, p := range s.props {
		values, ok := encoded[p]
		if !ok {
			continue
		}
		p.retarget(values, now)
	}

	// Register even if every channel short-circuited so the change is rendered once.
	s.reg.Register(s.key, s.Advance, s.render)
	return nil
}

func (p *property) retarget(values map[string]float64, now time.Time) {
	for k := range p.channels {
		if _, ok := values[k]; !ok {
			delete(p.channels, k)
		}
	}
	for k, v := range values {
		ch, ok := p.channels[k]
		if !ok {
			p.channels[k] = &Channel{Value: v}
			continue
		}
		ch.SetTarget(p.builder, v, now)
	}
	p.keys = sortedKeys(values)
}

// Advance moves every animating channel to now and reports whether any are
// still animating. Properties are visited in declaration order and channels
// in sorted name order.
func (s *Store) Advance(now time.Time) bool {
	animating := false
	for _, p := range s.props {
		for _, k := range p.keys {
			ch := p.channels[k]
			if !ch.Animating() {
				continue
			}
			elapsed := now.Sub(ch.started)
			if elapsed < 0 {
				elapsed = 0
			}
			if ch.Advance(elapsed) {
				animating = true
			}
		}
	}
	return animating
}

func (s *Store) render() {
	if s.onChange != nil {
		s.onChange(s.Props())
	}
}

// Animating reports whether any channel is moving.
func (s *Store) Animating() bool {
	for _, p := range s.props {
		for _, ch := range p.channels {
			if ch.Animating() {
				return true
			}
		}
	}
	return false
}

// Props reassembles the current value of every property.
func (s *Store) Props() map[string]interface{} {
	out := make(map[string]interface{}, len(s.props))
	for _, p := range s.props {
		values := make(map[string]float64, len(p.channels))
		for k, ch := range p.channels {
			values[k] = ch.Value
		}
		v, err := p.codec.Decode(values)
		if err != nil {
			log.Printf("animate: decoding %q: %v", p.name, err)
			continue
		}
		out[p.name] = v
	}
	return out
}

// ChannelState is a point-in-time copy of one channel.
type ChannelState struct {
	Property  string
	Channel   string
	Value     float64
	Velocity  float64
	Target    float64
	Animating bool
}

// Snapshot copies the state of every channel in advance order.
func (s *Store) Snapshot() []ChannelState {
	var out []ChannelState
	for _, p := range s.props {
		for _, k := range p.keys {
			ch := p.channels[k]
			target, animating := ch.Target()
			if !animating {
				target = ch.Value
			}
			out = append(out, ChannelState{
				Property:  p.name,
				Channel:   k,
				Value:     ch.Value,
				Velocity:  ch.Velocity,
				Target:    target,
				Animating: animating,
			})
		}
	}
	return out
}

// Close abandons any running animation and stops the store being ticked.
func (s *Store) Close() {
	s.reg.Unregister(s.key)
}
