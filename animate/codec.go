package animate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrUnsupportedValue is returned when a codec cannot decompose a value.
var ErrUnsupportedValue = errors.New("animate: unsupported value")

// A Codec maps a property value to independently animated numeric channels
// and back. Decode(Encode(v)) must be equivalent to v, and values of the same
// shape must always produce the same channel names.
type Codec interface {
	Encode(v interface{}) (map[string]float64, error)
	Decode(channels map[string]float64) (interface{}, error)
}

const scalarChannel = "value"

type scalarCodec struct{}

// Scalar animates a single number on one channel.
var Scalar Codec = scalarCodec{}

func (scalarCodec) Encode(v interface{}) (map[string]float64, error) {
	f, err := toFloat(v)
	if err != nil {
		return nil, err
	}
	return map[string]float64{scalarChannel: f}, nil
}

func (scalarCodec) Decode(channels map[string]float64) (interface{}, error) {
	f, ok := channels[scalarChannel]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q channel", ErrUnsupportedValue, scalarChannel)
	}
	return f, nil
}

func toFloat(v interface{}) (float64, error) {
	f, err := anyFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not finite", ErrUnsupportedValue, f)
	}
	return f, nil
}

func anyFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrUnsupportedValue, n)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrUnsupportedValue, n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %T is not a number", ErrUnsupportedValue, v)
}

// Point is a 2D position.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

type pointsCodec struct{}

// Points animates a []Point as channels "0.x", "0.y", "1.x", ...
var Points Codec = pointsCodec{}

func (pointsCodec) Encode(v interface{}) (map[string]float64, error) {
	points, err := toPoints(v)
	if err != nil {
		return nil, err
	}
	channels := make(map[string]float64, 2*len(points))
	for i, p := range points {
		channels[strconv.Itoa(i)+".x"] = p.X
		channels[strconv.Itoa(i)+".y"] = p.Y
	}
	return channels, nil
}

func (pointsCodec) Decode(channels map[string]float64) (interface{}, error) {
	points := make([]Point, len(channels)/2)
	for key, f := range channels {
		idx, axis, ok := strings.Cut(key, ".")
		i, err := strconv.Atoi(idx)
		if !ok || err != nil || i < 0 || i >= len(points) {
			return nil, fmt.Errorf("%w: unexpected channel %q", ErrUnsupportedValue, key)
		}
		switch axis {
		case "x":
			points[i].X = f
		case "y":
			points[i].Y = f
		default:
			return nil, fmt.Errorf("%w: unexpected channel %q", ErrUnsupportedValue, key)
		}
	}
	return points, nil
}

func toPoints(v interface{}) ([]Point, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case []Point:
		for i, pt := range p {
			if _, err := toPoint(pt); err != nil {
				return nil, fmt.Errorf("point %d: %w", i, err)
			}
		}
		return p, nil
	case []interface{}:
		// As decoded from JSON or YAML.
		points := make([]Point, len(p))
		for i, item := range p {
			pt, err := toPoint(item)
			if err != nil {
				return nil, fmt.Errorf("point %d: %w", i, err)
			}
			points[i] = pt
		}
		return points, nil
	}
	return nil, fmt.Errorf("%w: %T is not a list of points", ErrUnsupportedValue, v)
}

func toPoint(v interface{}) (Point, error) {
	var get func(string) (interface{}, bool)
	switch m := v.(type) {
	case Point:
		for _, f := range []float64{m.X, m.Y} {
			if _, err := toFloat(f); err != nil {
				return Point{}, err
			}
		}
		return m, nil
	case map[string]interface{}:
		get = func(k string) (interface{}, bool) { x, ok := m[k]; return x, ok }
	case map[interface{}]interface{}:
		get = func(k string) (interface{}, bool) {
			x, ok := m[k]
			if !ok && k == "y" {
				// YAML 1.1 reads a bare y key as true.
				x, ok = m[true]
			}
			return x, ok
		}
	default:
		return Point{}, fmt.Errorf("%w: %T is not a point", ErrUnsupportedValue, v)
	}

	var p Point
	for _, axis := range []struct {
		name string
		dst  *float64
	}{{"x", &p.X}, {"y", &p.Y}} {
		raw, ok := get(axis.name)
		if !ok {
			return Point{}, fmt.Errorf("%w: point without %q", ErrUnsupportedValue, axis.name)
		}
		f, err := toFloat(raw)
		if err != nil {
			return Point{}, err
		}
		*axis.dst = f
	}
	return p, nil
}

// sortedKeys returns channel names in a stable order.
func sortedKeys(channels map[string]float64) []string {
	keys := make([]string, 0, len(channels))
	for k := range channels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
