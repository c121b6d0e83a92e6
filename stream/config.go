package stream

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v2"

	"github.com/matt-g-everett/ledtween/transition"
)

const (
	defaultFrameRate = 30
	defaultPixels    = 500
)

// ErrInvalidConfig is returned for a configuration that cannot drive a Streamer.
var ErrInvalidConfig = errors.New("stream: invalid config")

// Config is the YAML configuration of the streamer.
type Config struct {
	Mqtt struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Topics   struct {
			Stream  string `yaml:"stream"`
			Targets string `yaml:"targets"`
			State   string `yaml:"state"`
		} `yaml:"topics"`
	} `yaml:"mqtt"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	FrameRate int             `yaml:"frameRate"`
	Pixels    int             `yaml:"pixels"`
	Fixtures  []FixtureConfig `yaml:"fixtures"`
}

// FixtureConfig places one fixture on the strip.
type FixtureConfig struct {
	Name       string                    `yaml:"name"`
	Kind       string                    `yaml:"kind"`
	Start      int                       `yaml:"start"`
	Length     int                       `yaml:"length"`
	Gradient   GradientTable             `yaml:"gradient"`
	Properties map[string]PropertyConfig `yaml:"properties"`
}

// PropertyConfig overrides the initial value and transition of a fixture property.
type PropertyConfig struct {
	Initial    interface{}        `yaml:"initial"`
	Transition *transition.Config `yaml:"transition"`
}

// ReadConfig decodes a YAML config and fills in defaults.
func ReadConfig(r io.Reader) (Config, error) {
	var c Config
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&c); err != nil {
		return c, fmt.Errorf("stream: reading config: %w", err)
	}

	if c.FrameRate == 0 {
		c.FrameRate = defaultFrameRate
	}
	if c.Pixels == 0 {
		c.Pixels = defaultPixels
	}
	for i := range c.Fixtures {
		if c.Fixtures[i].Length == 0 {
			c.Fixtures[i].Length = c.Pixels - c.Fixtures[i].Start
		}
	}
	return c, c.Validate()
}

// Validate checks the parts of the config that do not depend on a fixture kind.
func (c Config) Validate() error {
	if c.FrameRate <= 0 {
		return fmt.Errorf("%w: frameRate %d", ErrInvalidConfig, c.FrameRate)
	}
	if c.Pixels <= 0 || c.Pixels > maxPixels {
		return fmt.Errorf("%w: pixels %d", ErrInvalidConfig, c.Pixels)
	}
	seen := make(map[string]bool, len(c.Fixtures))
	for _, f := range c.Fixtures {
		if f.Name == "" {
			return fmt.Errorf("%w: fixture without a name", ErrInvalidConfig)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate fixture %q", ErrInvalidConfig, f.Name)
		}
		seen[f.Name] = true
		if f.Start < 0 || f.Length <= 0 || f.Start+f.Length > c.Pixels {
			return fmt.Errorf("%w: fixture %q covers [%d, %d) outside %d pixels",
				ErrInvalidConfig, f.Name, f.Start, f.Start+f.Length, c.Pixels)
		}
	}
	return nil
}
