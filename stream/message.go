package stream

import (
	"github.com/lucasb-eyer/go-colorful"
)

// TargetMessage retargets some properties of one fixture.
//
//	{"fixture": "tree", "props": {"colour": "#ff0000", "brightness": 0.5}}
type TargetMessage struct {
	Fixture string                 `json:"fixture"`
	Props   map[string]interface{} `json:"props"`
}

// StateMessage is the current value of every fixture property, keyed by
// fixture name then property name. Colours are hex strings.
type StateMessage map[string]map[string]interface{}

func stateValue(v interface{}) interface{} {
	if c, ok := v.(colorful.Color); ok {
		return c.Clamped().Hex()
	}
	return v
}
