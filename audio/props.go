package audio

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// Engine property keys.
const (
	PropPolyphony   = "polyphony"
	PropMinVelocity = "velocity.min"
	PropLevel       = "level"
)

// Props stores engine settings that the audio callback reads without locks. All
// properties must be registered before the engine starts; after that only the
// values change.
type Props struct {
	properties map[string]*prop
}

type prop struct {
	value atomic.Value
	set   setter
	help  string
}

func NewProps() *Props {
	return &Props{properties: make(map[string]*prop)}
}

// Set validates value and stores it. The key has to be registered first.
func (p *Props) Set(key string, value interface{}) error {
	pr, ok := p.properties[key]
	if !ok {
		return fmt.Errorf("unknown property %s", key)
	}
	if err := pr.set(value, &pr.value); err != nil {
		return fmt.Errorf("set property %s: %w", key, err)
	}
	return nil
}

func (p *Props) Get(key string) (interface{}, error) {
	pr, ok := p.properties[key]
	if !ok {
		return nil, fmt.Errorf("unknown property %s", key)
	}
	return pr.value.Load(), nil
}

// Keys returns the registered keys in order.
func (p *Props) Keys() []string {
	keys := make([]string, 0, len(p.properties))
	for k := range p.properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Help returns the description a property was registered with.
func (p *Props) Help(key string) string {
	if pr, ok := p.properties[key]; ok {
		return pr.help
	}
	return ""
}

// Register adds a new property and returns the value cell hot paths read from.
func (p *Props) Register(key, help string, set setter, init interface{}) (*atomic.Value, error) {
	pr := &prop{set: set, help: help}
	p.properties[key] = pr
	return &pr.value, set(init, &pr.value)
}

func (p *Props) MustRegister(key, help string, set setter, init interface{}) *atomic.Value {
	v, err := p.Register(key, help, set, init)
	if err != nil {
		panic(err)
	}
	return v
}

type setter func(val interface{}, dest *atomic.Value) error

var (
	setPolyphony   = setInt(1, 256)
	setMinVelocity = setInt(0, 127)
	setLevel       = setFloat64(-60, 12)
)

func setFloat64(min, max float64) setter {
	return func(v interface{}, dest *atomic.Value) error {
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case int:
			f = float64(n)
		default:
			return fmt.Errorf("value is not a number: %v", v)
		}
		if f < min || f > max {
			return fmt.Errorf("property value is not in valid range %v - %v: %v", min, max, f)
		}
		dest.Store(f)
		return nil
	}
}

func setInt(min, max int) setter {
	return func(v interface{}, dest *atomic.Value) error {
		var i int
		switch n := v.(type) {
		case float64:
			if n != float64(int(n)) {
				return fmt.Errorf("value is not an integer: %v", v)
			}
			i = int(n)
		case int:
			i = n
		default:
			return fmt.Errorf("value is not an int: %v", v)
		}
		if i < min || i > max {
			return fmt.Errorf("property value is not in valid range %v - %v: %v", min, max, i)
		}
		dest.Store(i)
		return nil
	}
}
