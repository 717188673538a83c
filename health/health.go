package health

import (
	"bytes"
	"encoding/json"
)

// Health is the immutable outcome of a single indicator check: a Status
// plus a set of detail entries in insertion order.
//
// Health values are safe to share across goroutines once built. Use the
// Builder (via NewHealth) or the Up/Down/Unknown/OutOfService helpers to
// construct one.
type Health struct {
	status  Status
	keys    []string
	details map[string]any
}

// Status returns the status of this health result.
func (h Health) Status() Status {
	if h.status == "" {
		return StatusUnknown
	}
	return h.status
}

// Details returns a copy of the detail entries.
func (h Health) Details() map[string]any {
	if len(h.details) == 0 {
		return nil
	}
	out := make(map[string]any, len(h.details))
	for k, v := range h.details {
		out[k] = v
	}
	return out
}

// DetailKeys returns the detail keys in insertion order.
func (h Health) DetailKeys() []string {
	keys := make([]string, len(h.keys))
	copy(keys, h.keys)
	return keys
}

// Detail returns a single detail entry.
func (h Health) Detail(key string) (any, bool) {
	v, ok := h.details[key]
	return v, ok
}

// MarshalJSON serializes the health as {"status": ..., "details": {...}},
// preserving detail insertion order.
func (h Health) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"status":`)
	writeJSONValue(&buf, string(h.Status()))
	if len(h.keys) > 0 {
		buf.WriteString(`,"details":`)
		if err := writeOrderedObject(&buf, h.keys, h.details); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Builder accumulates a status and details and produces an immutable
// Health. The zero status is UNKNOWN.
type Builder struct {
	status  Status
	keys    []string
	details map[string]any
}

// NewHealth creates a new health builder with status UNKNOWN.
func NewHealth() *Builder {
	return &Builder{status: StatusUnknown}
}

// Status sets the status.
func (b *Builder) Status(s Status) *Builder {
	b.status = s
	return b
}

// Up sets the status to UP.
func (b *Builder) Up() *Builder { return b.Status(StatusUp) }

// Down sets the status to DOWN.
func (b *Builder) Down() *Builder { return b.Status(StatusDown) }

// OutOfService sets the status to OUT_OF_SERVICE.
func (b *Builder) OutOfService() *Builder { return b.Status(StatusOutOfService) }

// Unknown sets the status to UNKNOWN.
func (b *Builder) Unknown() *Builder { return b.Status(StatusUnknown) }

// WithDetail adds a detail entry. Re-adding an existing key overwrites the
// value but keeps the key's original position.
func (b *Builder) WithDetail(key string, value any) *Builder {
	if b.details == nil {
		b.details = make(map[string]any)
	}
	if _, exists := b.details[key]; !exists {
		b.keys = append(b.keys, key)
	}
	b.details[key] = value
	return b
}

// WithError records err under the "error" detail key. A nil err is a no-op.
func (b *Builder) WithError(err error) *Builder {
	if err == nil {
		return b
	}
	return b.WithDetail("error", err.Error())
}

// Build produces the immutable Health.
func (b *Builder) Build() Health {
	h := Health{status: b.status}
	if len(b.keys) > 0 {
		h.keys = make([]string, len(b.keys))
		copy(h.keys, b.keys)
		h.details = make(map[string]any, len(b.details))
		for k, v := range b.details {
			h.details[k] = v
		}
	}
	return h
}

// Up returns a Health with status UP and no details.
func Up() Health {
	return NewHealth().Up().Build()
}

// Down returns a Health with status DOWN, recording err as the "error"
// detail when non-nil.
func Down(err error) Health {
	return NewHealth().Down().WithError(err).Build()
}

// Unknown returns a Health with status UNKNOWN and no details.
func Unknown() Health {
	return NewHealth().Unknown().Build()
}

// OutOfService returns a Health with status OUT_OF_SERVICE and no details.
func OutOfService() Health {
	return NewHealth().OutOfService().Build()
}

// CompositeHealth is the folded result of a composite evaluation: the
// aggregate status plus one Health per indicator, in registration order.
type CompositeHealth struct {
	status     Status
	names      []string
	components map[string]Health
	flat       bool
}

// NewCompositeHealth builds a composite result. The names slice fixes the
// component order; components not named are ignored.
func NewCompositeHealth(status Status, names []string, components map[string]Health) CompositeHealth {
	c := CompositeHealth{status: status}
	if len(names) > 0 {
		c.names = make([]string, 0, len(names))
		c.components = make(map[string]Health, len(components))
		for _, name := range names {
			h, ok := components[name]
			if !ok {
				continue
			}
			c.names = append(c.names, name)
			c.components[name] = h
		}
	}
	return c
}

// Status returns the aggregate status.
func (c CompositeHealth) Status() Status {
	if c.status == "" {
		return StatusUnknown
	}
	return c.status
}

// ComponentNames returns the component names in registration order.
func (c CompositeHealth) ComponentNames() []string {
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// Component returns the health of a single named component.
func (c CompositeHealth) Component(name string) (Health, bool) {
	h, ok := c.components[name]
	return h, ok
}

// Components returns a copy of the name to Health mapping.
func (c CompositeHealth) Components() map[string]Health {
	out := make(map[string]Health, len(c.components))
	for k, v := range c.components {
		out[k] = v
	}
	return out
}

// Flatten returns a copy that serializes components as name to status only,
// dropping per-component details.
func (c CompositeHealth) Flatten() CompositeHealth {
	c.flat = true
	return c
}

// StatusOnly returns a copy stripped of all component entries. Used for
// restricted callers that may see the aggregate status and nothing else.
func (c CompositeHealth) StatusOnly() CompositeHealth {
	return CompositeHealth{status: c.status}
}

// MarshalJSON serializes the composite as
// {"status": ..., "details": {"<name>": <health>, ...}} in registration
// order. In flat mode component values are bare status strings.
func (c CompositeHealth) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"status":`)
	writeJSONValue(&buf, string(c.Status()))
	if len(c.names) > 0 {
		buf.WriteString(`,"details":{`)
		for i, name := range c.names {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONValue(&buf, name)
			buf.WriteByte(':')
			h := c.components[name]
			if c.flat {
				writeJSONValue(&buf, string(h.Status()))
				continue
			}
			data, err := h.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONValue(buf *bytes.Buffer, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		// Fall back to a quoted placeholder; detail values that cannot be
		// marshaled must not take the whole health response down.
		buf.WriteString(`"<unserializable>"`)
		return
	}
	buf.Write(data)
}

func writeOrderedObject(buf *bytes.Buffer, keys []string, values map[string]any) error {
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONValue(buf, k)
		buf.WriteByte(':')
		writeJSONValue(buf, values[k])
	}
	buf.WriteByte('}')
	return nil
}
