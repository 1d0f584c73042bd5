package modules

import (
	"encoding/json"
	"sort"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Payload builds a JSON object for an upstream request body.
//
// Optional setters only insert a key when the value is present, so absent
// options are omitted rather than sent as null. Setting an existing key
// replaces its value and keeps its original position.
type Payload struct {
	keys   []string
	values map[string]jx.Raw
}

// NewPayload returns an empty object builder.
func NewPayload() *Payload {
	return &Payload{values: make(map[string]jx.Raw)}
}

func (p *Payload) put(name string, raw jx.Raw) *Payload {
	if _, exists := p.values[name]; !exists {
		p.keys = append(p.keys, name)
	}
	p.values[name] = raw
	return p
}

func encodeRaw(fn func(e *jx.Encoder)) jx.Raw {
	var e jx.Encoder
	fn(&e)
	return jx.Raw(e.Bytes())
}

// Str sets a string field.
func (p *Payload) Str(name, v string) *Payload {
	return p.put(name, encodeRaw(func(e *jx.Encoder) { e.Str(v) }))
}

// Strs sets a string array field.
func (p *Payload) Strs(name string, v []string) *Payload {
	return p.put(name, encodeRaw(func(e *jx.Encoder) {
		e.ArrStart()
		for _, s := range v {
			e.Str(s)
		}
		e.ArrEnd()
	}))
}

// OptStr sets name only when v is non-nil.
func (p *Payload) OptStr(name string, v *string) *Payload {
	if v == nil {
		return p
	}
	return p.Str(name, *v)
}

// OptBool sets name only when v is non-nil.
func (p *Payload) OptBool(name string, v *bool) *Payload {
	if v == nil {
		return p
	}
	return p.put(name, encodeRaw(func(e *jx.Encoder) { e.Bool(*v) }))
}

// OptStrs sets name only when present is true.
func (p *Payload) OptStrs(name string, v []string, present bool) *Payload {
	if !present {
		return p
	}
	return p.Strs(name, v)
}

// Any sets name to the JSON encoding of an arbitrary value.
func (p *Payload) Any(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %q", name)
	}
	p.put(name, jx.Raw(b))
	return nil
}

// Merge sets every key of m, overwriting existing keys (last write wins).
// Keys are applied in sorted order.
func (p *Payload) Merge(m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := p.Any(k, m[k]); err != nil {
			return err
		}
	}
	return nil
}

// Obj sets name to a nested object.
func (p *Payload) Obj(name string, sub *Payload) *Payload {
	return p.put(name, encodeRaw(sub.Encode))
}

// Arr sets name to an array of objects.
func (p *Payload) Arr(name string, items ...*Payload) *Payload {
	return p.put(name, encodeRaw(func(e *jx.Encoder) {
		e.ArrStart()
		for _, item := range items {
			item.Encode(e)
		}
		e.ArrEnd()
	}))
}

// Encode writes the object to e.
func (p *Payload) Encode(e *jx.Encoder) {
	e.ObjStart()
	for _, k := range p.keys {
		e.FieldStart(k)
		e.Raw(p.values[k])
	}
	e.ObjEnd()
}

// Bytes returns the encoded object.
func (p *Payload) Bytes() []byte {
	var e jx.Encoder
	p.Encode(&e)
	return e.Bytes()
}
