package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	ErrUnknownField = errors.New("domain: unknown field")
	ErrEmptyPatch   = errors.New("domain: patch body must be a JSON object")
)

// Patch is a partial update: a plain record plus the names of the fields
// that were present in the request. Fields not named must not be touched.
type Patch[T any] struct {
	Value  T
	fields map[string]struct{}
}

// NewPatch builds a patch naming fields explicitly.
func NewPatch[T any](value T, fields ...string) Patch[T] {
	p := Patch[T]{Value: value, fields: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		p.fields[f] = struct{}{}
	}
	return p
}

func (p Patch[T]) Has(field string) bool {
	_, ok := p.fields[field]
	return ok
}

func (p Patch[T]) Empty() bool {
	return len(p.fields) == 0
}

// DecodePatch reads a JSON object into a Patch. Field names are the json
// tags of T; any other key is an error.
func DecodePatch[T any](data []byte) (Patch[T], error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return Patch[T]{}, ErrEmptyPatch
	}

	known := jsonFields(reflect.TypeFor[T]())
	p := Patch[T]{fields: make(map[string]struct{}, len(raw))}
	for name := range raw {
		if _, ok := known[name]; !ok {
			return Patch[T]{}, fmt.Errorf("%w %q", ErrUnknownField, name)
		}
		p.fields[name] = struct{}{}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p.Value); err != nil {
		return Patch[T]{}, fmt.Errorf("domain: decode patch: %w", err)
	}
	return p, nil
}

func jsonFields(t reflect.Type) map[string]struct{} {
	out := make(map[string]struct{}, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		out[name] = struct{}{}
	}
	return out
}
