// Package ioformat is the narrow YAML/JSON boundary the interpreter core
// needs to read input bindings and write output bindings: Decode, Encode,
// and Template, and nothing more — no general-purpose YAML/JSON toolkit.
//
// Grounded in SPEC_FULL §6.2: YAML via gopkg.in/yaml.v3, JSON via
// github.com/goccy/go-json (both observed as dependencies across the
// example pack), chosen over encoding/json because the pack consistently
// reaches for a named library rather than ad hoc stdlib use.
package ioformat

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format selects which serialization the reader/writer uses.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("ioformat: unrecognised format %q", s)
	}
}

// Literal is a format-agnostic decoded value tree: a scalar (bool, int64,
// float64, string), a Sequence, or a Mapping. The core's binder converts a
// Literal into a typed value.Value once it knows the target interface
// variable's TypeID — ioformat itself carries no type information.
type Literal struct {
	Bool     *bool
	Int      *int64
	Float    *float64
	Str      *string
	Sequence []Literal
	Mapping  map[string]Literal
}

func (l Literal) IsScalar() bool {
	return l.Bool != nil || l.Int != nil || l.Float != nil || l.Str != nil
}

// ValueMap is the decoded top-level mapping from a bound variable's name
// (or synthetic @locationN / @bindingN / @setM bindingN form) to its value.
type ValueMap map[string]Literal

// Decode parses r in the given format into a ValueMap.
func Decode(format Format, r io.Reader) (ValueMap, error) {
	raw := map[string]any{}
	switch format {
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
			if err == io.EOF {
				return ValueMap{}, nil
			}
			return nil, fmt.Errorf("ioformat: yaml decode: %w", err)
		}
	case JSON:
		dec := gojson.NewDecoder(r)
		if err := dec.Decode(&raw); err != nil {
			if err == io.EOF {
				return ValueMap{}, nil
			}
			return nil, fmt.Errorf("ioformat: json decode: %w", err)
		}
	default:
		return nil, fmt.Errorf("ioformat: unsupported format %q", format)
	}

	out := make(ValueMap, len(raw))
	for k, v := range raw {
		out[normalizeKey(k)] = toLiteral(v)
	}
	return out, nil
}

// normalizeKey un-doubles a leading "@@" back to a literal "@" per spec
// §6.2's "to refer to an actual name starting with @, double it" rule.
func normalizeKey(k string) string {
	if strings.HasPrefix(k, "@@") {
		return k[1:]
	}
	return k
}

func toLiteral(v any) Literal {
	switch val := v.(type) {
	case nil:
		return Literal{}
	case bool:
		b := val
		return Literal{Bool: &b}
	case int:
		i := int64(val)
		return Literal{Int: &i}
	case int64:
		i := val
		return Literal{Int: &i}
	case uint64:
		i := int64(val)
		return Literal{Int: &i}
	case float64:
		f := val
		return Literal{Float: &f}
	case string:
		s := val
		return Literal{Str: &s}
	case []any:
		seq := make([]Literal, len(val))
		for i, e := range val {
			seq[i] = toLiteral(e)
		}
		return Literal{Sequence: seq}
	case map[string]any:
		m := make(map[string]Literal, len(val))
		for k, e := range val {
			m[k] = toLiteral(e)
		}
		return Literal{Mapping: m}
	case map[any]any:
		m := make(map[string]Literal, len(val))
		for k, e := range val {
			m[fmt.Sprintf("%v", k)] = toLiteral(e)
		}
		return Literal{Mapping: m}
	default:
		s := fmt.Sprintf("%v", val)
		return Literal{Str: &s}
	}
}

func fromLiteral(l Literal) any {
	switch {
	case l.Bool != nil:
		return *l.Bool
	case l.Int != nil:
		return *l.Int
	case l.Float != nil:
		return *l.Float
	case l.Str != nil:
		return *l.Str
	case l.Sequence != nil:
		seq := make([]any, len(l.Sequence))
		for i, e := range l.Sequence {
			seq[i] = fromLiteral(e)
		}
		return seq
	case l.Mapping != nil:
		m := make(map[string]any, len(l.Mapping))
		for k, e := range l.Mapping {
			m[k] = fromLiteral(e)
		}
		return m
	default:
		return nil
	}
}

// Encode writes vm to w in the given format, sorting keys for determinism
// (needed by --check's byte-for-byte comparison and by the round-trip
// testable property).
func Encode(format Format, w io.Writer, vm ValueMap) error {
	raw := make(map[string]any, len(vm))
	for k, v := range vm {
		raw[k] = fromLiteral(v)
	}
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(orderedMap(raw))
	case JSON:
		var buf bytes.Buffer
		if err := gojson.NewEncoder(&buf).Encode(raw); err != nil {
			return fmt.Errorf("ioformat: json encode: %w", err)
		}
		_, err := w.Write(buf.Bytes())
		return err
	default:
		return fmt.Errorf("ioformat: unsupported format %q", format)
	}
}

func orderedMap(raw map[string]any) yaml.Node {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	node := yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: k}
		valNode := &yaml.Node{}
		_ = valNode.Encode(raw[k])
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node
}

// InterfaceVar names one interface variable that needs a template entry.
type InterfaceVar struct {
	Name    string
	SynName string
	Default Literal
}

// Template writes a stub input file covering every interface variable. If
// useDefaults is true each variable is written with its Default; otherwise
// every variable gets a zero placeholder of its Default's shape
// (zeroLiteral). See spec §6.2/§7's "template generation proceeds even when
// some interface variables are missing".
func Template(format Format, w io.Writer, vars []InterfaceVar, useDefaults bool) error {
	vm := make(ValueMap, len(vars))
	for _, v := range vars {
		key := v.Name
		if key == "" {
			key = v.SynName
		}
		if useDefaults {
			vm[key] = v.Default
		} else {
			vm[key] = zeroLiteral(v.Default)
		}
	}
	return Encode(format, w, vm)
}

func zeroLiteral(shape Literal) Literal {
	switch {
	case shape.Bool != nil:
		b := false
		return Literal{Bool: &b}
	case shape.Int != nil:
		i := int64(0)
		return Literal{Int: &i}
	case shape.Float != nil:
		f := 0.0
		return Literal{Float: &f}
	case shape.Str != nil:
		s := ""
		return Literal{Str: &s}
	case shape.Sequence != nil:
		seq := make([]Literal, len(shape.Sequence))
		for i, e := range shape.Sequence {
			seq[i] = zeroLiteral(e)
		}
		return Literal{Sequence: seq}
	default:
		f := 0.0
		return Literal{Float: &f}
	}
}

// ParseNumber parses a decimal literal the same way template-generated
// YAML/JSON numbers round-trip, used by --set KEY=VAL parsing.
func ParseNumber(s string) (Literal, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Literal{Int: &i}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Literal{}, fmt.Errorf("ioformat: %q is not a number: %w", s, err)
	}
	return Literal{Float: &f}, nil
}
