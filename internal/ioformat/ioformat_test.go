package ioformat

import (
	"bytes"
	"testing"
)

func TestDecodeYAMLScalarsAndSequences(t *testing.T) {
	in := bytes.NewBufferString("position: [1.0, 2.0, 3.0]\ncount: 4\nname: hello\n")
	vm, err := Decode(YAML, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos, ok := vm["position"]
	if !ok || len(pos.Sequence) != 3 {
		t.Fatalf("expected a 3-element sequence for position, got %+v", pos)
	}
	if vm["count"].Int == nil || *vm["count"].Int != 4 {
		t.Fatalf("expected count to decode as int 4, got %+v", vm["count"])
	}
	if vm["name"].Str == nil || *vm["name"].Str != "hello" {
		t.Fatalf("expected name to decode as string hello, got %+v", vm["name"])
	}
}

func TestDoubledAtSignUnescapes(t *testing.T) {
	in := bytes.NewBufferString("\"@@weird\": 1\n")
	vm, err := Decode(YAML, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := vm["@weird"]; !ok {
		t.Fatalf("expected doubled @@ to normalize to a single @, got keys %v", vm)
	}
}

func TestRoundTripYAMLPrimitive(t *testing.T) {
	f := 3.5
	vm := ValueMap{"scale": Literal{Float: &f}}
	var buf bytes.Buffer
	if err := Encode(YAML, &buf, vm); err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	got, err := Decode(YAML, &buf)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if got["scale"].Float == nil || *got["scale"].Float != f {
		t.Fatalf("expected round-tripped float %v, got %+v", f, got["scale"])
	}
}

func TestRoundTripJSONSequence(t *testing.T) {
	one, two := int64(1), int64(2)
	vm := ValueMap{"indices": Literal{Sequence: []Literal{{Int: &one}, {Int: &two}}}}
	var buf bytes.Buffer
	if err := Encode(JSON, &buf, vm); err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	got, err := Decode(JSON, &buf)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if len(got["indices"].Sequence) != 2 {
		t.Fatalf("expected 2-element sequence round-trip, got %+v", got["indices"])
	}
}

func TestTemplateWithoutDefaultsZeroesScalars(t *testing.T) {
	zero := 0.0
	def := 9.0
	vars := []InterfaceVar{{Name: "speed", Default: Literal{Float: &def}}}
	var buf bytes.Buffer
	if err := Template(YAML, &buf, vars, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Decode(YAML, &buf)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if got["speed"].Float == nil || *got["speed"].Float != zero {
		t.Fatalf("expected zeroed stub value, got %+v", got["speed"])
	}
}

func TestParseNumberDistinguishesIntFromFloat(t *testing.T) {
	lit, err := ParseNumber("42")
	if err != nil || lit.Int == nil {
		t.Fatalf("expected 42 to parse as int, got %+v, err=%v", lit, err)
	}
	lit, err = ParseNumber("3.14")
	if err != nil || lit.Float == nil {
		t.Fatalf("expected 3.14 to parse as float, got %+v, err=%v", lit, err)
	}
}
