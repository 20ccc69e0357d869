package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"spirvm/internal/cache"
	"spirvm/internal/config"
	"spirvm/internal/debugger"
	"spirvm/internal/ioformat"
	"spirvm/internal/program"
	"spirvm/internal/trace"
	"spirvm/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "spirvrun MODULE.spv",
	Short:         "Interpret a SPIR-V shader binary",
	Long:          `spirvrun decodes a SPIR-V module, binds caller-supplied inputs to its entry point interface, and executes it.`,
	Version:       version.String(),
	Args:          cobra.ExactArgs(1),
	RunE:          runSpirv,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringP("in", "i", "", "read inputs from FILE (- for stdin)")
	flags.StringArrayP("set", "s", nil, "set one input KEY=VAL (repeatable)")
	flags.StringP("out", "o", "-", "write outputs to FILE (- for stdout)")
	flags.StringP("check", "c", "", "compare outputs to FILE; exit 0 if equal")
	flags.StringP("format", "f", "", "default format (yaml|json)")
	flags.StringP("template", "t", "", "emit an input template to FILE")
	flags.BoolP("default", "g", false, "use default stub values in template")
	flags.IntP("indent", "n", 0, "output indent width")
	flags.BoolP("print", "p", false, "verbose execution trace")
	flags.BoolP("debug", "d", false, "interactive debugger (implies -p)")
	flags.String("config", "", "path to a .spirvrc.toml overriding built-in defaults")
	flags.String("entry", "", "entry point name (required when the module declares more than one)")
}

func runSpirv(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	modulePath := args[0]
	raw, err := os.ReadFile(modulePath)
	if err != nil {
		return fail(exitBadFile, fmt.Errorf("reading module: %w", err))
	}

	formatFlag, _ := flags.GetString("format")
	format, err := resolveFormat(formatFlag, modulePath)
	if err != nil {
		return fail(exitBadArgs, err)
	}

	printFlag, _ := flags.GetBool("print")
	debugFlag, _ := flags.GetBool("debug")
	tracer, snapshot := buildTracer(printFlag || debugFlag, debugFlag)
	defer tracer.Close()

	p, err := program.Load(raw, cache.New(""), tracer)
	if err != nil {
		return fail(exitBadParse, err)
	}

	entryName, _ := flags.GetString("entry")
	ep, err := p.SelectEntryPoint(entryName)
	if err != nil {
		return fail(exitBadProgram, err)
	}

	ifaces, err := p.Interface()
	if err != nil {
		return fail(exitBadProgram, err)
	}

	if templatePath, _ := flags.GetString("template"); templatePath != "" {
		useDefaults, _ := flags.GetBool("default")
		if err := writeTemplate(templatePath, format, ifaces, p, useDefaults); err != nil {
			return fail(exitBadFile, err)
		}
		return fail(exitInfo, fmt.Errorf("template written to %s", templatePath))
	}

	vm, err := readInputs(flags, format)
	if err != nil {
		return err
	}
	if err := applyOverrides(flags, vm); err != nil {
		return err
	}

	if err := program.BindInputs(p.Arena, ifaces, vm, false); err != nil {
		return fail(exitBadProgInput, err)
	}

	cfgPath, _ := flags.GetString("config")
	cfg, err := resolveConfig(cfgPath)
	if err != nil {
		return fail(exitBadArgs, err)
	}

	if err := p.Run(ep, cfg); err != nil {
		return fail(exitFailedExe, err)
	}

	outputs, err := program.Outputs(p.Arena, ifaces)
	if err != nil {
		return fail(exitFailedExe, err)
	}

	if debugFlag {
		if err := debugger.Run(ep.Name, snapshot()); err != nil {
			fmt.Fprintf(os.Stderr, "spirvrun: debugger: %v\n", err)
		}
	}

	if checkPath, _ := flags.GetString("check"); checkPath != "" {
		return compareOutputs(checkPath, format, outputs)
	}

	outPath, _ := flags.GetString("out")
	indent, _ := flags.GetInt("indent")
	if err := writeOutputs(outPath, format, indent, outputs); err != nil {
		return fail(exitFailedExe, err)
	}
	return nil
}

func resolveFormat(flag, modulePath string) (ioformat.Format, error) {
	if flag != "" {
		return ioformat.ParseFormat(flag)
	}
	if strings.HasSuffix(modulePath, ".json") {
		return ioformat.JSON, nil
	}
	return ioformat.YAML, nil
}

// resolveConfig loads an optional .spirvrc.toml and merges it over
// config.Defaults(); an empty path means no file was requested.
func resolveConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Defaults(), nil
	}
	fromFile, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	return config.Merge(config.Defaults(), fromFile), nil
}

// buildTracer wires -p/-d to the tracer program.Load stores on the Program
// and Run uses for one span per dispatched instruction (SPEC_FULL §4.8): -d uses a RingTracer so the
// scrollback debugger has something to snapshot after the run; -p alone
// streams events live to stderr the way the teacher's --trace flag does.
func buildTracer(enabled, ring bool) (trace.Tracer, func() []trace.Event) {
	if !enabled {
		return trace.Nop, func() []trace.Event { return nil }
	}
	if ring {
		rt := trace.NewRingTracer(8192, trace.LevelDebug)
		return rt, rt.Snapshot
	}
	st := trace.NewStreamTracer(os.Stderr, trace.LevelDebug, trace.FormatText)
	return st, func() []trace.Event { return nil }
}

func readInputs(flags *pflag.FlagSet, format ioformat.Format) (ioformat.ValueMap, error) {
	vm := make(ioformat.ValueMap)

	inPath, _ := flags.GetString("in")
	if inPath == "" {
		return vm, nil
	}

	r, closeFn, err := openInput(inPath)
	if err != nil {
		return nil, fail(exitBadFile, err)
	}
	defer closeFn()

	decoded, err := ioformat.Decode(format, r)
	if err != nil {
		return nil, fail(exitBadParse, err)
	}
	return decoded, nil
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func applyOverrides(flags *pflag.FlagSet, vm ioformat.ValueMap) error {
	sets, _ := flags.GetStringArray("set")
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fail(exitBadArgs, fmt.Errorf("malformed --set %q, want KEY=VAL", kv))
		}
		lit, err := literalFromSetValue(v)
		if err != nil {
			return fail(exitBadArgs, fmt.Errorf("--set %s: %w", k, err))
		}
		vm[k] = lit
	}
	return nil
}

func literalFromSetValue(v string) (ioformat.Literal, error) {
	switch strings.ToLower(v) {
	case "true":
		b := true
		return ioformat.Literal{Bool: &b}, nil
	case "false":
		b := false
		return ioformat.Literal{Bool: &b}, nil
	}
	if lit, err := ioformat.ParseNumber(v); err == nil {
		return lit, nil
	}
	s := v
	return ioformat.Literal{Str: &s}, nil
}

func writeTemplate(path string, format ioformat.Format, ifaces []program.InterfaceVar, p *program.Program, useDefaults bool) error {
	w, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	defer closeFn()
	return ioformat.Template(format, w, program.Template(p.Arena, ifaces), useDefaults)
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// writeOutputs ignores indent for now: neither YAML nor the JSON encoder
// ioformat wraps exposes an indent-width knob through the narrow Encode
// boundary spec §6.2 deliberately keeps this package to.
func writeOutputs(path string, format ioformat.Format, indent int, outputs ioformat.ValueMap) error {
	_ = indent
	w, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	defer closeFn()
	return ioformat.Encode(format, w, outputs)
}

func compareOutputs(checkPath string, format ioformat.Format, outputs ioformat.ValueMap) error {
	f, err := os.Open(checkPath)
	if err != nil {
		return fail(exitBadFile, err)
	}
	defer f.Close()

	want, err := ioformat.Decode(format, f)
	if err != nil {
		return fail(exitBadParse, err)
	}

	if !valueMapsEqual(want, outputs) {
		return fail(exitBadCompare, fmt.Errorf("outputs do not match %s", checkPath))
	}
	return nil
}

// valueMapsEqual compares two ValueMaps with the float tolerance spec
// §8's round-trip property already assumes (equality at 6 digits).
func valueMapsEqual(a, b ioformat.ValueMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !literalsEqual(av, bv) {
			return false
		}
	}
	return true
}

func literalsEqual(a, b ioformat.Literal) bool {
	switch {
	case a.Bool != nil || b.Bool != nil:
		return a.Bool != nil && b.Bool != nil && *a.Bool == *b.Bool
	case a.Float != nil || b.Float != nil:
		av, aok := asFloat(a)
		bv, bok := asFloat(b)
		return aok && bok && roundTo6(av) == roundTo6(bv)
	case a.Int != nil || b.Int != nil:
		return a.Int != nil && b.Int != nil && *a.Int == *b.Int
	case a.Str != nil || b.Str != nil:
		return a.Str != nil && b.Str != nil && *a.Str == *b.Str
	case a.Sequence != nil || b.Sequence != nil:
		if len(a.Sequence) != len(b.Sequence) {
			return false
		}
		for i := range a.Sequence {
			if !literalsEqual(a.Sequence[i], b.Sequence[i]) {
				return false
			}
		}
		return true
	case a.Mapping != nil || b.Mapping != nil:
		if len(a.Mapping) != len(b.Mapping) {
			return false
		}
		for k, av := range a.Mapping {
			bv, ok := b.Mapping[k]
			if !ok || !literalsEqual(av, bv) {
				return false
			}
		}
		return true
	}
	return true
}

func asFloat(l ioformat.Literal) (float64, bool) {
	switch {
	case l.Float != nil:
		return *l.Float, true
	case l.Int != nil:
		return float64(*l.Int), true
	}
	return 0, false
}

func roundTo6(f float64) float64 {
	const scale = 1e6
	return math.Round(f*scale) / scale
}
