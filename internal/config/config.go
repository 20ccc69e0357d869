// Package config loads the optional .spirvrc.toml file that supplies
// defaults for ray-recursion depth, the enabled GLSL.std.450 feature subset,
// indent width, and output format. CLI flags always override file config;
// file config always overrides the built-in Defaults().
//
// Grounded in the teacher's internal/project module-manifest loader
// (LoadProjectModules/LoadModuleManifest): the same toml.DecodeFile +
// meta.IsDefined("section", "key") idiom for distinguishing "absent,
// fall back to default" from "present but empty".
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// GLSLFeature names one enableable GLSL.std.450 extended-instruction group.
type GLSLFeature string

const (
	FeatureTrig       GLSLFeature = "trig"
	FeatureExponent   GLSLFeature = "exponent"
	FeatureCommon     GLSLFeature = "common"
	FeatureGeometric  GLSLFeature = "geometric"
	FeaturePacking    GLSLFeature = "packing"
	FeatureInterpolate GLSLFeature = "interpolate"
)

// Config is the fully-resolved set of runtime defaults.
type Config struct {
	MaxRayRecursionDepth uint32
	GLSLFeatures         map[GLSLFeature]bool
	IndentWidth          int
	DefaultFormat        string
}

func Defaults() Config {
	return Config{
		MaxRayRecursionDepth: 31,
		GLSLFeatures: map[GLSLFeature]bool{
			FeatureTrig:        true,
			FeatureExponent:    true,
			FeatureCommon:      true,
			FeatureGeometric:   true,
			FeaturePacking:     true,
			FeatureInterpolate: true,
		},
		IndentWidth:   2,
		DefaultFormat: "yaml",
	}
}

type fileConfig struct {
	Interpreter struct {
		MaxRayRecursionDepth *uint32 `toml:"max_ray_recursion_depth"`
		IndentWidth          *int    `toml:"indent_width"`
		DefaultFormat        *string `toml:"default_format"`
	} `toml:"interpreter"`
	GLSL struct {
		Disable []string `toml:"disable"`
	} `toml:"glsl"`
}

// Load reads path (a .spirvrc.toml file) and overlays it on top of
// Defaults(). A missing [interpreter] key or field leaves the corresponding
// default untouched, mirroring LoadModuleManifest's meta.IsDefined guards.
func Load(path string) (Config, error) {
	cfg := Defaults()

	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return cfg, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}

	if meta.IsDefined("interpreter", "max_ray_recursion_depth") && fc.Interpreter.MaxRayRecursionDepth != nil {
		cfg.MaxRayRecursionDepth = *fc.Interpreter.MaxRayRecursionDepth
	}
	if meta.IsDefined("interpreter", "indent_width") && fc.Interpreter.IndentWidth != nil {
		cfg.IndentWidth = *fc.Interpreter.IndentWidth
	}
	if meta.IsDefined("interpreter", "default_format") && fc.Interpreter.DefaultFormat != nil {
		cfg.DefaultFormat = strings.TrimSpace(*fc.Interpreter.DefaultFormat)
	}
	if meta.IsDefined("glsl", "disable") {
		for _, name := range fc.GLSL.Disable {
			cfg.GLSLFeatures[GLSLFeature(strings.TrimSpace(name))] = false
		}
	}

	return cfg, nil
}

// Merge overlays override on top of base for every field override sets
// (a zero value in override means "not set by this layer"), matching the
// ambient stack's "CLI flags override file config" rule (SPEC_FULL §4.9).
func Merge(base, override Config) Config {
	out := base
	if override.MaxRayRecursionDepth != 0 {
		out.MaxRayRecursionDepth = override.MaxRayRecursionDepth
	}
	if override.IndentWidth != 0 {
		out.IndentWidth = override.IndentWidth
	}
	if override.DefaultFormat != "" {
		out.DefaultFormat = override.DefaultFormat
	}
	for feature, enabled := range override.GLSLFeatures {
		out.GLSLFeatures[feature] = enabled
	}
	return out
}
