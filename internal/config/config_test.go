package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ".spirvrc.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadMissingFieldsKeepDefaults(t *testing.T) {
	path := writeTemp(t, `[interpreter]
indent_width = 4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IndentWidth != 4 {
		t.Fatalf("expected overridden indent width 4, got %d", cfg.IndentWidth)
	}
	if cfg.MaxRayRecursionDepth != Defaults().MaxRayRecursionDepth {
		t.Fatalf("expected untouched field to keep its default")
	}
}

func TestLoadDisablesGLSLFeature(t *testing.T) {
	path := writeTemp(t, `[glsl]
disable = ["packing"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GLSLFeatures[FeaturePacking] {
		t.Fatalf("expected packing feature to be disabled")
	}
	if !cfg.GLSLFeatures[FeatureTrig] {
		t.Fatalf("expected untouched feature to remain enabled")
	}
}

func TestMergeOverridesOnlySetFields(t *testing.T) {
	base := Defaults()
	override := Config{IndentWidth: 8}
	merged := Merge(base, override)
	if merged.IndentWidth != 8 {
		t.Fatalf("expected override to win, got %d", merged.IndentWidth)
	}
	if merged.DefaultFormat != base.DefaultFormat {
		t.Fatalf("expected unset override field to keep base value")
	}
}
