package engineconfig

import (
	"testing"

	"gopkg.in/yaml.v3"

	"scenelogic/internal/sandbox"
)

func TestScriptConfigDefaultsWhenFieldsOmitted(t *testing.T) {
	var c ScriptConfig
	if err := yaml.Unmarshal([]byte(`{}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(c.StdLibs) != 4 {
		t.Fatalf("expected 4 default std_libs, got %v", c.StdLibs)
	}
	if c.FeatureLevel != 1 {
		t.Fatalf("expected default feature_level 1, got %d", c.FeatureLevel)
	}
}

func TestScriptConfigRespectsExplicitValues(t *testing.T) {
	var c ScriptConfig
	src := "std_libs: [base, math]\nfeature_level: 3\nenable_debug: true\n"
	if err := yaml.Unmarshal([]byte(src), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(c.StdLibs) != 2 || c.FeatureLevel != 3 || !c.EnableDebug {
		t.Fatalf("explicit values not preserved: %+v", c)
	}
}

func TestStdLibMask(t *testing.T) {
	c := ScriptConfig{StdLibs: []string{"base", "math"}}
	mask, err := c.StdLibMask()
	if err != nil {
		t.Fatalf("StdLibMask: %v", err)
	}
	want := sandbox.LibBase | sandbox.LibMath
	if mask != want {
		t.Fatalf("expected mask %v, got %v", want, mask)
	}
}

func TestStdLibMaskRejectsUnknownName(t *testing.T) {
	c := ScriptConfig{StdLibs: []string{"io"}}
	if _, err := c.StdLibMask(); err == nil {
		t.Fatal("expected an error for an unknown std_libs entry")
	}
}

func TestEngineConfigDefaults(t *testing.T) {
	var c EngineConfig
	if err := yaml.Unmarshal([]byte(`{}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.FeatureLevel != 1 {
		t.Fatalf("expected default feature_level 1, got %d", c.FeatureLevel)
	}
	if len(c.DefaultScript.StdLibs) != 4 {
		t.Fatalf("expected default_script to inherit default std_libs, got %v", c.DefaultScript.StdLibs)
	}
}

func TestLoadEngineConfigMissingFile(t *testing.T) {
	if _, err := LoadEngineConfig("/nonexistent/engine.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
