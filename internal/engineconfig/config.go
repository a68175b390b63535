// Package engineconfig provides configuration for scripted logic objects
// and for the engine itself, following the defaulting-UnmarshalYAML
// pattern the rest of this codebase's config layer uses.
package engineconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"scenelogic/internal/sandbox"
)

// ScriptConfig is the per-script configuration create_script/create_module
// accept (spec.md §6 "create_script(source, config, name)"): a standard-
// library allowlist plus feature flags a script compiles against.
type ScriptConfig struct {
	StdLibs      []string `yaml:"std_libs,omitempty"`
	EnableDebug  bool     `yaml:"enable_debug,omitempty"`
	FeatureLevel uint32   `yaml:"feature_level,omitempty"`
}

// UnmarshalYAML applies the default standard-library set before decoding,
// mirroring the teacher's "set defaults, decode into an alias, copy back"
// idiom so a config without an explicit std_libs list still compiles.
func (c *ScriptConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig ScriptConfig
	raw := rawConfig{
		StdLibs:      []string{"base", "string", "table", "math"},
		FeatureLevel: 1,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if len(raw.StdLibs) == 0 {
		raw.StdLibs = []string{"base", "string", "table", "math"}
	}
	if raw.FeatureLevel == 0 {
		raw.FeatureLevel = 1
	}
	*c = ScriptConfig(raw)
	return nil
}

// StdLibMask translates the config's string names into a sandbox.StdLib
// bitmask, rejecting unknown names as a caller error.
func (c ScriptConfig) StdLibMask() (sandbox.StdLib, error) {
	var mask sandbox.StdLib
	for _, name := range c.StdLibs {
		switch name {
		case "base":
			mask |= sandbox.LibBase
		case "string":
			mask |= sandbox.LibString
		case "table":
			mask |= sandbox.LibTable
		case "math":
			mask |= sandbox.LibMath
		case "debug":
			mask |= sandbox.LibDebug
		default:
			return 0, fmt.Errorf("unknown std_libs entry %q", name)
		}
	}
	return mask, nil
}

// DefaultScriptConfig returns the configuration create_script uses when the
// caller passes none.
func DefaultScriptConfig() ScriptConfig {
	var c ScriptConfig
	c.UnmarshalYAML(&yaml.Node{Kind: yaml.MappingNode})
	return c
}

// SaveConfig controls save()'s behavior around validation warnings (spec.md
// §7: "Validation warnings never fail operations except save, which refuses
// by default and can be overridden by caller configuration.").
type SaveConfig struct {
	IgnoreValidationWarnings bool `yaml:"ignore_validation_warnings,omitempty"`
}

// EngineConfig is the top-level configuration for a running engine
// instance: which logic-object kinds are enabled (gated by feature level)
// and the default script configuration new scripts inherit when none is
// supplied explicitly.
type EngineConfig struct {
	FeatureLevel  uint32       `yaml:"feature_level,omitempty"`
	DefaultScript ScriptConfig `yaml:"default_script,omitempty"`
}

// UnmarshalYAML applies engine-level defaults before decoding.
func (c *EngineConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig EngineConfig
	raw := rawConfig{FeatureLevel: 1, DefaultScript: DefaultScriptConfig()}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.FeatureLevel == 0 {
		raw.FeatureLevel = 1
	}
	*c = EngineConfig(raw)
	return nil
}

// LoadEngineConfig reads and parses a YAML engine configuration file,
// returning a defaulted config. An empty file yields the same defaults
// an empty YAML mapping would, rather than an error, matching the teacher's
// "empty-file-is-valid" behavior for its own config loader.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine config: %w", err)
	}

	var cfg EngineConfig
	if len(data) == 0 {
		cfg.UnmarshalYAML(&yaml.Node{Kind: yaml.MappingNode})
		return &cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse engine config: %w", err)
	}
	return &cfg, nil
}
