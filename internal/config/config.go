/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/

// Package config loads and interpolates the deployfish.yml config file.
//
// The file is parsed once.  String values inside the processable sections
// (services, tasks, tunnels) may contain ${env.NAME} and ${terraform.NAME}
// references, which are substituted during loading; the raw, unsubstituted
// document is retained alongside the interpolated one.  The terraform
// section itself is never interpolated.
package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultFileName is used when no config file is named explicitly.
	DefaultFileName = "deployfish.yml"

	// FileEnvVar names the environment variable that overrides the
	// default config file location.
	FileEnvVar = "DEPLOYFISH_CONFIG_FILE"
)

// processableSections are the top-level sections whose string values are
// interpolated.  Every other section is left untouched.
var processableSections = []string{"services", "tasks", "tunnels"}

// OutputSource yields terraform output values by name.  The terraform
// package provides implementations backed by S3 statefiles and Terraform
// Enterprise workspaces.
type OutputSource interface {
	Output(ctx context.Context, key string) (string, error)
}

// StateLoader builds an OutputSource from the config file's terraform
// section.  Loading is expected to be cheap; implementations fetch remote
// state lazily on the first Output call.
type StateLoader interface {
	Load(ctx context.Context, section map[string]any) (OutputSource, error)
}

// Options controls config loading.
type Options struct {
	// Filename is the config file path.  Empty means: consult
	// DEPLOYFISH_CONFIG_FILE, then fall back to deployfish.yml.
	Filename string

	// EnvFile, when set, is a file of KEY=VALUE lines that seeds the
	// ${env.NAME} lookup table.
	EnvFile string

	// ImportEnv merges the process environment into the ${env.NAME}
	// lookup table on top of the env file.  When no EnvFile is given the
	// process environment is used regardless.
	ImportEnv bool

	// StateLoader resolves ${terraform.NAME} references.  Required only
	// when the config actually uses them.
	StateLoader StateLoader

	// SkipInterpolation parses the file but performs no substitution.
	// Used by commands that want to inspect the raw document.
	SkipInterpolation bool
}

// Config is a parsed deployfish.yml document.
type Config struct {
	filename string
	raw      map[string]any
	cooked   map[string]any
}

// Filename reports the path the config was loaded from.
func (c *Config) Filename() string { return c.filename }

// Load reads, parses and interpolates a config file.
func Load(ctx context.Context, opts Options) (*Config, error) {
	filename := opts.Filename
	if filename == "" {
		filename = os.Getenv(FileEnvVar)
	}
	if filename == "" {
		filename = DefaultFileName
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &ParseError{Filename: filename, Err: err}
	}
	return Parse(ctx, filename, data, opts)
}

// Parse builds a Config from in-memory YAML.  Load is the usual entry
// point; Parse exists for tests and for callers that already hold the
// document bytes.
func Parse(ctx context.Context, filename string, data []byte, opts Options) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Filename: filename, Err: err}
	}
	if raw == nil {
		raw = make(map[string]any)
	}

	cfg := &Config{
		filename: filename,
		raw:      raw,
		cooked:   deepCopyMap(raw),
	}
	if opts.SkipInterpolation {
		return cfg, nil
	}

	env, err := buildEnvTable(opts)
	if err != nil {
		return nil, err
	}

	interp := &interpolator{env: env}
	if section, ok := raw["terraform"].(map[string]any); ok {
		if opts.StateLoader == nil {
			return nil, fmt.Errorf(
				"config file %s has a terraform section but no state loader is configured", filename)
		}
		state, err := opts.StateLoader.Load(ctx, section)
		if err != nil {
			return nil, fmt.Errorf("failed to configure terraform state backend: %w", err)
		}
		interp.state = state
		interp.lookups = terraformLookups(section)
	}

	for _, name := range processableSections {
		items, ok := cfg.cooked[name].([]any)
		if !ok {
			continue
		}
		for i, item := range items {
			mapped, ok := item.(map[string]any)
			if !ok {
				continue
			}
			cookedItem, err := interp.processItem(ctx, name, mapped)
			if err != nil {
				return nil, err
			}
			items[i] = cookedItem
		}
	}
	return cfg, nil
}

// buildEnvTable assembles the ${env.NAME} lookup table.  The env file is
// the base; the process environment is merged over it when requested, and
// used alone when no env file was given.
func buildEnvTable(opts Options) (map[string]string, error) {
	env := make(map[string]string)
	if opts.EnvFile != "" {
		fileEnv, err := LoadEnvFile(opts.EnvFile)
		if err != nil {
			return nil, err
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	if opts.ImportEnv || opts.EnvFile == "" {
		for k, v := range processEnviron(os.Environ()) {
			env[k] = v
		}
	}
	return env, nil
}

// terraformLookups extracts the lookups map from the terraform section.
// Absent or malformed lookups just yield an empty table; ${terraform.X}
// then falls through to a direct output lookup on X.
func terraformLookups(section map[string]any) map[string]string {
	lookups := make(map[string]string)
	raw, ok := section["lookups"].(map[string]any)
	if !ok {
		return lookups
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			lookups[k] = s
		}
	}
	return lookups
}

// GetSection returns the interpolated contents of a top-level section.
func (c *Config) GetSection(name string) ([]map[string]any, error) {
	raw, ok := c.cooked[name]
	if !ok {
		return nil, &SectionNotFoundError{Section: name}
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &SectionNotFoundError{Section: name}
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if mapped, ok := item.(map[string]any); ok {
			out = append(out, mapped)
		}
	}
	return out, nil
}

// GetSectionItem finds the item in a section whose name or environment
// matches the given identifier.  The name match wins when both exist.
func (c *Config) GetSectionItem(section, name string) (map[string]any, error) {
	items, err := c.GetSection(section)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if itemName, ok := item["name"].(string); ok && itemName == name {
			return item, nil
		}
	}
	for _, item := range items {
		if env, ok := item["environment"].(string); ok && env == name {
			return item, nil
		}
	}
	return nil, &ItemNotFoundError{Section: section, Name: name}
}

// RawSection returns the uninterpolated contents of a top-level section.
func (c *Config) RawSection(name string) (any, error) {
	raw, ok := c.raw[name]
	if !ok {
		return nil, &SectionNotFoundError{Section: name}
	}
	return raw, nil
}

// Cooked returns the full interpolated document.
func (c *Config) Cooked() map[string]any { return c.cooked }

func deepCopyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return deepCopyMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
