/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/

// Package terraform fetches Terraform remote state and exposes its root
// outputs, so that deployfish.yml values can be looked up from the same
// source of truth that provisioned the infrastructure.
//
// Two backends are supported: statefiles stored in S3 and workspaces
// hosted on Terraform Enterprise / Terraform Cloud.  State is fetched at
// most once per process and cached; a fetch failure is terminal.
package terraform

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// fetcher retrieves the raw statefile bytes from a backend.
type fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	Location() string
}

// State lazily fetches and caches the outputs of one remote state.
type State struct {
	source fetcher

	mu      sync.Mutex
	outputs map[string]string
	loaded  bool
}

// NewState wraps a backend fetcher in a caching State.
func NewState(source fetcher) *State {
	return &State{source: source}
}

// Location describes where the state lives, for error messages.
func (s *State) Location() string { return s.source.Location() }

// Output returns the value of a root-module output, fetching the state on
// first use.
func (s *State) Output(ctx context.Context, key string) (string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return "", err
	}
	value, ok := s.outputs[key]
	if !ok {
		return "", &OutputNotFoundError{Key: key, Location: s.source.Location()}
	}
	return value, nil
}

func (s *State) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	data, err := s.source.Fetch(ctx)
	if err != nil {
		return &StatefileFetchError{Location: s.source.Location(), Err: err}
	}
	outputs, err := parseStatefile(data)
	if err != nil {
		return &StatefileFetchError{Location: s.source.Location(), Err: err}
	}
	s.outputs = outputs
	s.loaded = true
	return nil
}

// parseStatefile extracts root outputs from a statefile.  Terraform 0.12
// and later store them top-level under "outputs"; earlier versions nest
// them in the root entry of "modules".
func parseStatefile(data []byte) (map[string]string, error) {
	var doc struct {
		Outputs map[string]struct {
			Value any `json:"value"`
		} `json:"outputs"`
		Modules []struct {
			Path    []string                   `json:"path"`
			Outputs map[string]json.RawMessage `json:"outputs"`
		} `json:"modules"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("statefile is not valid JSON: %w", err)
	}

	outputs := make(map[string]string)
	for name, out := range doc.Outputs {
		outputs[name] = stringify(out.Value)
	}
	if len(outputs) > 0 {
		return outputs, nil
	}

	for _, mod := range doc.Modules {
		if len(mod.Path) != 1 || mod.Path[0] != "root" {
			continue
		}
		for name, raw := range mod.Outputs {
			outputs[name] = parseLegacyOutput(raw)
		}
	}
	return outputs, nil
}

// parseLegacyOutput handles the two pre-0.12 output encodings: a wrapped
// {"value": ..., "type": ...} object or a bare scalar.
func parseLegacyOutput(raw json.RawMessage) string {
	var wrapped struct {
		Value any `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Value != nil {
		return stringify(wrapped.Value)
	}
	var scalar any
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return stringify(scalar)
	}
	return string(raw)
}

func stringify(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case nil:
		return ""
	default:
		return fmt.Sprint(tv)
	}
}
