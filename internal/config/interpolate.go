/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package config

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	envRef       = regexp.MustCompile(`\$\{env\.([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*)?\}`)
	terraformRef = regexp.MustCompile(`\$\{terraform\.([^}]+)\}`)
)

// interpolator substitutes ${env.NAME} and ${terraform.NAME} references in
// the string leaves of a config item.  Terraform references are resolved
// first so that environment references can never leak into state lookups.
type interpolator struct {
	env     map[string]string
	state   OutputSource
	lookups map[string]string
}

// processItem interpolates one section item.  The item map is walked
// recursively and returned as a new map; the input is not modified.
func (in *interpolator) processItem(ctx context.Context, section string, item map[string]any) (map[string]any, error) {
	itemName, _ := item["name"].(string)
	if itemName == "" {
		itemName, _ = item["environment"].(string)
	}
	repl := in.replacer(item)

	cooked, err := in.walk(ctx, section, itemName, repl, item)
	if err != nil {
		return nil, err
	}
	return cooked.(map[string]any), nil
}

// replacer builds the per-item replacement table applied to terraform
// lookup keys: {name}, {environment}, {service-name} and {cluster-name}
// are filled from the item being interpolated.
func (in *interpolator) replacer(item map[string]any) *strings.Replacer {
	name, _ := item["name"].(string)
	environment, _ := item["environment"].(string)
	cluster, _ := item["cluster"].(string)
	return strings.NewReplacer(
		"{name}", name,
		"{environment}", environment,
		"{service-name}", name,
		"{cluster-name}", cluster,
	)
}

func (in *interpolator) walk(ctx context.Context, section, item string, repl *strings.Replacer, v any) (any, error) {
	switch tv := v.(type) {
	case string:
		return in.interpolate(ctx, section, item, repl, tv)
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			cooked, err := in.walk(ctx, section, item, repl, e)
			if err != nil {
				return nil, err
			}
			out[k] = cooked
		}
		return out, nil
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			cooked, err := in.walk(ctx, section, item, repl, e)
			if err != nil {
				return nil, err
			}
			out[i] = cooked
		}
		return out, nil
	default:
		return v, nil
	}
}

func (in *interpolator) interpolate(ctx context.Context, section, item string, repl *strings.Replacer, s string) (string, error) {
	cooked, err := in.replaceTerraform(ctx, section, item, repl, s)
	if err != nil {
		return "", err
	}
	return in.replaceEnv(section, item, cooked)
}

func (in *interpolator) replaceTerraform(ctx context.Context, section, item string, repl *strings.Replacer, s string) (string, error) {
	var firstErr error
	out := terraformRef.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		key := terraformRef.FindStringSubmatch(match)[1]
		value, err := in.lookupOutput(ctx, key, repl)
		if err != nil {
			firstErr = &TerraformLookupError{Key: key, Section: section, Item: item, Err: err}
			return match
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func (in *interpolator) lookupOutput(ctx context.Context, key string, repl *strings.Replacer) (string, error) {
	if in.state == nil {
		return "", fmt.Errorf("no terraform section in config")
	}
	// An entry in the lookups table maps the reference to an output name,
	// with the per-item replacement tokens expanded.  Without an entry the
	// reference names the output directly.
	outputKey := key
	if mapped, ok := in.lookups[key]; ok {
		outputKey = mapped
	}
	return in.state.Output(ctx, repl.Replace(outputKey))
}

func (in *interpolator) replaceEnv(section, item, s string) (string, error) {
	var firstErr error
	out := envRef.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		groups := envRef.FindStringSubmatch(match)
		name := groups[1]
		if value, ok := in.env[name]; ok {
			return value
		}
		// ${env.NAME:-default} falls back when NAME is undefined.
		if groups[2] != "" {
			return strings.TrimPrefix(groups[2], ":-")
		}
		firstErr = &MissingEnvironmentVariableError{Variable: name, Section: section, Item: item}
		return match
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
