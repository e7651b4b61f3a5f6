/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package adapter

import (
	"fmt"
	"strings"
)

// The YAML loader hands adapters map[string]any trees.  These helpers
// read them with YAML's loose typing (ints may arrive as int or int64,
// lists of strings as []any) without sprinkling type switches through
// every converter.

func getString(item map[string]any, key string) string {
	switch v := item[key].(type) {
	case string:
		return v
	case int:
		return fmt.Sprint(v)
	case int64:
		return fmt.Sprint(v)
	case float64:
		return fmt.Sprint(v)
	case bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

func getInt32(item map[string]any, key string, fallback int32) int32 {
	switch v := item[key].(type) {
	case int:
		return int32(v)
	case int64:
		return int32(v)
	case float64:
		return int32(v)
	default:
		return fallback
	}
}

func getInt64(item map[string]any, key string, fallback int64) int64 {
	switch v := item[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return fallback
	}
}

func getFloat(item map[string]any, key string, fallback float64) float64 {
	switch v := item[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return fallback
	}
}

func getBool(item map[string]any, key string) bool {
	v, _ := item[key].(bool)
	return v
}

func getMap(item map[string]any, key string) map[string]any {
	v, _ := item[key].(map[string]any)
	return v
}

func getMapSlice(item map[string]any, key string) []map[string]any {
	raw, ok := item[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func getStringSlice(item map[string]any, key string) []string {
	switch v := item[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, fmt.Sprint(e))
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// getStringMap reads a key that may be either a mapping or a list of
// KEY=VALUE strings, the two shapes YAML authors use for environments
// and labels.
func getStringMap(item map[string]any, key string) map[string]string {
	out := make(map[string]string)
	switch v := item[key].(type) {
	case map[string]any:
		for k, e := range v {
			out[k] = fmt.Sprint(e)
		}
	case []any:
		for _, e := range v {
			entry := fmt.Sprint(e)
			if k, val, found := strings.Cut(entry, "="); found {
				out[k] = val
			}
		}
	}
	return out
}

// splitCommand splits a command string on whitespace, honoring single and
// double quotes, so config authors can write commands the way they would
// in a shell.
func splitCommand(s string) []string {
	var (
		out     []string
		current strings.Builder
		quote   rune
		started bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			started = true
		case r == ' ' || r == '\t':
			if started {
				out = append(out, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if started {
		out = append(out, current.String())
	}
	return out
}

// getCommand reads a command that may be a string or a list.
func getCommand(item map[string]any, key string) []string {
	switch v := item[key].(type) {
	case string:
		return splitCommand(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, fmt.Sprint(e))
		}
		return out
	default:
		return nil
	}
}
