/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package config

import "fmt"

// ParseError indicates the config file could not be read or parsed as YAML.
type ParseError struct {
	Filename string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse config file %s: %v", e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SectionNotFoundError indicates a requested top-level section is absent.
type SectionNotFoundError struct {
	Section string
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("no such section in config: %s", e.Section)
}

// ItemNotFoundError indicates no item in a section matched the requested
// name or environment.
type ItemNotFoundError struct {
	Section string
	Name    string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("no item named %q in config section %q", e.Name, e.Section)
}

// MissingEnvironmentVariableError indicates a ${env.NAME} reference named
// a variable that is defined neither in the environment nor in the env
// file, and carries no default.
type MissingEnvironmentVariableError struct {
	Variable string
	Section  string
	Item     string
}

func (e *MissingEnvironmentVariableError) Error() string {
	return fmt.Sprintf(
		"config item %s.%s references undefined environment variable %s",
		e.Section, e.Item, e.Variable,
	)
}

// TerraformLookupError indicates a ${terraform.NAME} reference that could
// not be satisfied from the terraform section or the remote state outputs.
type TerraformLookupError struct {
	Key     string
	Section string
	Item    string
	Err     error
}

func (e *TerraformLookupError) Error() string {
	return fmt.Sprintf(
		"config item %s.%s: terraform lookup %q failed: %v",
		e.Section, e.Item, e.Key, e.Err,
	)
}

func (e *TerraformLookupError) Unwrap() error { return e.Err }
