/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommand_HasGlobalFlags(t *testing.T) {
	for _, name := range []string{
		"filename", "env_file", "import_env", "tfe_token",
		"region", "profile", "verbose",
	} {
		flag := rootCmd.PersistentFlags().Lookup(name)
		assert.NotNil(t, flag, "root command should have --%s flag", name)
	}
}

func TestRootCommand_SubcommandsRegistered(t *testing.T) {
	for _, name := range []string{
		"deploy", "delete", "info", "scale", "restart", "run",
		"config", "task", "cluster", "validate", "version",
	} {
		assert.NotNil(t, findCommand(rootCmd, name),
			"%s command should be registered", name)
	}
}

func TestConfigCommand_Subcommands(t *testing.T) {
	parent := findCommand(rootCmd, "config")
	assert.NotNil(t, findCommand(parent, "write"))
	assert.NotNil(t, findCommand(parent, "show"))
}

func TestTaskCommand_Subcommands(t *testing.T) {
	parent := findCommand(rootCmd, "task")
	for _, name := range []string{"deploy", "delete", "run", "info"} {
		assert.NotNil(t, findCommand(parent, name),
			"task %s command should be registered", name)
	}
}
