/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/caltechads/deployfish/internal/adapter"
	"github.com/caltechads/deployfish/internal/aws"
	"github.com/caltechads/deployfish/internal/config"
	"github.com/caltechads/deployfish/internal/loader"
	"github.com/caltechads/deployfish/internal/manager"
	"github.com/caltechads/deployfish/internal/reconcile"
)

// testConfigYAML is the config file the command tests run against: one
// service without satellites, one service with config parameters, and
// one standalone task.
const testConfigYAML = `
services:
  - name: web
    environment: prod
    cluster: prod-cluster
    count: 2
    family: prod-web
    launch_type: FARGATE
    execution_role: arn:aws:iam::123456789012:role/ecsTaskExecutionRole
    cpu: "256"
    memory: "512"
    vpc_configuration:
      subnets:
        - subnet-aaa
    containers:
      - name: web
        image: example/web:1.2.3
    config:
      - DB_HOST=db.internal
      - DEBUG=false
tasks:
  - name: sweeper
    cluster: prod-cluster
    launch_type: FARGATE
    execution_role: arn:aws:iam::123456789012:role/ecsTaskExecutionRole
    cpu: "256"
    memory: "512"
    vpc_configuration:
      subnets:
        - subnet-aaa
    containers:
      - name: sweeper
        image: example/sweeper:2.0.0
`

// newMockSession builds a session over mock AWS clients and an in-memory
// config document.
func newMockSession(t *testing.T, doc string) (*session, *aws.MockClients) {
	t.Helper()
	cfg, err := config.Parse(context.Background(), "deployfish.yml", []byte(doc),
		config.Options{SkipInterpolation: true})
	require.NoError(t, err)

	clients := aws.NewMockClients()
	adapters := adapter.Default()
	managers := manager.New(clients, adapters, zerolog.Nop())
	return &session{
		cfg:        cfg,
		managers:   managers,
		loader:     loader.New(cfg, adapters, managers, zerolog.Nop()),
		reconciler: reconcile.New(managers, zerolog.Nop()),
		log:        zerolog.Nop(),
	}, clients
}

// withSession injects a fixed session for the duration of one test.
func withSession(t *testing.T, s *session) {
	t.Helper()
	SetSessionFactory(func(ctx context.Context) (*session, error) { return s, nil })
	t.Cleanup(func() { SetSessionFactory(nil) })
}

// executeCommand runs the root command with the given arguments.
func executeCommand(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// findCommand locates a direct subcommand of the given command by name.
func findCommand(parent *cobra.Command, name string) *cobra.Command {
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}
