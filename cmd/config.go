/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caltechads/deployfish/internal/render"
)

// configCmd groups the Parameter Store subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage a service's AWS Parameter Store configuration",
	Long: `Manage the AWS Parameter Store entries declared in a service's
config: section.

Parameters deployfish owns are written with 'config write'; parameters
marked external belong to another system and are only ever read.
Running tasks pick up new values on their next start, so follow a write
with 'deployfish restart'.`,
}

// configWriteCmd represents the config write command
var configWriteCmd = &cobra.Command{
	Use:   "write <service-name>",
	Short: "Write a service's config parameters to Parameter Store",
	Long: `Write the parameters from a service's config: section to AWS
Parameter Store.

Only parameters deployfish owns are written; external parameters are
skipped.  Parameters that exist in Parameter Store but not in the
config file are left alone.

Examples:
  deployfish config write web`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return writeServiceConfig(ctx, args[0])
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show <service-name>",
	Short: "Compare a service's config parameters against Parameter Store",
	Long: `Compare the parameters in a service's config: section against what
is live in AWS Parameter Store.

Each parameter is marked as in sync, missing (+), changed (~) or
external.  Live parameters not in the config file are not shown;
deployfish never deletes parameters it does not own.

Examples:
  deployfish config show web`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return showServiceConfig(ctx, args[0])
	},
}

// writeServiceConfig writes the owned parameters of one service.
func writeServiceConfig(ctx context.Context, name string) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	svc, err := s.loader.ServiceFromConfig(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load service %s: %w", name, err)
	}
	secrets, err := svc.Secrets(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config parameters for service %s: %w", name, err)
	}

	written, err := s.reconciler.WriteSecrets(ctx, secrets)
	if err != nil {
		return fmt.Errorf("failed to write config parameters for service %s: %w", name, err)
	}
	fmt.Printf("Wrote %d config parameters for service %s\n", written, svc.Name())
	return nil
}

// showServiceConfig prints the config/live comparison for one service.
func showServiceConfig(ctx context.Context, name string) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	svc, err := s.loader.ServiceFromConfig(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load service %s: %w", name, err)
	}
	desired, err := svc.Secrets(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config parameters for service %s: %w", name, err)
	}
	if len(desired) == 0 {
		fmt.Printf("Service %s has no config parameters\n", svc.Name())
		return nil
	}
	// Wildcard externals compare as whatever concrete parameters exist
	// under their prefix right now.
	desired, err = s.managers.Secret.Expand(ctx, desired)
	if err != nil {
		return fmt.Errorf("failed to expand wildcard parameters for service %s: %w", name, err)
	}

	live, err := s.managers.Secret.ListForService(ctx, svc.Cluster(), svc.Name())
	if err != nil {
		return fmt.Errorf("failed to list live parameters for service %s: %w", name, err)
	}

	comparisons := render.CompareSecrets(desired, live)
	fmt.Print(render.FormatSecretComparisons(comparisons, render.NewStyles(render.ShouldUseColour())))
	return nil
}

func init() {
	configCmd.AddCommand(configWriteCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
