/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	deployNoWait bool
)

// deployCmd represents the deploy command
var deployCmd = &cobra.Command{
	Use:   "deploy <service-name>",
	Short: "Create or update an ECS service",
	Long: `Create or update an ECS service from deployfish.yml.

Deploying a service brings everything it owns in line with the config
file, in dependency order:

• Helper task definitions are registered first and their exact revisions
  are recorded as docker labels on the service task definition
• The service task definition is registered
• Service discovery, the service itself, application autoscaling and
  helper task schedule rules are created, updated or deleted to match
  the config

Owned AWS Parameter Store entries are written before the service is
touched, so new tasks start with current configuration.  Sub-resources
that were removed from the config file are deleted from AWS; external
parameters are never written.

Examples:
  deployfish deploy web           # Deploy the service named web
  deployfish deploy prod          # Deploy the service for the prod environment
  deployfish deploy --no-wait web # Return without waiting for stability

By default the command waits for the deployment to stabilize and fails
if it does not within the timeout.  The service is left as-is on
timeout; there is no rollback.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return deployService(ctx, args[0])
	},
}

// deployService deploys one service and waits for it to stabilize.
func deployService(ctx context.Context, name string) error {
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
	if len(secrets) > 0 {
		written, err := s.reconciler.WriteSecrets(ctx, secrets)
		if err != nil {
			return fmt.Errorf("failed to write config parameters for service %s: %w", name, err)
		}
		fmt.Printf("Wrote %d config parameters for service %s\n", written, svc.Name())
	}

	if err := s.reconciler.SaveService(ctx, svc); err != nil {
		return fmt.Errorf("error deploying service %s: %w", name, err)
	}
	fmt.Printf("Deployed service %s in cluster %s as %s\n",
		svc.Name(), svc.Cluster(), svc.Data.TaskDefinition)

	if deployNoWait {
		return nil
	}
	if err := s.reconciler.WaitForStable(ctx, svc.PK()); err != nil {
		return err
	}
	fmt.Printf("Service %s is stable\n", svc.Name())
	return nil
}

func init() {
	deployCmd.Flags().BoolVar(&deployNoWait, "no-wait", false,
		"do not wait for the deployment to stabilize")
	rootCmd.AddCommand(deployCmd)
}
