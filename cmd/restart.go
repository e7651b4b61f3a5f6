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
	restartNoWait bool
)

// restartCmd represents the restart command
var restartCmd = &cobra.Command{
	Use:   "restart <service-name>",
	Short: "Restart the tasks of an ECS service",
	Long: `Force a new deployment of a running ECS service.

The service keeps its current task definition revision; ECS replaces all
running tasks subject to the service's deployment configuration.  Useful
after writing new config parameters, since tasks read Parameter Store
only at startup.

Examples:
  deployfish restart web           # Replace all tasks of service web
  deployfish restart --no-wait web # Kick off the restart and return`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return restartService(ctx, args[0])
	},
}

// restartService forces a new deployment of one service.
func restartService(ctx context.Context, name string) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	pk, err := s.loader.ServicePK(name)
	if err != nil {
		return err
	}

	if err := s.reconciler.Restart(ctx, pk); err != nil {
		return fmt.Errorf("error restarting service %s: %w", name, err)
	}
	fmt.Printf("Restarted service %s\n", pk)

	if restartNoWait {
		return nil
	}
	if err := s.reconciler.WaitForStable(ctx, pk); err != nil {
		return err
	}
	fmt.Printf("Service %s is stable\n", pk)
	return nil
}

func init() {
	restartCmd.Flags().BoolVar(&restartNoWait, "no-wait", false,
		"do not wait for the service to stabilize")
	rootCmd.AddCommand(restartCmd)
}
