/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	scaleNoWait bool
)

// scaleCmd represents the scale command
var scaleCmd = &cobra.Command{
	Use:   "scale <service-name> <count>",
	Short: "Set the desired count of an ECS service",
	Long: `Set the desired task count of a deployed ECS service.

This only changes desiredCount on the live service; the task definition,
autoscaling configuration and everything else are left untouched.  Note
that if application autoscaling is configured, it may adjust the count
again after you set it.

Examples:
  deployfish scale web 4           # Run four tasks of service web
  deployfish scale --no-wait web 0 # Scale to zero, do not wait`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil || count < 0 {
			return fmt.Errorf("count %q is not a non-negative integer", args[1])
		}
		ctx := context.Background()
		return scaleService(ctx, args[0], int32(count))
	},
}

// scaleService sets the desired count of one service.
func scaleService(ctx context.Context, name string, count int32) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	pk, err := s.loader.ServicePK(name)
	if err != nil {
		return err
	}

	if err := s.reconciler.Scale(ctx, pk, count); err != nil {
		return fmt.Errorf("error scaling service %s: %w", name, err)
	}
	fmt.Printf("Set desired count of service %s to %d\n", pk, count)

	if scaleNoWait {
		return nil
	}
	if err := s.reconciler.WaitForStable(ctx, pk); err != nil {
		return err
	}
	fmt.Printf("Service %s is stable\n", pk)
	return nil
}

func init() {
	scaleCmd.Flags().BoolVar(&scaleNoWait, "no-wait", false,
		"do not wait for the service to stabilize")
	rootCmd.AddCommand(scaleCmd)
}
