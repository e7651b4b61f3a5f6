/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caltechads/deployfish/internal/prompt"
)

var (
	deleteForce bool
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <service-name>",
	Short: "Delete an ECS service",
	Long: `Delete an ECS service and the sub-resources deployfish manages for it.

This command safely deletes a service by:

• Removing application autoscaling (scalable target, policies, alarms)
• Removing helper task schedule rules
• Scaling the service to zero and deleting it
• Removing its service discovery entry

Task definitions are never deregistered and AWS Parameter Store entries
are never deleted; both remain available for audit or rollback.

Examples:
  deployfish delete web           # Delete service web after confirmation
  deployfish delete --force web   # Delete without prompting

CAUTION: Deletion is destructive and cannot be undone. Always verify
what will be deleted before confirming.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return deleteService(ctx, args[0])
	},
}

// deleteService confirms and deletes one service.
func deleteService(ctx context.Context, name string) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	svc, err := s.loader.ServiceFromConfig(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load service %s: %w", name, err)
	}

	if !deleteForce {
		confirmed, err := prompt.Confirm(fmt.Sprintf(
			"Delete service %s in cluster %s?", svc.Name(), svc.Cluster()))
		if err != nil {
			return fmt.Errorf("failed to get confirmation: %w", err)
		}
		if !confirmed {
			fmt.Println("Delete cancelled")
			return nil
		}
	}

	if err := s.reconciler.DeleteService(ctx, svc); err != nil {
		return fmt.Errorf("error deleting service %s: %w", name, err)
	}
	fmt.Printf("Deleted service %s in cluster %s\n", svc.Name(), svc.Cluster())
	return nil
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false,
		"delete without prompting for confirmation")
	rootCmd.AddCommand(deleteCmd)
}
