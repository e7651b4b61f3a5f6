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

// clusterCmd groups the cluster subcommands
var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Inspect ECS clusters",
	Long: `Inspect the ECS clusters deployfish deploys into.

Clusters are infrastructure: deployfish reads them but never creates,
modifies or deletes them.`,
}

// clusterInfoCmd represents the cluster info command
var clusterInfoCmd = &cobra.Command{
	Use:   "info <cluster-name>",
	Short: "Display detailed information about an ECS cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return showClusterInfo(ctx, args[0])
	},
}

// showClusterInfo prints the live state of one cluster.
func showClusterInfo(ctx context.Context, name string) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	cluster, err := s.managers.Cluster.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to describe cluster %s: %w", name, err)
	}

	data := cluster.Data
	fmt.Printf("Cluster: %s\n", data.Name)
	fmt.Printf("Status: %s\n", data.Status)
	fmt.Printf("Active services: %d\n", data.ActiveServicesCount)
	fmt.Printf("Running tasks: %d\n", data.RunningTasksCount)
	fmt.Printf("Pending tasks: %d\n", data.PendingTasksCount)
	fmt.Printf("Container instances: %d\n", data.RegisteredContainerInstancesCount)
	return nil
}

func init() {
	clusterCmd.AddCommand(clusterInfoCmd)
	rootCmd.AddCommand(clusterCmd)
}
